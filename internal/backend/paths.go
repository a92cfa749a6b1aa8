package backend

import "net/url"

// seg escapes a single path segment.
func seg(s string) string { return url.PathEscape(s) }
