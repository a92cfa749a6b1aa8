// Package listing applies remote deletions to an in-memory collection.
package listing

import "context"

// Identifiable is anything addressed by a stable id.
type Identifiable interface {
	Identity() string
}

// Delete calls remove for id and, on success, returns items without the entry
// whose Identity equals id. On failure it returns the error and items untouched.
// An id that is absent from items still goes to the remote side.
func Delete[T Identifiable](ctx context.Context, items []T, id string, remove func(ctx context.Context, id string) error) ([]T, error) {
	if err := remove(ctx, id); err != nil {
		return items, err
	}
	out := make([]T, 0, len(items))
	for _, it := range items {
		if it.Identity() != id {
			out = append(out, it)
		}
	}
	return out, nil
}
