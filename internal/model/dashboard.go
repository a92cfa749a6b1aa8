package model

import "encoding/json"

// Dashboard is the role-specific landing view. Stats and Recent are passed
// through from the backend untouched.
type Dashboard struct {
	Role   Role            `json:"role"`
	Stats  json.RawMessage `json:"stats"`
	Recent json.RawMessage `json:"recent"`
}
