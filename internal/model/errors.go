package model

import "errors"

// Error kinds shared by the store and the session layers. Stores wrap these so
// callers can branch with errors.Is.
var (
	ErrNotFound   = errors.New("not found")
	ErrDuplicate  = errors.New("duplicate")
	ErrReferenced = errors.New("still referenced")
)
