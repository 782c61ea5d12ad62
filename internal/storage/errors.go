package storage

import "errors"

// Sentinel errors shared by every store backend. Runs, panels, and
// estimates are append-only, so there is no update path and a duplicate
// insert is always a caller error.
var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateKey is returned when an insert collides with an existing
	// key. Stores never overwrite.
	ErrDuplicateKey = errors.New("duplicate key: stores are append-only")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)
