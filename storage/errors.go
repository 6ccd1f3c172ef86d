package storage

import "errors"

// Common storage errors.
var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned when a commit reuses an id already in the
	// workspace, or a concurrent writer won an optimistic update.
	ErrConflict = errors.New("conflicting record")
)
