package engine

import "errors"

var (
	// ErrNotFound is returned when a requested document ID does not exist.
	ErrNotFound = errors.New("not found")
)
