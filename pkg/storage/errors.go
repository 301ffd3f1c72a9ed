package storage

import "errors"

// Common errors returned by storage implementations.
var (
	// ErrFinished is returned when a staged output is written to, committed or
	// discarded after it was already committed or discarded.
	ErrFinished = errors.New("staged output already finished")
)
