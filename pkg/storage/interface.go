// Package storage defines how blocklist inputs are read and published lists
// are replaced. A new published list is first staged; it only becomes visible
// once committed, so an interrupted or rejected run never leaves a partial
// file in the published location.
//
//go:generate mockgen -package mockstorage -source=interface.go -destination=mock/mockstorage.go *
package storage

import (
	"context"
	"io"
)

// Staged is an output being prepared for publication. Implementations become
// unusable after Commit or Discard is called.
type Staged interface {
	io.Writer

	// Size flushes pending writes and returns the size in bytes of the staged content.
	Size() (int64, error)
	// Commit atomically replaces the published file with the staged content.
	// changed is false when the published content was already byte-identical,
	// in which case the published file is left untouched.
	Commit() (changed bool, err error)
	// Discard drops the staged content, leaving the published file untouched.
	Discard() error
}

// Store reads inputs and published lists and stages replacements.
type Store interface {
	// Open opens the named file for reading. It returns an error of kind
	// serrors.ErrNotFound when the file does not exist.
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	// Stage starts a replacement for the named file.
	Stage(ctx context.Context, name string) (Staged, error)
}
