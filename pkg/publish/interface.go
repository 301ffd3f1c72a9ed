// Package publish defines the collaborator that makes written lists visible
// to their consumers, typically by pushing them to a shared repository.
package publish

import (
	"context"
)

//go:generate mockgen -package mockpublish -source=interface.go -destination=mock/mockpublish.go *
type Publisher interface {
	// Sync brings the working copy up to date with upstream and reports
	// whether upstream had changes.
	Sync(ctx context.Context) (bool, error)
	// Publish commits files with message and pushes them. published is false
	// when none of the files differ from what is already committed.
	Publish(ctx context.Context, files []string, message string) (published bool, err error)
}
