// Package enricher defines the collaborator that supplies descriptive
// annotations (provenance, ownership) for blocklist entries, and the explicit
// result type the pipeline consumes.
package enricher

import (
	"context"
)

// Client looks up a descriptive annotation for a bare address (no prefix
// length). Implementations must be safe for concurrent use.
//
//go:generate mockgen -package mockenricher -source=interface.go -destination=mock/mockenricher.go *
type Client interface {
	// Lookup returns the annotation for addr, or an error when the lookup failed
	// (network error, malformed response, timeout, unknown address).
	Lookup(ctx context.Context, addr string) (string, error)
}

// Result is the outcome of a single lookup: either an annotation or the
// reason the lookup failed.
type Result struct {
	// Annotation is the looked-up text. It is empty when Err is set.
	Annotation string
	// Err is the failure reason, nil on success.
	Err error
}

// Success returns a successful Result carrying annotation.
func Success(annotation string) Result { return Result{Annotation: annotation} }

// Failure returns a failed Result carrying err.
func Failure(err error) Result { return Result{Err: err} }

// OK reports whether the lookup succeeded.
func (r Result) OK() bool { return r.Err == nil }

// Resolve calls c.Lookup and converts its return values into a Result.
func Resolve(ctx context.Context, c Client, addr string) Result {
	annotation, err := c.Lookup(ctx, addr)
	if err != nil {
		return Failure(err)
	}

	return Success(annotation)
}

// Nop is a Client that annotates nothing. It is used when enrichment is
// disabled.
type Nop struct{}

// Lookup always returns an empty annotation.
func (Nop) Lookup(context.Context, string) (string, error) { return "", nil }
