package serrors

import (
	"errors"
	"fmt"
)

// Kind is a marker interface implemented by all semantic error kinds created
// with NewKind. It allows distinguishing semantic kinds from ordinary errors.
type Kind interface {
	error
	isKind()
}

// kind is an unexported implementation of Kind used as a sentinel value for a
// semantic error category.
type kind struct{ s string }

func (k kind) Error() string { return k.s }
func (k kind) isKind()       {}

// NewKind creates a new semantic error kind (a sentinel) with the provided
// name. Kinds are comparable and can be used with errors.Is/As through the
// serrors.Error wrapper.
func NewKind(name string) Kind { return kind{s: name} }

// Kinds used across the blocklist pipeline. Per-entry kinds (ErrParse,
// ErrEnrichment) are tolerated by the pipeline; per-file kinds (ErrLimitExceeded,
// ErrIO) abort processing of the affected output only.
var (
	// ErrParse indicates a malformed address or prefix length.
	ErrParse = NewKind("PARSE")
	// ErrEnrichment indicates the enrichment lookup for an entry failed.
	ErrEnrichment = NewKind("ENRICHMENT")
	// ErrLimitExceeded indicates the output is over the configured entry count or byte size.
	ErrLimitExceeded = NewKind("LIMIT_EXCEEDED")
	// ErrIO indicates an input could not be read or an output could not be written.
	ErrIO = NewKind("IO")
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = NewKind("NOT_FOUND")
	// ErrBadRequest indicates the caller supplied invalid data.
	ErrBadRequest = NewKind("BAD_REQUEST")
	// ErrInternal indicates an internal error.
	ErrInternal = NewKind("INTERNAL")
	// ErrUnavailable indicates a collaborator is temporarily unavailable.
	ErrUnavailable = NewKind("UNAVAILABLE")
	// ErrRateLimited indicates a collaborator rejected the call because of rate limiting.
	ErrRateLimited = NewKind("RATE_LIMITED")
)

// Error represents a semantic error carrying a kind (sentinel), an optional
// wrapped error and an optional arbitrary message. It fully supports
// errors.Is/errors.As and unwrapping.
//
// Error string formatting:
//   - If both msg and err are set: "<msg>: <err>"
//   - If only msg is set: "<msg>"
//   - If only err is set: "<err>"
//   - If neither set: the kind's Error() string.
type Error struct {
	kind Kind
	err  error
	msg  string
}

// With constructs a new semantic error with the given kind and a message.
// Use Wrap if you also want to wrap a concrete cause.
func With(k Kind, msgFmt string, args ...any) *Error {
	return &Error{kind: k, msg: fmt.Sprintf(msgFmt, args...)}
}

// Wrap constructs a new semantic error with the given kind, wrapping err.
func Wrap(k Kind, err error, msgFmt string, args ...any) *Error {
	return &Error{kind: k, err: err, msg: fmt.Sprintf(msgFmt, args...)}
}

// KindOnly creates a semantic error carrying only the kind.
func KindOnly(k Kind) *Error { return &Error{kind: k} }

// KindOf returns the first semantic kind found in err's chain, or nil.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}

	return nil
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e == nil:
		return "<nil>"
	case e.msg != "" && e.err != nil:
		return e.msg + ": " + e.err.Error()
	case e.msg != "":
		return e.msg
	case e.err != nil:
		return e.err.Error()
	default:
		if e.kind != nil {
			return e.kind.Error()
		}

		return "unknown error"
	}
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error { return e.err }

// Is matches against either the semantic kind sentinel or the wrapped error.
func (e *Error) Is(target error) bool {
	if e == nil || target == nil {
		return e == nil && target == nil
	}
	if e.kind != nil && errors.Is(e.kind, target) {
		return true
	}
	if e.err != nil && errors.Is(e.err, target) {
		return true
	}

	return false
}

// As enables type assertions against either the semantic kind sentinel or the
// wrapped error in the chain.
func (e *Error) As(target any) bool {
	if e == nil || target == nil {
		return false
	}
	if e.kind != nil && errors.As(e.kind, target) {
		return true
	}
	if e.err != nil && errors.As(e.err, target) {
		return true
	}

	return false
}

// Kind returns the semantic kind sentinel associated with this error, or nil.
func (e *Error) Kind() Kind { return e.kind }

// Message returns the message attached to this error.
func (e *Error) Message() string { return e.msg }

// Cause returns the wrapped cause (may be nil).
func (e *Error) Cause() error { return e.err }
