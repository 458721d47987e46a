// Package errs defines the error taxonomy used across the knowledge base:
// a small set of kinds that callers can branch on with errors.Is/errors.As,
// each wrapping the underlying cause and the stage that produced it.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error into one of the taxonomy's buckets.
type Kind string

const (
	// ConfigMissing means no config file could be found on the search path.
	ConfigMissing Kind = "ConfigMissing"
	// PathTraversal means a path resolved outside every allowed base path.
	PathTraversal Kind = "PathTraversal"
	// SecurityViolation means strict-mode injection scanning blocked a document.
	SecurityViolation Kind = "SecurityViolation"
	// UnsupportedFormat means the file extension has no registered loader.
	UnsupportedFormat Kind = "UnsupportedFormat"
	// EmptyDocument means the loader produced no extractable text.
	EmptyDocument Kind = "EmptyDocument"
	// DecodeFailure means the underlying format parser could not decode the file.
	DecodeFailure Kind = "DecodeFailure"
	// DependencyUnavailable means a local daemon (LLM/embedding) could not be reached.
	DependencyUnavailable Kind = "DependencyUnavailable"
	// StorageError means the passage store (SQLite) returned an error.
	StorageError Kind = "StorageError"
	// PipelineFailure is a catch-all for stage failures that don't fit another kind.
	PipelineFailure Kind = "PipelineFailure"
)

// Error carries a Kind, the pipeline stage that produced it, and the
// underlying cause.
type Error struct {
	Kind  Kind
	Stage string
	Err   error
}

func (e *Error) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("%s [%s]: %v", e.Stage, e.Kind, e.Err)
	}
	return fmt.Sprintf("[%s]: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is allows errors.Is(err, errs.New(SomeKind, "", nil)) style matching on Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New wraps err with a Kind and the stage name that produced it.
func New(kind Kind, stage string, err error) *Error {
	return &Error{Kind: kind, Stage: stage, Err: err}
}

// Of reports the Kind of err if it (or something it wraps) is an *Error.
func Of(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
