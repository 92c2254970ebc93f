// Package failure classifies errors returned from I/O boundaries so the
// pipeline can decide per kind whether to retry, fall back or stop a topic.
package failure

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Kind is the coarse class of a failure.
type Kind int

const (
	// Unknown is used for errors that were never classified.
	Unknown Kind = iota
	// ResourceUnavailable means there is nothing to do: missing folder,
	// empty folder, no candidates. It is a normal outcome.
	ResourceUnavailable
	// Transient covers timeouts and connection errors.
	Transient
	// Malformed covers unexpected response shapes and non-image content.
	Malformed
	// LocalIO covers local file read/write errors.
	LocalIO
)

func (k Kind) String() string {
	switch k {
	case ResourceUnavailable:
		return "resource_unavailable"
	case Transient:
		return "transient"
	case Malformed:
		return "malformed"
	case LocalIO:
		return "local_io"
	default:
		return "unknown"
	}
}

// Error is a classified error.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with a kind. A nil err yields nil.
func New(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds a classified error from a format string.
func Errorf(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Unavailable is shorthand for New(ResourceUnavailable, ...).
func Unavailable(op string, err error) error { return New(ResourceUnavailable, op, err) }

// KindOf reports the kind of the outermost classified error in err's chain.
// Unclassified timeouts and network errors are reported as Transient.
func KindOf(err error) Kind {
	if err == nil {
		return Unknown
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Transient
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return Transient
	}
	return Unknown
}
