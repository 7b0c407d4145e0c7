// Package errs defines the tagged error values shared by every analytical
// package. Each fallible operation returns an *Error carrying a Kind so that
// callers (and the HTTP surface) can branch on failure class without string
// matching.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind int

const (
	// InvalidInput covers malformed dates, negative windows, mismatched
	// array lengths and unknown symbols.
	InvalidInput Kind = iota
	// InsufficientData covers empty series, single-sample variance and
	// windows larger than the data.
	InsufficientData
	// NumericError covers zero-volatility divisions, singular regressions
	// and NaN propagation from inputs.
	NumericError
	// NotFound covers date or symbol lookups that miss.
	NotFound
	// IO is reserved for file-loading collaborators.
	IO
	// Unimplemented marks stub paths reserved for future methods.
	Unimplemented
)

func (k Kind) String() string {
	switch k {
	case InvalidInput:
		return "invalid_input"
	case InsufficientData:
		return "insufficient_data"
	case NumericError:
		return "numeric_error"
	case NotFound:
		return "not_found"
	case IO:
		return "io"
	case Unimplemented:
		return "unimplemented"
	default:
		return "unknown"
	}
}

// Error is a tagged error value.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// New creates a tagged error.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates a tagged error with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the Kind from err, unwrapping as needed. Untagged errors
// report NumericError so the HTTP surface maps them to 500.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return NumericError
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
