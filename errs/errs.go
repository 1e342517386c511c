// Package errs classifies every failure the harness can observe. Operations
// report one of these kinds instead of raw driver errors so the runner can
// decide whether to keep going.
package errs

import (
	"errors"
	"fmt"
)

type Kind string

const (
	MalformedInput      Kind = "MALFORMED_INPUT"
	Connectivity        Kind = "CONNECTIVITY"
	ConstraintViolation Kind = "CONSTRAINT_VIOLATION"
	SchemaMismatch      Kind = "SCHEMA_MISMATCH"
	Encoding            Kind = "ENCODING"
	IO                  Kind = "IO"
	InvalidArgument     Kind = "INVALID_ARGUMENT"
	Unknown             Kind = "UNKNOWN"
)

// Error is the categorized error returned by every component.
type Error struct {
	Kind    Kind
	Op      string // operation or component that failed
	Message string
	Cause   error
}

func (e *Error) Error() string {
	prefix := string(e.Kind)
	if e.Op != "" {
		prefix += ":" + e.Op
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", prefix, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error with the same kind, so errors.Is(err, errs.New(errs.IO, "", ""))
// works as a category check.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

func Wrap(kind Kind, op, message string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Cause: cause}
}

// KindOf returns the kind of the first *Error in the chain, Unknown for other
// non-nil errors and "" for nil.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// IsFatal reports whether err must stop the remaining benchmark chain.
func IsFatal(err error) bool {
	return KindOf(err) == Connectivity
}

// WithOp returns err tagged with op. Errors that are already categorized keep
// their kind; anything else becomes Unknown.
func WithOp(err error, op string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		cp := *e
		cp.Op = op
		return &cp
	}
	return Wrap(Unknown, op, "unexpected failure", err)
}
