package experiment

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindRangeNotSatisfiable
	KindResourceExhausted
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindRangeNotSatisfiable:
		return "range_not_satisfiable"
	case KindResourceExhausted:
		return "resource_exhausted"
	default:
		return "internal"
	}
}

// Error is the error type handed to the HTTP boundary. Message is safe to
// show to the caller; Err carries the underlying cause for logging.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func NewValidationError(msg string) error { return &Error{Kind: KindValidation, Message: msg} }
func NewNotFoundError(msg string) error   { return &Error{Kind: KindNotFound, Message: msg} }

func NewRangeNotSatisfiableError(msg string) error {
	return &Error{Kind: KindRangeNotSatisfiable, Message: msg}
}

func NewResourceExhaustedError(msg string) error {
	return &Error{Kind: KindResourceExhausted, Message: msg}
}

func NewInternalError(msg string, err error) error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// AsError extracts an *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of err, KindInternal for anything untyped.
func KindOf(err error) Kind {
	if e, ok := AsError(err); ok {
		return e.Kind
	}
	return KindInternal
}
