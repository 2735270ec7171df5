package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the transport layer.
type Kind int

const (
	KindOther Kind = iota
	KindNotFound
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	default:
		return "other"
	}
}

// Error carries a kind, a user-facing message and an optional cause.
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

func (e *Error) Unwrap() error {
	return e.Err
}

func NotFound(message string) error {
	return &Error{Kind: KindNotFound, Message: message}
}

func Validation(message string) error {
	return &Error{Kind: KindValidation, Message: message}
}

// Other wraps an unexpected failure. The message is logged, never returned to clients.
func Other(message string, err error) error {
	return &Error{Kind: KindOther, Message: message, Err: err}
}

// KindOf reports the kind of err. Errors not created by this package are KindOther.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindOther
}

// MessageOf returns the user-facing message for NotFound and Validation errors.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

func IsValidation(err error) bool {
	return KindOf(err) == KindValidation
}
