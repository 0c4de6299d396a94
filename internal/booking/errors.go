package booking

import (
	"errors"
	"fmt"
)

// Kind classifies where in the attempt pipeline a failure originated.
type Kind string

const (
	KindInvalidRequest  Kind = "invalid_request"
	KindLogin           Kind = "login"
	KindNavigation      Kind = "navigation"
	KindSlotNotFound    Kind = "slot_not_found"
	KindPlayerSelection Kind = "player_selection"
	KindConfirmation    Kind = "confirmation"
)

// Error carries the failure kind through the attempt pipeline so the job
// result can report what was tried and why it failed.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Errf builds a new attempt error of the given kind.
func Errf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapErr attaches a kind to an underlying cause.
func WrapErr(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the failure kind, or "" for untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
