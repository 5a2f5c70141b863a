// Package apperr defines the error kinds returned by catalog, quote and
// appointment operations. Callers match kinds with errors.Is and show
// Message to users directly.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// Error carries one of the sentinel kinds plus an actionable message.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Validation reports malformed or missing input.
func Validation(format string, args ...any) error {
	return newf(ErrValidation, format, args...)
}

// NotFound reports an unknown identifier, e.g. NotFound("appointment", id).
func NotFound(what, id string) error {
	return newf(ErrNotFound, "%s %s not found", what, id)
}

// InvalidState reports a transition that is not legal from the current status.
func InvalidState(format string, args ...any) error {
	return newf(ErrInvalidState, format, args...)
}

// Conflict reports a concurrent modification of the same record.
func Conflict(format string, args ...any) error {
	return newf(ErrConflict, format, args...)
}

func Forbidden(format string, args ...any) error {
	return newf(ErrForbidden, format, args...)
}

func Unauthorized(format string, args ...any) error {
	return newf(ErrUnauthorized, format, args...)
}

// Message returns the user-facing text of err. Errors that are not *Error
// yield fallback so internal driver messages are never shown.
func Message(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return fallback
}
