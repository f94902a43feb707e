package service

import (
	"errors"
	"fmt"
)

// Error kinds. Every error a service returns on purpose wraps one of these.
var (
	ErrValidation   = errors.New("validation error")
	ErrUnauthorized = errors.New("bad credentials")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)

// Error carries a message that is safe to show to the client.
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

func newError(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
