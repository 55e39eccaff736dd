// Package apperr defines the typed error kinds shared by the domain services
// and the HTTP transport.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindInvalidWeight        Kind = "invalid_weight"
	KindInvalidScore         Kind = "invalid_score"
	KindIncompleteAllocation Kind = "incomplete_allocation"
	KindMissingScore         Kind = "missing_score"
	KindValidationFailed     Kind = "validation_failed"
	KindAlreadyLocked        Kind = "already_locked"
	KindNotOwner             Kind = "not_owner"
	KindForbidden            Kind = "forbidden"
	KindUnauthenticated      Kind = "unauthenticated"
	KindNotFound             Kind = "not_found"
	KindUnavailable          Kind = "unavailable"
	KindInvalidTransition    Kind = "invalid_transition"
	KindInvalidInput         Kind = "invalid_input"
	KindConflict             Kind = "conflict"
	KindInternal             Kind = "internal"
)

// Error carries a Kind plus a human readable message. Two errors match under
// errors.Is when their kinds are equal.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message != "" {
		return e.Message + ": " + e.Err.Error()
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// WithMessage returns a copy of the error with a different message, keeping
// kind and cause.
func (e *Error) WithMessage(format string, args ...any) *Error {
	return &Error{Kind: e.Kind, Message: fmt.Sprintf(format, args...), Err: e.Err}
}

// Unavailable wraps a persistence failure. Callers stop at the first one so
// that nothing is written past a store error. A nil err stays nil.
func Unavailable(err error) error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return &Error{Kind: KindUnavailable, Message: "storage unavailable", Err: err}
}

// KindOf reports the kind of the outermost *Error in the chain, or
// KindInternal for untyped errors.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// MessageOf returns the message of the outermost *Error without its cause.
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return "internal error"
}

func HTTPStatus(kind Kind) int {
	switch kind {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindInvalidWeight, KindInvalidScore, KindIncompleteAllocation, KindMissingScore, KindValidationFailed:
		return http.StatusUnprocessableEntity
	case KindAlreadyLocked, KindConflict, KindInvalidTransition:
		return http.StatusConflict
	case KindNotOwner, KindForbidden:
		return http.StatusForbidden
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
