// Package apperr holds the error taxonomy shared by the services. Handlers
// turn an *Error into a JSON response through helper.FromError.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindValidation      Kind = "VALIDATION_ERROR"
	KindNotFound        Kind = "NOT_FOUND"
	KindForbidden       Kind = "FORBIDDEN"
	KindInvalidState    Kind = "INVALID_STATE"
	KindConflict        Kind = "CONFLICT"
	KindUnauthorized    Kind = "UNAUTHORIZED"
	KindRoleMismatch    Kind = "ROLE_MISMATCH"
	KindInvalidToken    Kind = "INVALID_TOKEN"
	KindTooManyRequests Kind = "TOO_MANY_REQUESTS"
	KindInternal        Kind = "INTERNAL_ERROR"
)

type Error struct {
	Kind    Kind
	Message string
	// Extra fields merged into the error body (e.g. the conflicting assignment)
	Extra map[string]any
	Err   error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind so callers can write errors.Is(err, apperr.ErrNotFound).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Kind == e.Kind
}

func (e *Error) With(key string, value any) *Error {
	if e.Extra == nil {
		e.Extra = map[string]any{}
	}
	e.Extra[key] = value
	return e
}

func (e *Error) Status() int {
	switch e.Kind {
	case KindValidation, KindInvalidState, KindRoleMismatch, KindInvalidToken:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindTooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Sentinels for errors.Is
var (
	ErrValidation      = &Error{Kind: KindValidation}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrForbidden       = &Error{Kind: KindForbidden}
	ErrInvalidState    = &Error{Kind: KindInvalidState}
	ErrConflict        = &Error{Kind: KindConflict}
	ErrUnauthorized    = &Error{Kind: KindUnauthorized}
	ErrRoleMismatch    = &Error{Kind: KindRoleMismatch}
	ErrInvalidToken    = &Error{Kind: KindInvalidToken}
	ErrTooManyRequests = &Error{Kind: KindTooManyRequests}
	ErrInternal        = &Error{Kind: KindInternal}
)

func Validation(msg string) *Error      { return &Error{Kind: KindValidation, Message: msg} }
func NotFound(msg string) *Error        { return &Error{Kind: KindNotFound, Message: msg} }
func Forbidden(msg string) *Error       { return &Error{Kind: KindForbidden, Message: msg} }
func InvalidState(msg string) *Error    { return &Error{Kind: KindInvalidState, Message: msg} }
func Conflict(msg string) *Error        { return &Error{Kind: KindConflict, Message: msg} }
func Unauthorized(msg string) *Error    { return &Error{Kind: KindUnauthorized, Message: msg} }
func RoleMismatch(msg string) *Error    { return &Error{Kind: KindRoleMismatch, Message: msg} }
func InvalidToken(msg string) *Error    { return &Error{Kind: KindInvalidToken, Message: msg} }
func TooManyRequests(msg string) *Error { return &Error{Kind: KindTooManyRequests, Message: msg} }

// Internal wraps an infrastructure failure; msg is what the client sees.
func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// KindOf returns the kind of err, KindInternal for foreign errors.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}
