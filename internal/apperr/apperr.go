// Package apperr defines coded application errors and their HTTP mapping.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a class of failure.
type Code string

const (
	ErrInternal          Code = "INTERNAL_ERROR"
	ErrInvalidInput      Code = "INVALID_INPUT"
	ErrUnauthorized      Code = "UNAUTHORIZED"
	ErrForbidden         Code = "FORBIDDEN"
	ErrNotFound          Code = "NOT_FOUND"
	ErrEntitlementDenied Code = "ENTITLEMENT_DENIED"
	ErrRateLimited       Code = "RATE_LIMITED"
	ErrUpstream          Code = "UPSTREAM_ERROR"
)

// Error is an application error with a code and a user-facing message.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a new coded error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap wraps err with a code and message.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf returns the code of the first *Error in err's chain, or ErrInternal.
func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternal
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Code == code
}

// MessageOf returns the user-facing message of err. Errors without a code
// never leak their text.
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "Something went wrong, please try again later"
}

// HTTPStatus maps an error to the status a handler should answer with.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case ErrInvalidInput:
		return http.StatusBadRequest
	case ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrForbidden, ErrEntitlementDenied:
		return http.StatusForbidden
	case ErrNotFound:
		return http.StatusNotFound
	case ErrRateLimited:
		return http.StatusTooManyRequests
	case ErrUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
