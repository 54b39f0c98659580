package apperr

import (
	"errors"
	"net/http"
)

// Error carries an HTTP status alongside a user-facing message. Services
// return these; the HTTP layer translates them uniformly.
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string { return e.Message }

func New(code int, message string) *Error {
	return &Error{Code: code, Message: message}
}

func BadRequest(message string) *Error { return New(http.StatusBadRequest, message) }
func Forbidden(message string) *Error  { return New(http.StatusForbidden, message) }
func NotFound(message string) *Error   { return New(http.StatusNotFound, message) }
func Internal(message string) *Error   { return New(http.StatusInternalServerError, message) }

// StatusOf extracts the HTTP status for err, defaulting to 500 for anything
// that is not an *Error.
func StatusOf(err error) int {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return http.StatusInternalServerError
}

// MessageOf returns the user-facing message for err. Unexpected errors are
// masked so internals never leak into responses.
func MessageOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Message
	}
	return "internal server error"
}
