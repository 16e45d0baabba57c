package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error carries the HTTP status and the user-facing message for a failed operation.
type Error struct {
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("api error (%d)", e.Status)
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, message string, err error) *Error {
	return &Error{Status: status, Message: message, Err: err}
}

func BadRequest(message string) *Error { return New(http.StatusBadRequest, message, nil) }

func NotFound(message string) *Error { return New(http.StatusNotFound, message, nil) }

// As returns the *Error in err's chain, or a 500 wrapping err.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return New(http.StatusInternalServerError, "Internal server error", err)
}
