package http

import (
	"fmt"
	"net/http"
)

// AppError is an error that already knows its HTTP status and the code the
// client sees in the response envelope.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func newAppError(code string, status int, message string) *AppError {
	return &AppError{Code: code, Message: message, Status: status}
}

// WithField names the request field that was rejected.
func (e *AppError) WithField(field string) *AppError {
	e.Field = field
	return e
}

// WithError keeps the cause for logs; it is never serialised.
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

func NotFoundError(message string) *AppError {
	return newAppError("ERR_NOT_FOUND", http.StatusNotFound, message)
}

func NotFoundErrorf(format string, a ...interface{}) *AppError {
	return NotFoundError(fmt.Sprintf(format, a...))
}

func BadRequestError(message string) *AppError {
	return newAppError("ERR_BAD_REQUEST", http.StatusBadRequest, message)
}

// UnavailableError is returned while an upstream (market, store) is down.
func UnavailableError(message string) *AppError {
	return newAppError("ERR_UNAVAILABLE", http.StatusServiceUnavailable, message)
}

func InternalError(message string) *AppError {
	return newAppError("ERR_INTERNAL", http.StatusInternalServerError, message)
}
