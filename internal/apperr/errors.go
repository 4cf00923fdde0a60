package apperr

import (
	"errors"
	"net/http"
)

const (
	CodeInvalidPayload = "invalid_payload"
	CodeValidation     = "validation_error"
	CodeUnauthorized   = "unauthorized"
	CodeForbidden      = "forbidden"
	CodeNotFound       = "not_found"
	CodeConflict       = "conflict"
	CodePartialWrite   = "partial_write"
	CodeUnavailable    = "unavailable"
	CodeInternal       = "internal_server_error"
)

// AppError carries an HTTP status and a stable code from the service layer
// to the handlers.
type AppError struct {
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

func New(status int, code, msg string, err error) *AppError {
	return &AppError{StatusCode: status, Code: code, Message: msg, Err: err}
}

func BadRequest(msg string, err error) *AppError {
	return New(http.StatusBadRequest, CodeInvalidPayload, msg, err)
}

func Forbidden(msg string) *AppError {
	return New(http.StatusForbidden, CodeForbidden, msg, nil)
}

// As extracts an *AppError, or wraps err as an internal error.
func As(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return New(http.StatusInternalServerError, CodeInternal, "An unexpected error occurred", err)
}
