package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies the kind of fault raised anywhere in the request pipeline.
type Code string

const (
	CodeValidationFailed Code = "VALIDATION_FAILED"
	CodeBadRequest       Code = "BAD_REQUEST"
	CodeUnauthenticated  Code = "UNAUTHENTICATED"
	CodeNotFound         Code = "NOT_FOUND"
	CodeConflict         Code = "CONFLICT"
	CodeInternalError    Code = "INTERNAL_ERROR"
)

// HTTPStatusMap maps fault codes to HTTP status codes.
var HTTPStatusMap = map[Code]int{
	CodeValidationFailed: http.StatusBadRequest,
	CodeBadRequest:       http.StatusBadRequest,
	CodeUnauthenticated:  http.StatusUnauthorized,
	CodeNotFound:         http.StatusNotFound,
	CodeConflict:         http.StatusConflict,
	CodeInternalError:    http.StatusInternalServerError,
}

// FieldViolation describes one failed rule on one request field.
type FieldViolation struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// Error is a tagged fault carrying everything the exception mapper needs to
// render a response. Cause is logged server-side and never sent to clients.
type Error struct {
	Code    Code
	Message string
	Details []FieldViolation
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// HTTPStatus returns the HTTP status code for this fault.
func (e *Error) HTTPStatus() int {
	if status, ok := HTTPStatusMap[e.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// New creates a fault without an underlying cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates a fault that keeps cause for logging.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func Validation(message string, details []FieldViolation) *Error {
	return &Error{Code: CodeValidationFailed, Message: message, Details: details}
}

func BadRequest(message string) *Error      { return New(CodeBadRequest, message) }
func Unauthenticated(message string) *Error { return New(CodeUnauthenticated, message) }
func NotFound(message string) *Error        { return New(CodeNotFound, message) }
func Conflict(message string) *Error        { return New(CodeConflict, message) }

// Internal wraps an unexpected failure. The message is safe for clients.
func Internal(message string, cause error) *Error {
	return Wrap(CodeInternalError, message, cause)
}

// From returns err unchanged when it already is (or wraps) an *Error and
// otherwise classifies it as an internal error.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("internal server error", err)
}

// Is reports whether err carries the given fault code.
func Is(err error, code Code) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Code == code
}
