package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes for the failure modes callers are expected to branch on.
// Everything else is an internal error.
const (
	CodeNotFound            = "not_found"
	CodeMalformedCompletion = "malformed_completion"
	CodePreconditionFailed  = "precondition_failed"
	CodeCompilationRejected = "compilation_rejected"
	CodeServiceUnavailable  = "service_unavailable"
	CodeInvalidInput        = "invalid_input"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func NotFound(format string, args ...interface{}) *Error {
	return New(http.StatusNotFound, CodeNotFound, fmt.Errorf(format, args...))
}

func MalformedCompletion(format string, args ...interface{}) *Error {
	return New(http.StatusBadGateway, CodeMalformedCompletion, fmt.Errorf(format, args...))
}

func PreconditionFailed(format string, args ...interface{}) *Error {
	return New(http.StatusConflict, CodePreconditionFailed, fmt.Errorf(format, args...))
}

func CompilationRejected(format string, args ...interface{}) *Error {
	return New(http.StatusUnprocessableEntity, CodeCompilationRejected, fmt.Errorf(format, args...))
}

func ServiceUnavailable(format string, args ...interface{}) *Error {
	return New(http.StatusServiceUnavailable, CodeServiceUnavailable, fmt.Errorf(format, args...))
}

func InvalidInput(format string, args ...interface{}) *Error {
	return New(http.StatusBadRequest, CodeInvalidInput, fmt.Errorf(format, args...))
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code string) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}

// HTTPStatus maps err to a response status, defaulting to 500 for
// errors that carry no apperr.Error.
func HTTPStatus(err error) int {
	var ae *Error
	if errors.As(err, &ae) && ae.Status != 0 {
		return ae.Status
	}
	return http.StatusInternalServerError
}
