// Package apperrors carries machine-readable error codes from the command
// handlers up to the HTTP layer.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeUnknown      Code = "UNKNOWN"
	CodeValidation   Code = "VALIDATION_FAILED"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"
	CodeNotFound     Code = "NOT_FOUND"
	CodeConflict     Code = "CONFLICT"
	CodeAccountLock  Code = "ACCOUNT_LOCKED"
	CodeTooLarge     Code = "PAYLOAD_TOO_LARGE"
)

// HTTPStatus maps a code to the response status.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeUnauthorized, CodeAccountLock:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain error with a code and a message safe to show to clients.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error with the same code, so sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Code == e.Code && (t.Message == "" || t.Message == e.Message)
	}
	return false
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Sentinels for errors.Is checks; they match any error with the same code.
var (
	ErrValidation   = &Error{Code: CodeValidation}
	ErrUnauthorized = &Error{Code: CodeUnauthorized}
	ErrForbidden    = &Error{Code: CodeForbidden}
	ErrNotFound     = &Error{Code: CodeNotFound}
	ErrConflict     = &Error{Code: CodeConflict}
)

func Validation(format string, args ...any) *Error {
	return Newf(CodeValidation, format, args...)
}

func Forbidden(message string) *Error {
	return New(CodeForbidden, message)
}

func NotFound(what string) *Error {
	return Newf(CodeNotFound, "%s not found", what)
}

func Conflict(format string, args ...any) *Error {
	return Newf(CodeConflict, format, args...)
}

// CodeOf extracts the code of err, defaulting to CodeUnknown.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return CodeNotFound
	}
	return CodeUnknown
}

// Wrap turns a storage error into a domain error. gorm.ErrRecordNotFound becomes
// NOT_FOUND for what, a duplicated key CONFLICT; anything else keeps its cause
// behind CodeUnknown.
func Wrap(what string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &Error{Code: CodeNotFound, Message: what + " not found", Cause: err}
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return &Error{Code: CodeConflict, Message: what + " already exists", Cause: err}
	}
	return &Error{Code: CodeUnknown, Message: "failed to load " + what, Cause: err}
}
