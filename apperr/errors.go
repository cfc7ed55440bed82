// Package apperr defines the coded errors shared by the backend client,
// the view layer and the REST handlers.
package apperr

import (
	"errors"
	"fmt"
)

// Code categorizes an error.
type Code string

const (
	CodeUnknown         Code = "unknown"
	CodeNotFound        Code = "not_found"
	CodeInvalidArgument Code = "invalid_argument"
	CodeConflict        Code = "conflict"
	CodeEquipFailed     Code = "equip_failed"
	CodeUnavailable     Code = "unavailable"
	CodeInternal        Code = "internal"
)

// Error is an application error with a code and optional metadata.
type Error struct {
	Code    Code
	Message string
	Cause   error
	Meta    map[string]any
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// WithMeta attaches a metadata value and returns e.
func (e *Error) WithMeta(key string, value any) *Error {
	if e.Meta == nil {
		e.Meta = make(map[string]any)
	}
	e.Meta[key] = value
	return e
}

// New creates an error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps err with a message. An *Error cause keeps its code.
func Wrap(err error, message string) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return &Error{Code: appErr.Code, Message: message, Cause: err, Meta: copyMeta(appErr.Meta)}
	}
	return &Error{Code: CodeUnknown, Message: message, Cause: err}
}

// WrapWithCode wraps err and forces the given code.
func WrapWithCode(err error, code Code, message string) *Error {
	if err == nil {
		return nil
	}
	wrapped := Wrap(err, message)
	wrapped.Code = code
	return wrapped
}

func NotFound(message string) *Error        { return New(CodeNotFound, message) }
func InvalidArgument(message string) *Error { return New(CodeInvalidArgument, message) }
func Conflict(message string) *Error        { return New(CodeConflict, message) }

func InvalidArgumentf(format string, args ...any) *Error {
	return Newf(CodeInvalidArgument, format, args...)
}

// CodeOf returns the code of the first *Error in err's chain, or CodeUnknown.
func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

func IsNotFound(err error) bool        { return Is(err, CodeNotFound) }
func IsConflict(err error) bool        { return Is(err, CodeConflict) }
func IsInvalidArgument(err error) bool { return Is(err, CodeInvalidArgument) }
func IsEquipFailed(err error) bool     { return Is(err, CodeEquipFailed) }

func copyMeta(meta map[string]any) map[string]any {
	if meta == nil {
		return nil
	}
	out := make(map[string]any, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}
