// Package errors provides structured error types for TopDraw.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI, the HTTP service and the library
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages suitable for direct display
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Script bridge failures use one code per failure kind:
//   - REGISTRATION: class-name or member-name collisions while registering
//   - EVALUATION: syntax errors and uncaught script exceptions
//   - PROPERTY_COERCION / METHOD_ARGUMENT: values that cannot be converted
//   - READ_ONLY: writes to read-only properties
//   - RESOURCE: degenerate or oversized canvases, allocation failures
//
// # Usage
//
//	err := errors.New(errors.ErrCodeReadOnly, "property %q of %s is read-only", name, class)
//	if errors.Is(err, errors.ErrCodeReadOnly) {
//	    // Handle violation
//	}
//
//	// Evaluation failures carry a 1-based line number when known
//	var se *errors.ScriptError
//	if stderrors.As(err, &se) {
//	    fmt.Println(se.Line)
//	}
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"
	ErrCodeInvalidSize   Code = "INVALID_SIZE"
	ErrCodeInvalidPath   Code = "INVALID_PATH"

	// Script bridge errors
	ErrCodeRegistration     Code = "REGISTRATION"
	ErrCodeEvaluation       Code = "EVALUATION"
	ErrCodePropertyCoercion Code = "PROPERTY_COERCION"
	ErrCodeMethodArgument   Code = "METHOD_ARGUMENT"
	ErrCodeReadOnly         Code = "READ_ONLY"
	ErrCodeUnknownProperty  Code = "UNKNOWN_PROPERTY"
	ErrCodeUnknownMethod    Code = "UNKNOWN_METHOD"
	ErrCodeResource         Code = "RESOURCE"

	// Resource not found errors
	ErrCodeNotFound Code = "NOT_FOUND"

	// Network errors
	ErrCodeTimeout Code = "TIMEOUT"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error or *ScriptError with a
// matching code.
func Is(err error, code Code) bool {
	for err != nil {
		switch e := err.(type) {
		case *Error:
			if e.Code == code {
				return true
			}
		case *ScriptError:
			if code == ErrCodeEvaluation {
				return true
			}
		}
		err = errors.Unwrap(err)
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error or *ScriptError.
func GetCode(err error) Code {
	for err != nil {
		switch e := err.(type) {
		case *Error:
			return e.Code
		case *ScriptError:
			return e.Code()
		}
		err = errors.Unwrap(err)
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For *ScriptError, returns the script message with its line, when known.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var se *ScriptError
	if errors.As(err, &se) {
		return se.Error()
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// ScriptError is returned when evaluating a script fails, either because the
// source does not parse or because an exception escaped the script.
type ScriptError struct {
	Message string // Message as the script engine reported it
	Line    int    // 1-based source line, 0 when unknown
	Cause   error  // Bridge error that raised the exception (optional)
}

// Error implements the error interface.
func (e *ScriptError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Unwrap returns the bridge error behind the exception, if any.
func (e *ScriptError) Unwrap() error {
	return e.Cause
}

// Code returns the error code for this error type.
func (e *ScriptError) Code() Code {
	return ErrCodeEvaluation
}

// LineOf returns the script line carried by err, or 0.
func LineOf(err error) int {
	var se *ScriptError
	if errors.As(err, &se) {
		return se.Line
	}
	return 0
}
