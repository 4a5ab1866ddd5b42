// Package errors provides structured error types for netlens.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI, the HTTP service and the engine
//   - Machine-readable error codes for programmatic handling
//   - User-friendly messages for notifications
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input validation failures
//   - *_NOT_FOUND: Resource not found
//   - NETWORK_*, DETECTION_*: External call failures
//   - PRECONDITION_*: Operation requested before its inputs exist
//   - INTERNAL_*: Unexpected internal errors
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidAlgorithm, "unknown algorithm: %s", name)
//	if errors.Is(err, errors.ErrCodeInvalidAlgorithm) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeNetwork, origErr, "detect communities at %s", url)
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
	ErrCodeInvalidInput     Code = "INVALID_INPUT"
	ErrCodeInvalidGraph     Code = "INVALID_GRAPH"
	ErrCodeInvalidAlgorithm Code = "INVALID_ALGORITHM"
	ErrCodeInvalidMetric    Code = "INVALID_METRIC"
	ErrCodeInvalidFilter    Code = "INVALID_FILTER"
	ErrCodeInvalidFormat    Code = "INVALID_FORMAT"
	ErrCodeInvalidID        Code = "INVALID_ID"

	// Resource not found errors
	ErrCodeNotFound         Code = "NOT_FOUND"
	ErrCodeResearchNotFound Code = "RESEARCH_NOT_FOUND"
	ErrCodeSessionNotFound  Code = "SESSION_NOT_FOUND"

	// External call errors
	ErrCodeNetwork         Code = "NETWORK_ERROR"
	ErrCodeDetectionFailed Code = "DETECTION_FAILED"

	// State errors
	ErrCodePrecondition Code = "PRECONDITION_FAILED"

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
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// HTTPStatus maps an error code to the HTTP status the service responds with.
func HTTPStatus(err error) int {
	switch GetCode(err) {
	case ErrCodeInvalidInput, ErrCodeInvalidGraph, ErrCodeInvalidAlgorithm, ErrCodeInvalidMetric,
		ErrCodeInvalidFilter, ErrCodeInvalidFormat, ErrCodeInvalidID, ErrCodeUnsupported:
		return 400
	case ErrCodeNotFound, ErrCodeResearchNotFound, ErrCodeSessionNotFound:
		return 404
	case ErrCodePrecondition:
		return 409
	case ErrCodeNetwork, ErrCodeDetectionFailed:
		return 502
	default:
		return 500
	}
}
