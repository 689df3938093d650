// Package errors provides structured error handling with typed error codes.
//
// Error codes are organized into categories:
//   - General errors (1-99): Unknown and general errors
//   - Validation errors (100-199): Invalid parameters, orders and configuration
//   - Data errors (200-299): Bar loading and out-of-range lookback
//   - Indicator errors (300-399): Registration and warm-up errors
//   - Strategy errors (400-499): Strategy lookup, configuration and runtime errors
//   - Order errors (500-599): Order lookup and status transition errors
//   - Engine errors (600-699): Simulation loop misuse and result writing
//   - Callback errors (800-899): Callback execution failures
//
// Usage:
//
//	// Reject an order at submission
//	err := errors.Newf(errors.ErrCodeInvalidOrder, "order size must be positive, got %f", size)
//
//	// Check error code
//	if errors.HasCode(err, errors.ErrCodeEngineFinished) { ... }
//
//	// Indicator warm-up
//	if errors.IsNotReadyError(err) { ... }
package errors

import (
	"errors"
	"fmt"
)

// Error represents a structured error with an error code and message.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   nil,
	}
}

// Newf creates a new Error with the given code and formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   nil,
	}
}

// Wrap wraps an existing error with a new Error containing the given code and message.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf wraps an existing error with a new Error containing the given code and formatted message.
func Wrapf(code ErrorCode, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// GetCode extracts the ErrorCode from an error.
// Returns ErrCodeUnknown if no coded error is found in the chain.
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	var notReady *NotReadyError
	if errors.As(err, &notReady) {
		return ErrCodeIndicatorNotReady
	}

	var index *IndexError
	if errors.As(err, &index) {
		return ErrCodeIndexOutOfRange
	}

	return ErrCodeUnknown
}

// HasCode checks if an error has a specific ErrorCode.
func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// NotReadyError is returned when an indicator is read before its warm-up
// window has elapsed. The caller recovers by waiting for more bars.
type NotReadyError struct {
	Indicator string // Name of the indicator
	Required  int    // Bars needed before the first value
	Actual    int    // Bars seen so far
}

// NewNotReadyError creates a new NotReadyError.
func NewNotReadyError(indicator string, required, actual int) *NotReadyError {
	return &NotReadyError{
		Indicator: indicator,
		Required:  required,
		Actual:    actual,
	}
}

// Error implements the error interface.
func (e *NotReadyError) Error() string {
	return fmt.Sprintf("[%d] indicator %s not ready: requires %d bars, has %d",
		ErrCodeIndicatorNotReady, e.Indicator, e.Required, e.Actual)
}

// IsNotReadyError checks if an error is a NotReadyError.
func IsNotReadyError(err error) bool {
	var notReady *NotReadyError

	return errors.As(err, &notReady)
}

// IndexError is returned when a bar lookup falls outside the loaded history.
type IndexError struct {
	Index  int
	Length int
}

// NewIndexError creates a new IndexError.
func NewIndexError(index, length int) *IndexError {
	return &IndexError{
		Index:  index,
		Length: length,
	}
}

// Error implements the error interface.
func (e *IndexError) Error() string {
	return fmt.Sprintf("[%d] bar index %d out of range [0, %d)", ErrCodeIndexOutOfRange, e.Index, e.Length)
}

// IsIndexError checks if an error is an IndexError.
func IsIndexError(err error) bool {
	var index *IndexError

	return errors.As(err, &index)
}
