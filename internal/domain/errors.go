package domain

import (
	"fmt"
)

// AppError represents a domain-specific error with structured information
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	Cause   error  `json:"-"` // Original error, not serialized
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error wrapping
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Error codes for different error categories
const (
	// ErrInvalidRegex is reported when a url-filter pattern cannot be
	// compiled into the automaton; it aborts the whole compilation.
	ErrInvalidRegex = "INVALID_REGEX"
	// ErrInvalidInput is reported for structurally malformed rules.
	ErrInvalidInput = "INVALID_INPUT"
	// ErrValidationFailed is reported when rule-list validation fails.
	ErrValidationFailed = "VALIDATION_FAILED"
)

// NewAppError creates a new AppError with the specified parameters
func NewAppError(code, message string, details any) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// NewAppErrorWithCause creates a new AppError with underlying cause
func NewAppErrorWithCause(code, message string, cause error, details any) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Details: details,
		Cause:   cause,
	}
}

// IsInvalidRegex checks if the error is a pattern compilation error
func IsInvalidRegex(err error) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code == ErrInvalidRegex
	}
	return false
}

// IsValidationError checks if the error is a validation error
func IsValidationError(err error) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code == ErrValidationFailed
	}
	return false
}
