package domain

import "fmt"

// NotFoundError indicates a table, column, or job is absent from the
// snapshot and not discoverable by fallback scan.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// ValidationError indicates invalid input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// RefreshError indicates a snapshot refresh failed; the previous
// snapshot remains fully serviceable.
type RefreshError struct {
	Message string
	Cause   error
}

func (e *RefreshError) Error() string { return e.Message }

// Unwrap returns the underlying collection failure.
func (e *RefreshError) Unwrap() error { return e.Cause }

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrRefresh creates a RefreshError wrapping the collection failure.
func ErrRefresh(cause error, format string, args ...interface{}) *RefreshError {
	return &RefreshError{Message: fmt.Sprintf(format, args...), Cause: cause}
}
