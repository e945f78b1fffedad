// Package exception provides the typed error used throughout the feedmart
// pipeline. A BatchError categorizes failures as retryable, skippable, or
// fatal, which drives the chunk engine's retry and skip policies.
package exception

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// BatchError is a custom error type for failures during pipeline processing.
// It holds the module where the error occurred, a message, the wrapped
// original error, and flags indicating whether it is retryable or skippable.
type BatchError struct {
	// Module indicates where the error occurred (e.g., "reader", "transform", "writer", "config").
	Module string
	// Message is a concise description of the error.
	Message string
	// OriginalErr is the wrapped original error.
	OriginalErr error
	// isRetryable indicates whether the operation may succeed if repeated.
	isRetryable bool
	// isSkippable indicates whether the offending item may be dropped.
	isSkippable bool
	// StackTrace is the stack trace captured at construction time.
	StackTrace string
}

// NewBatchError creates a new BatchError instance.
// module: The module where the error occurred.
// message: The error message.
// originalErr: The original error to wrap.
// isSkippable: Whether the offending item may be skipped.
// isRetryable: Whether the operation may be retried.
func NewBatchError(module, message string, originalErr error, isSkippable, isRetryable bool) *BatchError {
	buf := make([]byte, 2048)
	n := runtime.Stack(buf, false)

	return &BatchError{
		Module:      module,
		Message:     message,
		OriginalErr: originalErr,
		isRetryable: isRetryable,
		isSkippable: isSkippable,
		StackTrace:  string(buf[:n]),
	}
}

// Error implements the error interface.
func (e *BatchError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Module, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("[%s] %s", e.Module, e.Message)
}

// Unwrap returns the original error for errors.Unwrap.
func (e *BatchError) Unwrap() error {
	return e.OriginalErr
}

// IsRetryable returns whether this error is retryable.
func (e *BatchError) IsRetryable() bool {
	return e.isRetryable
}

// IsSkippable returns whether this error is skippable.
func (e *BatchError) IsSkippable() bool {
	return e.isSkippable
}

// IsBatchError determines if the given error is of type BatchError.
func IsBatchError(err error) bool {
	if err == nil {
		return false
	}
	var be *BatchError
	return errors.As(err, &be)
}

// IsRetryable reports whether an arbitrary error should be retried.
// For a BatchError the flag takes precedence; otherwise common transient
// failure signatures in the message are matched.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var be *BatchError
	if errors.As(err, &be) {
		return be.IsRetryable()
	}
	errStr := err.Error()
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset")
}

// IsSkippable reports whether an arbitrary error allows the offending item
// to be dropped. For a BatchError the flag takes precedence; duplicate-key
// violations from the store are always skippable.
func IsSkippable(err error) bool {
	if err == nil {
		return false
	}
	var be *BatchError
	if errors.As(err, &be) {
		return be.IsSkippable()
	}
	return IsDuplicateKey(err)
}

// IsDuplicateKey determines whether an error is a uniqueness-constraint
// violation. Matches the error signatures of the postgres, mysql, and sqlite
// drivers as well as gorm's own sentinel.
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "duplicate key value violates unique constraint") || // postgres
		strings.Contains(errStr, "Duplicate entry") || // mysql
		strings.Contains(errStr, "UNIQUE constraint failed") || // sqlite
		strings.Contains(errStr, "duplicated key not allowed")
}

// ExtractErrorMessage extracts the error message string from an error.
// For BatchError it returns the cleaner Message field; otherwise the
// standard Error() string.
func ExtractErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var be *BatchError
	if errors.As(err, &be) {
		return be.Message
	}
	return err.Error()
}
