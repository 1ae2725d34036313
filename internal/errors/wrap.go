/**
 * Error Wrapping Utilities for SqlProvider
 *
 * Author: SqlProvider Team
 * Created: 2025-01-30
 */

package errors

import (
	"errors"
	"fmt"
)

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// NewSimple creates a simple error without the full Error struct.
func NewSimple(message string) error {
	return errors.New(message)
}

// Errorf creates a formatted error.
func Errorf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}

// WrapTyped wraps an error with a specific error type.
func WrapTyped(errorType ErrorType, op string, err error) *Error {
	return New(errorType, op, "", err)
}

// AsError checks if an error is, or wraps, an *Error and assigns it.
func AsError(err error, target **Error) bool {
	if err == nil {
		return false
	}
	return errors.As(err, target)
}

// IsType reports whether err is a domain error of the given type.
func IsType(err error, errorType ErrorType) bool {
	return errors.Is(err, Kind(errorType))
}
