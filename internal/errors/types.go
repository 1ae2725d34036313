/**
 * Error Types for SqlProvider
 *
 * Defines the data-access error taxonomy: one structured error type whose
 * ErrorType says which part of the connection/command lifecycle failed.
 *
 * Author: SqlProvider Team
 * Created: 2025-01-29
 * Update History:
 * - 2025-02-11: Re-targeted error kinds to connection/transaction/command failures
 */

package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the category of error.
type ErrorType int

const (
	// ErrorTypeUnknown represents an unclassified error
	ErrorTypeUnknown ErrorType = iota

	// ErrorTypeConnectionFailed covers opening, pinging and closing connections
	ErrorTypeConnectionFailed

	// ErrorTypeTransactionState covers begin/commit/rollback failures
	ErrorTypeTransactionState

	// ErrorTypeCommandFailed covers non-query command execution
	ErrorTypeCommandFailed

	// ErrorTypeQueryFailed covers scalar and result-set queries
	ErrorTypeQueryFailed

	// ErrorTypeFormatting covers parameter binding and SQL text generation
	ErrorTypeFormatting

	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration

	// ErrorTypeContext represents context cancellation or timeout
	ErrorTypeContext
)

// String returns the string representation of ErrorType.
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeConnectionFailed:
		return "ConnectionFailed"
	case ErrorTypeTransactionState:
		return "TransactionState"
	case ErrorTypeCommandFailed:
		return "CommandFailed"
	case ErrorTypeQueryFailed:
		return "QueryFailed"
	case ErrorTypeFormatting:
		return "Formatting"
	case ErrorTypeConfiguration:
		return "Configuration"
	case ErrorTypeContext:
		return "Context"
	default:
		return "Unknown"
	}
}

// IsRetryable returns whether the error type is retryable.
// Only connection failures are; commands are not replayed because they may
// have partially applied.
func (et ErrorType) IsRetryable() bool {
	return et == ErrorTypeConnectionFailed
}

// Error represents a structured data-access error.
type Error struct {
	// Timestamp when the error occurred
	Timestamp time.Time

	// Err is the underlying error
	Err error

	// Context contains additional context information
	Context map[string]interface{}

	// Op is the operation being performed (OpenConnection, ExecuteCommand, ...)
	Op string

	// Message is the human readable description
	Message string

	// Type categorizes the error
	Type ErrorType
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "operation failed"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Type, e.Op, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Type, e.Op, msg)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same type.
// It lets callers match kinds with errors.Is(err, &Error{Type: ...}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Type == e.Type && (t.Op == "" || t.Op == e.Op)
}

// IsRetryable returns whether the error is retryable.
func (e *Error) IsRetryable() bool {
	return e.Type.IsRetryable()
}

// New creates a new Error.
func New(errorType ErrorType, op, message string, err error) *Error {
	return &Error{
		Type:      errorType,
		Op:        op,
		Message:   message,
		Err:       err,
		Timestamp: time.Now(),
		Context:   make(map[string]interface{}),
	}
}

// WithContext adds context information.
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// Kind returns a bare *Error usable as an errors.Is target.
func Kind(errorType ErrorType) *Error {
	return &Error{Type: errorType}
}

// TypeOf returns the ErrorType of err, or ErrorTypeUnknown when err is not
// a domain error.
func TypeOf(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// ErrorBatch represents a collection of errors from batch operations.
type ErrorBatch struct {
	Op     string
	Errors []*Error
}

// Error implements the error interface for ErrorBatch.
func (eb *ErrorBatch) Error() string {
	if len(eb.Errors) == 0 {
		return fmt.Sprintf("%s: no errors", eb.Op)
	}
	return fmt.Sprintf("%s: %d errors occurred", eb.Op, len(eb.Errors))
}

// Add adds an error to the batch.
func (eb *ErrorBatch) Add(err *Error) {
	eb.Errors = append(eb.Errors, err)
}

// HasErrors returns whether the batch contains any errors.
func (eb *ErrorBatch) HasErrors() bool {
	return len(eb.Errors) > 0
}

// ErrOrNil returns the batch as an error, or nil when it is empty.
func (eb *ErrorBatch) ErrOrNil() error {
	if !eb.HasErrors() {
		return nil
	}
	return eb
}

// ErrorsByType groups errors by their type.
func (eb *ErrorBatch) ErrorsByType() map[ErrorType][]*Error {
	grouped := make(map[ErrorType][]*Error)
	for _, err := range eb.Errors {
		grouped[err.Type] = append(grouped[err.Type], err)
	}
	return grouped
}

// IsContextError checks if the error is due to context cancellation.
func IsContextError(err error) bool {
	if err == nil {
		return false
	}
	return stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)
}

// GetErrorType attempts to determine the error type from a generic error.
func GetErrorType(err error) ErrorType {
	if err == nil {
		return ErrorTypeUnknown
	}

	if t := TypeOf(err); t != ErrorTypeUnknown {
		return t
	}

	if IsContextError(err) {
		return ErrorTypeContext
	}

	return ErrorTypeUnknown
}
