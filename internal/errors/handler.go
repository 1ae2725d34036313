/**
 * Error Handler for SqlProvider
 *
 * Implements the data-access error policy: domain errors propagate
 * unchanged after a debug log, everything else is wrapped into a typed
 * *Error and logged at error level. Also drives connection retries.
 *
 * Author: SqlProvider Team
 * Created: 2025-01-29
 */

package errors

import (
	"context"
	stderrors "errors"
	"time"
)

// RetryPolicy defines the retry behavior for retryable errors.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, the first one included
	MaxAttempts int

	// InitialDelay is the initial delay between retries
	InitialDelay time.Duration

	// MaxDelay is the maximum delay between retries
	MaxDelay time.Duration

	// Multiplier is the backoff multiplier
	Multiplier float64

	// Jitter adds randomness to prevent thundering herd
	Jitter bool
}

// DefaultRetryPolicy is used for connection failures when none is set.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts:  3,
	InitialDelay: 500 * time.Millisecond,
	MaxDelay:     10 * time.Second,
	Multiplier:   2.0,
	Jitter:       true,
}

// Handler applies the error policy for one component.
type Handler struct {
	logger Logger
	policy RetryPolicy
}

// Logger interface for error logging.
type Logger interface {
	Error(err error, msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Debug(msg string, fields ...interface{})
}

// NewHandler creates a new error handler.
func NewHandler(logger Logger) *Handler {
	return &Handler{
		logger: logger,
		policy: DefaultRetryPolicy,
	}
}

// SetRetryPolicy replaces the retry policy.
func (h *Handler) SetRetryPolicy(policy RetryPolicy) {
	h.policy = policy
}

// RetryPolicy returns the current retry policy.
func (h *Handler) RetryPolicy() RetryPolicy {
	return h.policy
}

// Translate converts err into a domain error for operation op.
// An error that already is (or wraps) an *Error is returned unchanged.
// Context cancellation is reported as ErrorTypeContext whatever the
// requested type.
func (h *Handler) Translate(op string, errorType ErrorType, message string, err error) error {
	return h.TranslateContext(context.Background(), op, errorType, message, err)
}

// TranslateContext is Translate for an operation run under ctx; the
// deadline of ctx, if any, is recorded on the wrapped error.
func (h *Handler) TranslateContext(ctx context.Context, op string, errorType ErrorType, message string, err error) error {
	if err == nil {
		return nil
	}

	var domain *Error
	if stderrors.As(err, &domain) {
		h.logger.Debug("Propagating data access error",
			"operation", op,
			"error_type", domain.Type.String(),
			"error", domain.Error(),
		)
		return err
	}

	wrapped := WrapWithContext(ctx, err, errorType, op, message)
	h.logError(wrapped)
	return wrapped
}

// Retry runs operation until it succeeds, returns a non-retryable error,
// or the policy's attempts are exhausted.
func (h *Handler) Retry(ctx context.Context, op string, operation func() error) error {
	if h.policy.MaxAttempts <= 1 {
		return operation()
	}

	randomization := 0.0
	if h.policy.Jitter {
		randomization = 0.25
	}
	config := &BackoffConfig{
		InitialInterval:     h.policy.InitialDelay,
		MaxInterval:         h.policy.MaxDelay,
		Multiplier:          h.policy.Multiplier,
		RandomizationFactor: randomization,
	}

	attempts := 0
	shouldRetry := func(err error) bool {
		attempts++
		if attempts >= h.policy.MaxAttempts || !GetErrorType(err).IsRetryable() {
			return false
		}
		h.logger.Warn("Retrying operation",
			"operation", op,
			"attempt", attempts,
			"max_attempts", h.policy.MaxAttempts,
			"error", err.Error(),
		)
		return true
	}

	err := RetryOperation(ctx, operation, config, shouldRetry)
	if err != nil && IsContextError(err) && TypeOf(err) == ErrorTypeUnknown {
		return New(ErrorTypeContext, op, "retry wait interrupted", err)
	}
	return err
}

// logError logs an error with appropriate context.
func (h *Handler) logError(err *Error) {
	fields := []interface{}{
		"error_type", err.Type.String(),
		"operation", err.Op,
	}

	for k, v := range err.Context {
		fields = append(fields, k, v)
	}

	h.logger.Error(err.Err, err.Op+" - "+err.Message, fields...)
}

// WrapWithContext wraps an error with deadline information from ctx.
func WrapWithContext(ctx context.Context, err error, errorType ErrorType, op, message string) *Error {
	if err == nil {
		return nil
	}

	var e *Error
	if stderrors.As(err, &e) {
		return e
	}

	if IsContextError(err) {
		errorType = ErrorTypeContext
	}

	wrapped := New(errorType, op, message, err)
	if deadline, ok := ctx.Deadline(); ok {
		wrapped.WithContext("deadline", deadline)
	}

	return wrapped
}
