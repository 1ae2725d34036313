package dataprovider

import "github.com/VatsalSy/SqlProvider/internal/errors"

// Error is the error type returned by providers and sessions.
type Error = errors.Error

// ErrorType classifies an Error.
type ErrorType = errors.ErrorType

// Error classes.
const (
	ErrConnectionFailed = errors.ErrorTypeConnectionFailed
	ErrTransactionState = errors.ErrorTypeTransactionState
	ErrCommandFailed    = errors.ErrorTypeCommandFailed
	ErrQueryFailed      = errors.ErrorTypeQueryFailed
	ErrFormatting       = errors.ErrorTypeFormatting
	ErrConfiguration    = errors.ErrorTypeConfiguration
	ErrContext          = errors.ErrorTypeContext
)

// ErrorTypeOf returns the class of err, or the unknown class when err did
// not come from this package.
func ErrorTypeOf(err error) ErrorType {
	return errors.GetErrorType(err)
}
