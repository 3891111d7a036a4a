package errors

import (
	"fmt"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:    appErr.Code,
			Message: message,
			Cause:   appErr,
		}
	}
	return &AppError{
		Code:    CodeInternalError,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WithCode adds an error code to an existing error
func WithCode(code string, err error) error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:    code,
			Message: appErr.Message,
			Cause:   appErr.Cause,
		}
	}
	return &AppError{
		Code:    code,
		Message: err.Error(),
		Cause:   err,
	}
}

// GetCode returns the error code if it's an AppError, otherwise "UNKNOWN"
func GetCode(err error) string {
	for err != nil {
		if appErr, ok := err.(*AppError); ok {
			return appErr.Code
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return "UNKNOWN"
}

// Predefined error codes
const (
	CodeConfigInvalid = "CONFIG_INVALID"
	CodeDatabaseError = "DATABASE_ERROR"
	CodeInternalError = "INTERNAL_ERROR"

	// Request error taxonomy; always machine-readable to the caller.
	CodeInvalidRequest        = "INVALID_REQUEST"
	CodeInsufficientVariables = "INSUFFICIENT_VARIABLES"
	CodeInvalidMethod         = "INVALID_METHOD"
	CodeInvalidThreshold      = "INVALID_THRESHOLD"
	CodeInvalidDateRange      = "INVALID_DATE_RANGE"
	CodeDataUnavailable       = "DATA_UNAVAILABLE"
	CodeTimeout               = "TIMEOUT"
)

// Common error constructors
func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

func DatabaseError(message string) *AppError {
	return New(CodeDatabaseError, message)
}

func InternalError(message string) *AppError {
	return New(CodeInternalError, message)
}

func DataUnavailable(variable string, cause error) *AppError {
	return &AppError{
		Code:    CodeDataUnavailable,
		Message: fmt.Sprintf("series unavailable for variable %s", variable),
		Cause:   cause,
	}
}

func Timeout(message string, cause error) *AppError {
	return &AppError{
		Code:    CodeTimeout,
		Message: message,
		Cause:   cause,
	}
}
