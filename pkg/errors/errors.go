package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// Domain errors
	ErrorTypeValidation  ErrorType = "VALIDATION"
	ErrorTypeNotFound    ErrorType = "NOT_FOUND"
	ErrorTypeConflict    ErrorType = "CONFLICT"
	ErrorTypeUnsupported ErrorType = "UNSUPPORTED"

	// Application errors
	ErrorTypeConfiguration ErrorType = "CONFIGURATION"
	ErrorTypeTimeout       ErrorType = "TIMEOUT"
	ErrorTypeUnavailable   ErrorType = "UNAVAILABLE"

	// Infrastructure errors
	ErrorTypeDatabase ErrorType = "DATABASE"
	ErrorTypeExternal ErrorType = "EXTERNAL"
)

// BackoffHint tells a caller how soon a retryable failure is worth retrying.
type BackoffHint string

const (
	BackoffNone        BackoffHint = "none"
	BackoffImmediate   BackoffHint = "immediate"
	BackoffExponential BackoffHint = "exponential"
)

// AppError represents an application-specific error
type AppError struct {
	Type       ErrorType              `json:"type"`
	Message    string                 `json:"message"`
	Code       string                 `json:"code,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Retryable  bool                   `json:"retryable"`
	Backoff    BackoffHint            `json:"backoff,omitempty"`
	Cause      error                  `json:"-"`
	StackTrace string                 `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithCode adds an error code
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// WithDetail adds a single detail
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithCause wraps an underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Cause = err
	return e
}

// WithRetry marks the error as retryable with the given backoff.
func (e *AppError) WithRetry(backoff BackoffHint) *AppError {
	e.Retryable = true
	e.Backoff = backoff
	return e
}

// captureStackTrace captures the current stack trace
func captureStackTrace() string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	var stack strings.Builder
	for {
		frame, more := frames.Next()
		fmt.Fprintf(&stack, "%s:%d %s\n", frame.File, frame.Line, frame.Function)
		if !more {
			break
		}
	}
	return stack.String()
}

func newError(t ErrorType, message string) *AppError {
	return &AppError{
		Type:       t,
		Message:    message,
		Backoff:    BackoffNone,
		StackTrace: captureStackTrace(),
	}
}

// Constructor functions for common error types

// NewValidationError creates a validation error
func NewValidationError(message string) *AppError {
	return newError(ErrorTypeValidation, message)
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) *AppError {
	return newError(ErrorTypeNotFound, fmt.Sprintf("%s not found", resource))
}

// NewConflictError creates a conflict error. Conflicts are retried straight
// away because the competing write has already landed.
func NewConflictError(message string) *AppError {
	return newError(ErrorTypeConflict, message).WithRetry(BackoffImmediate)
}

// NewUnsupportedError creates an error for input this service does not handle
func NewUnsupportedError(message string) *AppError {
	return newError(ErrorTypeUnsupported, message)
}

// NewConfigurationError creates a configuration error
func NewConfigurationError(message string) *AppError {
	return newError(ErrorTypeConfiguration, message)
}

// NewTimeoutError creates a timeout error
func NewTimeoutError(operation string) *AppError {
	return newError(ErrorTypeTimeout, fmt.Sprintf("operation '%s' timed out", operation)).
		WithRetry(BackoffExponential)
}

// NewUnavailableError creates a service unavailable error
func NewUnavailableError(service string) *AppError {
	return newError(ErrorTypeUnavailable, fmt.Sprintf("service '%s' is unavailable", service)).
		WithRetry(BackoffExponential)
}

// NewDatabaseError creates a database error
func NewDatabaseError(operation string, err error) *AppError {
	return newError(ErrorTypeDatabase, fmt.Sprintf("database operation '%s' failed", operation)).
		WithCause(err)
}

// NewExternalError creates an external service error
func NewExternalError(service string, err error) *AppError {
	return newError(ErrorTypeExternal, fmt.Sprintf("external service '%s' error", service)).
		WithCause(err)
}

// retryableAWSCodes are service error codes that clear up on their own.
var retryableAWSCodes = map[string]bool{
	"ProvisionedThroughputExceededException": true,
	"ThrottlingException":                    true,
	"RequestLimitExceeded":                   true,
	"InternalServerError":                    true,
	"ServiceUnavailable":                     true,
	"TransactionInProgressException":         true,
}

// FromAWSError converts an AWS SDK error into an AppError. Conditional check
// failures become retryable conflicts, everything else an external error that
// is retried with exponential backoff.
func FromAWSError(service, operation string, err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr := GetAppError(err); appErr != nil {
		return appErr
	}

	if IsConditionalCheckFailed(err) {
		return NewConflictError(fmt.Sprintf("%s: conditional check failed", operation)).
			WithCode("ConditionalCheckFailed").
			WithCause(err)
	}

	appErr := NewExternalError(service, err).
		WithDetail("operation", operation).
		WithRetry(BackoffExponential)

	var ae smithy.APIError
	if errors.As(err, &ae) {
		appErr.WithCode(ae.ErrorCode())
		if !retryableAWSCodes[ae.ErrorCode()] && ae.ErrorFault() == smithy.FaultClient {
			appErr.Retryable = false
			appErr.Backoff = BackoffNone
		}
	}
	return appErr
}

// IsConditionalCheckFailed reports whether err is a conditional check failure,
// either from a single write or from any item of a cancelled transaction.
func IsConditionalCheckFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return true
	}
	var tce *types.TransactionCanceledException
	if errors.As(err, &tce) {
		for _, reason := range tce.CancellationReasons {
			if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
				return true
			}
		}
	}
	return false
}

// Helper functions

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError extracts AppError from an error chain
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// IsType checks if an error is of a specific type
func IsType(err error, errType ErrorType) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == errType
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return IsType(err, ErrorTypeNotFound)
}

// IsConflict checks if an error is a conflict error
func IsConflict(err error) bool {
	return IsType(err, ErrorTypeConflict)
}

// IsRetryable checks if an error is worth retrying
func IsRetryable(err error) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Retryable
}
