package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestAppError_Constructors(t *testing.T) {
	tests := []struct {
		name      string
		err       *AppError
		errType   ErrorType
		retryable bool
		backoff   BackoffHint
	}{
		{"validation", NewValidationError("bad input"), ErrorTypeValidation, false, BackoffNone},
		{"not found", NewNotFoundError("service 42"), ErrorTypeNotFound, false, BackoffNone},
		{"conflict", NewConflictError("version moved"), ErrorTypeConflict, true, BackoffImmediate},
		{"unsupported", NewUnsupportedError("no transformer"), ErrorTypeUnsupported, false, BackoffNone},
		{"timeout", NewTimeoutError("sync"), ErrorTypeTimeout, true, BackoffExponential},
		{"unavailable", NewUnavailableError("dos"), ErrorTypeUnavailable, true, BackoffExponential},
		{"configuration", NewConfigurationError("missing table"), ErrorTypeConfiguration, false, BackoffNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.errType, tt.err.Type)
			assert.Equal(t, tt.retryable, tt.err.Retryable)
			assert.Equal(t, tt.backoff, tt.err.Backoff)
			assert.NotEmpty(t, tt.err.StackTrace)
			assert.Equal(t, tt.retryable, IsRetryable(fmt.Errorf("wrapped: %w", tt.err)))
		})
	}
}

func TestAppError_Chain(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewDatabaseError("get service", cause).WithCode("DB_001").WithDetail("service_id", 42)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "DB_001", err.Code)
	assert.Equal(t, 42, err.Details["service_id"])
	assert.Contains(t, err.Error(), "connection reset")
	assert.True(t, IsType(fmt.Errorf("outer: %w", err), ErrorTypeDatabase))
	assert.Nil(t, GetAppError(cause))
}

func TestFromAWSError(t *testing.T) {
	t.Run("cancelled transaction with conditional check", func(t *testing.T) {
		err := &types.TransactionCanceledException{
			Message: aws.String("Transaction cancelled"),
			CancellationReasons: []types.CancellationReason{
				{Code: aws.String("None")},
				{Code: aws.String("ConditionalCheckFailed")},
			},
		}

		appErr := FromAWSError("dynamodb", "TransactWriteItems", err)

		assert.True(t, IsConflict(appErr))
		assert.True(t, appErr.Retryable)
		assert.Equal(t, BackoffImmediate, appErr.Backoff)
		assert.Equal(t, "ConditionalCheckFailed", appErr.Code)
	})

	t.Run("single write conditional check", func(t *testing.T) {
		err := &types.ConditionalCheckFailedException{Message: aws.String("failed")}
		assert.True(t, IsConditionalCheckFailed(err))
		assert.True(t, IsConflict(FromAWSError("dynamodb", "PutItem", err)))
	})

	t.Run("throttling is retried with backoff", func(t *testing.T) {
		err := &smithy.GenericAPIError{Code: "ThrottlingException", Message: "slow down", Fault: smithy.FaultClient}

		appErr := FromAWSError("dynamodb", "TransactWriteItems", err)

		assert.Equal(t, ErrorTypeExternal, appErr.Type)
		assert.Equal(t, "ThrottlingException", appErr.Code)
		assert.True(t, appErr.Retryable)
		assert.Equal(t, BackoffExponential, appErr.Backoff)
	})

	t.Run("client fault is not retried", func(t *testing.T) {
		err := &smithy.GenericAPIError{Code: "ValidationException", Message: "bad key", Fault: smithy.FaultClient}

		appErr := FromAWSError("dynamodb", "GetItem", err)

		assert.Equal(t, "ValidationException", appErr.Code)
		assert.False(t, appErr.Retryable)
	})

	t.Run("unknown failure", func(t *testing.T) {
		appErr := FromAWSError("dynamodb", "GetItem", errors.New("dial tcp: timeout"))

		assert.Equal(t, ErrorTypeExternal, appErr.Type)
		assert.True(t, appErr.Retryable)
		assert.Equal(t, "GetItem", appErr.Details["operation"])
	})

	t.Run("already classified", func(t *testing.T) {
		original := NewValidationError("bad")
		assert.Same(t, original, FromAWSError("dynamodb", "GetItem", original))
	})

	assert.Nil(t, FromAWSError("dynamodb", "GetItem", nil))
}

func TestLog(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	Log(logger, "conflict", NewConflictError("version moved").WithCode("ConditionalCheckFailed"))
	Log(logger, "failure", errors.New("boom"), zap.Int("service_id", 42))
	Log(logger, "ignored", nil)

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)

	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "ConditionalCheckFailed", entries[0].ContextMap()["error_code"])
	assert.Equal(t, true, entries[0].ContextMap()["retryable"])

	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, int64(42), entries[1].ContextMap()["service_id"])
}
