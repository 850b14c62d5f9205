package dynamodb

import (
	"context"
	"errors"

	apperrors "data-migration/pkg/errors"
	"data-migration/pkg/logging"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// TransactionExecutor writes prepared items with TransactWriteItems.
type TransactionExecutor struct {
	client Client
	logger *zap.Logger
}

// NewTransactionExecutor creates a new transaction executor
func NewTransactionExecutor(client Client, logger *zap.Logger) *TransactionExecutor {
	return &TransactionExecutor{
		client: client,
		logger: logger,
	}
}

// Write commits items atomically. A failed condition is returned as a
// CONFLICT AppError, any other failure as an EXTERNAL one. Sending no items
// is a no-op.
func (e *TransactionExecutor) Write(ctx context.Context, items []types.TransactWriteItem) error {
	if len(items) == 0 {
		return nil
	}

	_, err := e.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	if err == nil {
		logging.Log(e.logger, logging.DMETL021, zap.Int("item_count", len(items)))
		return nil
	}

	appErr := apperrors.FromAWSError("dynamodb", "TransactWriteItems", err).WithDetail("item_count", len(items))
	if apperrors.IsConditionalCheckFailed(err) {
		logging.Log(e.logger, logging.DMETL022,
			zap.Int("item_count", len(items)),
			zap.Strings("cancellation_reasons", cancellationReasons(err)),
		)
		return appErr
	}

	apperrors.Log(e.logger, logging.DMETL038.Message, appErr, logging.DMETL038.Field())
	return appErr
}

// cancellationReasons lists the reason code of every item of a cancelled
// transaction, in item order.
func cancellationReasons(err error) []string {
	var tce *types.TransactionCanceledException
	if !errors.As(err, &tce) {
		return nil
	}
	codes := make([]string, 0, len(tce.CancellationReasons))
	for _, r := range tce.CancellationReasons {
		codes = append(codes, aws.ToString(r.Code))
	}
	return codes
}
