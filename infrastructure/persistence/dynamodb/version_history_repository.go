package dynamodb

import (
	"context"
	"fmt"

	"data-migration/domain/versioning"
	apperrors "data-migration/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"
)

// VersionHistoryRepository stores change records keyed by entity id and
// timestamp.
type VersionHistoryRepository struct {
	client    Client
	tableName string
	logger    *zap.Logger
}

// NewVersionHistoryRepository creates a new version history repository
func NewVersionHistoryRepository(client Client, tableName string, logger *zap.Logger) *VersionHistoryRepository {
	return &VersionHistoryRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// WriteChangeRecord stores record. A record already stored under the same key
// is left untouched and reported as a CONFLICT AppError, so a redelivered
// stream record cannot overwrite history.
func (r *VersionHistoryRepository) WriteChangeRecord(ctx context.Context, record versioning.Record) error {
	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("failed to marshal change record: %w", err)
	}

	cond := expression.Name("entity_id").AttributeNotExists().
		And(expression.Name("timestamp").AttributeNotExists())
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return fmt.Errorf("failed to build condition: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(r.tableName),
		Item:                      item,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return apperrors.FromAWSError("dynamodb", "PutItem", err).
			WithDetail("entity_id", record.EntityID).
			WithDetail("timestamp", record.Timestamp)
	}

	r.logger.Debug("Change record stored",
		zap.String("entity_id", record.EntityID),
		zap.Int("changed_fields", len(record.ChangedFields)),
	)
	return nil
}
