package dynamodb

import (
	"context"
	"fmt"

	"data-migration/domain/migration"
	apperrors "data-migration/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// StateRepository reads migration state records. Writes go through the
// transaction executor together with the entity writes.
type StateRepository struct {
	client    Client
	tableName string
	logger    *zap.Logger
}

// NewStateRepository creates a new state repository
func NewStateRepository(client Client, tableName string, logger *zap.Logger) *StateRepository {
	return &StateRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// GetState returns the state of a source record, or nil when the record was
// never migrated. The read is strongly consistent so that the version used
// for the next write is the latest committed one.
func (r *StateRepository) GetState(ctx context.Context, sourceRecordID string) (*migration.State, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			migration.KeySourceRecordID: &types.AttributeValueMemberS{Value: sourceRecordID},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, apperrors.FromAWSError("dynamodb", "GetItem", err).WithDetail("source_record_id", sourceRecordID)
	}
	if len(out.Item) == 0 {
		r.logger.Debug("No migration state", zap.String("source_record_id", sourceRecordID))
		return nil, nil
	}

	var state migration.State
	if err := attributevalue.UnmarshalMap(out.Item, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal migration state %s: %w", sourceRecordID, err)
	}
	return &state, nil
}
