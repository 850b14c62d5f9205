// Package versionhistory records field level changes of target documents
// from the DynamoDB streams of the target tables.
package versionhistory

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"data-migration/application/ports"
	"data-migration/domain/entities"
	"data-migration/domain/versioning"
	"data-migration/pkg/diff"
	"data-migration/pkg/logging"
	"data-migration/pkg/utils"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"go.uber.org/zap"
)

var tableNamePattern = regexp.MustCompile(`(?:^|[:/])table/([^/]+)/stream/`)

var (
	errNoTableName = errors.New("could not extract table name from stream ARN")
	errNoRecordID  = errors.New("could not extract record id from keys")
)

// Processor turns stream records into version history records.
type Processor struct {
	writer   ports.VersionHistoryWriter
	detector *diff.Detector
	clock    utils.Clock
	logger   *zap.Logger
}

// NewProcessor creates a new stream processor. Creation and last update
// timestamps are not business changes and never produce history.
func NewProcessor(writer ports.VersionHistoryWriter, clock utils.Clock, logger *zap.Logger) *Processor {
	return &Processor{
		writer:   writer,
		detector: diff.NewDetector(entities.AttrCreatedTime, entities.AttrLastUpdated),
		clock:    clock,
		logger:   logger,
	}
}

// HandleDynamoDBEvent processes a stream batch and reports the records to
// redeliver.
func (p *Processor) HandleDynamoDBEvent(ctx context.Context, event events.DynamoDBEvent) (events.DynamoDBEventResponse, error) {
	var response events.DynamoDBEventResponse
	for _, seq := range p.Process(ctx, event.Records) {
		response.BatchItemFailures = append(response.BatchItemFailures, events.DynamoDBBatchItemFailure{
			ItemIdentifier: seq,
		})
	}
	return response, nil
}

// Process writes a history record for every modified document and returns
// the sequence numbers of the records that failed.
func (p *Processor) Process(ctx context.Context, records []events.DynamoDBEventRecord) []string {
	logging.Log(p.logger, logging.VHStream001, zap.Int("record_count", len(records)))

	var failed []string
	for _, record := range records {
		seq := record.Change.SequenceNumber
		if seq == "" {
			seq = "unknown"
		}
		if err := p.processRecord(ctx, record); err != nil {
			p.logger.Error("Failed to process stream record",
				zap.String("sequence_number", seq),
				zap.String("event_name", record.EventName),
				zap.Error(err),
			)
			failed = append(failed, seq)
		}
	}

	if len(failed) > 0 {
		logging.Log(p.logger, logging.VHStream005, zap.Int("failed_count", len(failed)))
	}
	logging.Log(p.logger, logging.VHStream006,
		zap.Int("total_records", len(records)),
		zap.Int("failed_records", len(failed)),
	)
	return failed
}

func (p *Processor) processRecord(ctx context.Context, record events.DynamoDBEventRecord) error {
	table, ok := TableName(record.EventSourceArn)
	if !ok {
		return fmt.Errorf("%w: %q", errNoTableName, record.EventSourceArn)
	}

	key, ok := record.Change.Keys["id"]
	if !ok || key.DataType() != events.DataTypeString || key.String() == "" {
		return errNoRecordID
	}
	recordID := key.String()
	logger := p.logger.With(zap.String("record_id", recordID), zap.String("table_name", table))

	if len(record.Change.OldImage) == 0 || len(record.Change.NewImage) == 0 {
		logging.Log(logger, logging.VHStream002, zap.String("event_name", record.EventName))
		return nil
	}

	before, err := convertImage(record.Change.OldImage)
	if err != nil {
		return fmt.Errorf("failed to convert old image: %w", err)
	}
	after, err := convertImage(record.Change.NewImage)
	if err != nil {
		return fmt.Errorf("failed to convert new image: %w", err)
	}

	changes := p.detector.Detect(before, after)
	if len(changes) == 0 {
		logging.Log(logger, logging.VHStream003)
		return nil
	}

	var document map[string]interface{}
	if err := attributevalue.UnmarshalMap(after, &document); err != nil {
		return fmt.Errorf("failed to decode new image: %w", err)
	}

	fields := make(map[string]versioning.FieldChange, len(changes))
	for path, change := range changes {
		fields[path] = versioning.FieldChange{Old: change.Old, New: change.New}
	}

	history := versioning.Record{
		EntityID:      versioning.EntityID(table, recordID, entities.DocumentField),
		Timestamp:     versioning.Timestamp(p.clock.Now()),
		ChangeType:    versioning.ChangeTypeUpdate,
		ChangedFields: fields,
		ChangedBy:     versioning.ExtractChangedBy(document),
	}
	if err := p.writer.WriteChangeRecord(ctx, history); err != nil {
		return fmt.Errorf("failed to write change record: %w", err)
	}

	logging.Log(logger, logging.VHStream004, zap.Int("changed_field_count", len(fields)))
	return nil
}

// TableName extracts the table name from a stream ARN such as
// arn:aws:dynamodb:eu-west-2:123456789012:table/name/stream/2025-01-01T00:00:00.000.
func TableName(arn string) (string, bool) {
	m := tableNamePattern.FindStringSubmatch(arn)
	if m == nil {
		return "", false
	}
	return m[1], true
}
