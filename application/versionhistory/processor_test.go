package versionhistory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"data-migration/application/versionhistory"
	"data-migration/domain/versioning"
	ddb "data-migration/infrastructure/persistence/dynamodb"
	"data-migration/infrastructure/persistence/memory"
	"data-migration/pkg/logging"
	"data-migration/pkg/utils"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const streamARN = "arn:aws:dynamodb:eu-west-2:000000000000:table/ftrs-dos-dev-database-organisation/stream/2025-01-01T00:00:00.000"

var processedAt = time.Date(2025, 3, 1, 10, 0, 0, 123456789, time.UTC)

// MockHistoryWriter is a mock implementation of ports.VersionHistoryWriter
type MockHistoryWriter struct {
	mock.Mock
}

func (m *MockHistoryWriter) WriteChangeRecord(ctx context.Context, record versioning.Record) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func audit(lastUpdated string) map[string]events.DynamoDBAttributeValue {
	return map[string]events.DynamoDBAttributeValue{
		"createdTime": events.NewStringAttribute("2025-01-01T00:00:00Z"),
		"lastUpdated": events.NewStringAttribute(lastUpdated),
		"lastUpdatedBy": events.NewMapAttribute(map[string]events.DynamoDBAttributeValue{
			"type":    events.NewStringAttribute("app"),
			"value":   events.NewStringAttribute("INTERNAL001"),
			"display": events.NewStringAttribute("Data Migration"),
		}),
	}
}

func image(name, town, lastUpdated string) map[string]events.DynamoDBAttributeValue {
	img := audit(lastUpdated)
	img["id"] = events.NewStringAttribute("org-1")
	img["field"] = events.NewStringAttribute("document")
	img["name"] = events.NewStringAttribute(name)
	img["active"] = events.NewBooleanAttribute(true)
	img["telecom"] = events.NewListAttribute([]events.DynamoDBAttributeValue{events.NewStringAttribute("01234567890")})
	img["address"] = events.NewMapAttribute(map[string]events.DynamoDBAttributeValue{
		"town":     events.NewStringAttribute(town),
		"postcode": events.NewStringAttribute("LS1 1AA"),
	})
	img["order"] = events.NewNumberAttribute("1")
	img["comment"] = events.NewNullAttribute()
	return img
}

func modify(seq string, oldImage, newImage map[string]events.DynamoDBAttributeValue) events.DynamoDBEventRecord {
	return events.DynamoDBEventRecord{
		EventName:      "MODIFY",
		EventSourceArn: streamARN,
		Change: events.DynamoDBStreamRecord{
			SequenceNumber: seq,
			Keys: map[string]events.DynamoDBAttributeValue{
				"id":    events.NewStringAttribute("org-1"),
				"field": events.NewStringAttribute("document"),
			},
			OldImage: oldImage,
			NewImage: newImage,
		},
	}
}

func references(logs *observer.ObservedLogs) []string {
	var refs []string
	for _, entry := range logs.All() {
		if ref, ok := entry.ContextMap()[logging.FieldReference].(string); ok {
			refs = append(refs, ref)
		}
	}
	return refs
}

func TestTableName(t *testing.T) {
	name, ok := versionhistory.TableName(streamARN)
	assert.True(t, ok)
	assert.Equal(t, "ftrs-dos-dev-database-organisation", name)

	tests := []struct {
		arn  string
		want string
		ok   bool
	}{
		{"arn:aws:dynamodb:eu-west-2:123456789012:table/ftrs-dos-dev-database-location/stream/2025-01-01T00:00:00.000", "ftrs-dos-dev-database-location", true},
		{"table/ftrs-dos-dev-database-location-ws1/stream/2025-01-01T00:00:00.000", "ftrs-dos-dev-database-location-ws1", true},
		{"arn:aws:dynamodb:eu-west-2:000000000000:table/no-stream", "", false},
		{"arn:aws:dynamodb:eu-west-2:000000000000:mytable/x/stream/1", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.arn, func(t *testing.T) {
			name, ok := versionhistory.TableName(tt.arn)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, name)
		})
	}
}

func TestProcess_WritesChangeRecord(t *testing.T) {
	// Arrange
	ctx := context.Background()
	store := memory.NewStore(zap.NewNop())
	store.CreateTable("history", memory.KeySchema{PartitionKey: "entity_id", SortKey: "timestamp"})
	repo := ddb.NewVersionHistoryRepository(store, "history", zap.NewNop())
	core, logs := observer.New(zapcore.DebugLevel)
	processor := versionhistory.NewProcessor(repo, utils.FixedClock(processedAt), zap.New(core))

	record := modify("100",
		image("Old Surgery", "Leeds", "2025-01-01T00:00:00Z"),
		image("New Surgery", "Bradford", "2025-02-01T00:00:00Z"),
	)

	// Act
	failed := processor.Process(ctx, []events.DynamoDBEventRecord{record})

	// Assert
	assert.Empty(t, failed)
	items := store.Items("history")
	require.Len(t, items, 1)

	var stored versioning.Record
	require.NoError(t, attributevalue.UnmarshalMap(items[0], &stored))
	assert.Equal(t, "ftrs-dos-dev-database-organisation|org-1|document", stored.EntityID)
	assert.Equal(t, "2025-03-01T10:00:00.123456789Z", stored.Timestamp)
	assert.Equal(t, versioning.ChangeTypeUpdate, stored.ChangeType)
	assert.Equal(t, versioning.ChangedBy{Display: "Data Migration", Type: "app", Value: "INTERNAL001"}, stored.ChangedBy)

	require.Len(t, stored.ChangedFields, 2)
	assert.Equal(t, "Old Surgery", stored.ChangedFields["name"].Old)
	assert.Equal(t, "New Surgery", stored.ChangedFields["name"].New)
	assert.Equal(t, "Bradford", stored.ChangedFields["address.town"].New)
	assert.NotContains(t, stored.ChangedFields, "lastUpdated")

	assert.Equal(t, []string{"VH_STREAM_001", "VH_STREAM_004", "VH_STREAM_006"}, references(logs))
}

func TestProcess_Skips(t *testing.T) {
	writer := new(MockHistoryWriter)
	core, logs := observer.New(zapcore.DebugLevel)
	processor := versionhistory.NewProcessor(writer, utils.FixedClock(processedAt), zap.New(core))

	insert := modify("1", nil, image("Surgery", "Leeds", "2025-01-01T00:00:00Z"))
	insert.EventName = "INSERT"
	// Only the last update timestamp moved.
	touched := modify("2",
		image("Surgery", "Leeds", "2025-01-01T00:00:00Z"),
		image("Surgery", "Leeds", "2025-02-01T00:00:00Z"),
	)

	failed := processor.Process(context.Background(), []events.DynamoDBEventRecord{insert, touched})

	assert.Empty(t, failed)
	assert.Equal(t, []string{"VH_STREAM_001", "VH_STREAM_002", "VH_STREAM_003", "VH_STREAM_006"}, references(logs))
	writer.AssertNotCalled(t, "WriteChangeRecord", mock.Anything, mock.Anything)
}

func TestHandleDynamoDBEvent_Failures(t *testing.T) {
	writer := new(MockHistoryWriter)
	writer.On("WriteChangeRecord", mock.Anything, mock.AnythingOfType("versioning.Record")).
		Return(errors.New("throttled")).Once()
	writer.On("WriteChangeRecord", mock.Anything, mock.AnythingOfType("versioning.Record")).
		Return(nil)
	core, logs := observer.New(zapcore.DebugLevel)
	processor := versionhistory.NewProcessor(writer, utils.FixedClock(processedAt), zap.New(core))

	changed := func(seq string) events.DynamoDBEventRecord {
		return modify(seq,
			image("Old Surgery", "Leeds", "2025-01-01T00:00:00Z"),
			image("New Surgery", "Leeds", "2025-02-01T00:00:00Z"),
		)
	}
	badARN := changed("11")
	badARN.EventSourceArn = "not-an-arn"
	noKey := changed("12")
	noKey.Change.Keys = map[string]events.DynamoDBAttributeValue{}

	response, err := processor.HandleDynamoDBEvent(context.Background(), events.DynamoDBEvent{
		Records: []events.DynamoDBEventRecord{changed("10"), badARN, noKey, changed("13")},
	})

	require.NoError(t, err)
	assert.Equal(t, []events.DynamoDBBatchItemFailure{
		{ItemIdentifier: "10"},
		{ItemIdentifier: "11"},
		{ItemIdentifier: "12"},
	}, response.BatchItemFailures)
	assert.Contains(t, references(logs), "VH_STREAM_005")
	writer.AssertNumberOfCalls(t, "WriteChangeRecord", 2)
}
