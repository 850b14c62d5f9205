package queue_test

import (
	"context"
	"errors"
	"testing"

	"data-migration/application/migration"
	"data-migration/application/queue"
	dm "data-migration/domain/migration"
	apperrors "data-migration/pkg/errors"
	"data-migration/pkg/logging"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// MockSyncer is a mock implementation of queue.Syncer
type MockSyncer struct {
	mock.Mock
}

func (m *MockSyncer) SyncService(ctx context.Context, serviceID int, method string) error {
	args := m.Called(ctx, serviceID, method)
	return args.Error(0)
}

func (m *MockSyncer) Metrics() dm.Metrics {
	args := m.Called()
	return args.Get(0).(dm.Metrics)
}

func (m *MockSyncer) ResetMetrics() {
	m.Called()
}

// MockMetricsPublisher is a mock implementation of ports.MetricsPublisher
type MockMetricsPublisher struct {
	mock.Mock
}

func (m *MockMetricsPublisher) PublishCounters(ctx context.Context, counters map[string]int, dimensions map[string]string) error {
	args := m.Called(ctx, counters, dimensions)
	return args.Error(0)
}

func message(id, body string) events.SQSMessage {
	return events.SQSMessage{MessageId: id, Body: body}
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

func TestParseEvent(t *testing.T) {
	event, err := queue.ParseEvent(`{"type":"dms","record_id":10,"service_id":10,"table_name":"services","method":"insert"}`)
	require.NoError(t, err)
	assert.Equal(t, queue.Event{Type: "dms", RecordID: 10, ServiceID: 10, TableName: "services", Method: "insert"}, event)

	for _, body := range []string{
		`not json`,
		`{"record_id":10,"method":"insert"}`,
		`{"record_id":10,"table_name":"services"}`,
	} {
		_, err := queue.ParseEvent(body)
		assert.ErrorIs(t, err, queue.ErrMalformedEvent, body)
		assert.ErrorIs(t, err, queue.ErrUnroutable, body)
	}
}

func TestParseEvent_UnknownMethodIsWellFormed(t *testing.T) {
	event, err := queue.ParseEvent(`{"record_id":10,"table_name":"services","method":"truncate"}`)
	require.NoError(t, err)
	assert.Equal(t, "truncate", event.Method)

	_, err = event.Resolve()
	assert.ErrorIs(t, err, queue.ErrUnsupportedMethod)
	assert.NotErrorIs(t, err, queue.ErrMalformedEvent)
}

func TestHandleSQSEvent_UnknownMethodIsAcknowledged(t *testing.T) {
	// Arrange
	syncer := new(MockSyncer)
	core, logs := observer.New(zapcore.DebugLevel)
	syncer.On("ResetMetrics").Return()
	syncer.On("SyncService", mock.Anything, 1, "insert").Return(nil)
	syncer.On("Metrics").Return(dm.Metrics{Total: 1, Inserted: 1})
	handler := queue.NewHandler(syncer, nil, nil, zap.New(core))

	// Act
	response, err := handler.HandleSQSEvent(context.Background(), events.SQSEvent{Records: []events.SQSMessage{
		message("m1", `{"record_id":1,"table_name":"services","method":"insert"}`),
		message("m2", `{"record_id":2,"table_name":"services","method":"truncate"}`),
	}})

	// Assert
	require.NoError(t, err)
	assert.Empty(t, response.BatchItemFailures)
	refs := references(logs)
	assert.Contains(t, refs, "DM_ETL_010")
	assert.NotContains(t, refs, "DM_ETL_009")
	syncer.AssertNumberOfCalls(t, "SyncService", 1)
}

func TestEvent_Resolve(t *testing.T) {
	tests := []struct {
		name    string
		event   queue.Event
		want    queue.Route
		wantErr error
	}{
		{
			name:  "service insert",
			event: queue.Event{RecordID: 7, TableName: "services", Method: "insert"},
			want:  queue.Route{ServiceID: 7, Method: "insert"},
		},
		{
			name:  "service update",
			event: queue.Event{RecordID: 7, TableName: "services", Method: "update"},
			want:  queue.Route{ServiceID: 7, Method: "update"},
		},
		{
			name:    "service delete",
			event:   queue.Event{RecordID: 7, TableName: "services", Method: "delete"},
			wantErr: queue.ErrUnsupportedMethod,
		},
		{
			name:    "service with unknown method",
			event:   queue.Event{RecordID: 7, TableName: "services", Method: "truncate"},
			wantErr: queue.ErrUnsupportedMethod,
		},
		{
			name:  "endpoint insert updates parent",
			event: queue.Event{RecordID: 99, ServiceID: 7, TableName: "serviceendpoints", Method: "insert"},
			want:  queue.Route{ServiceID: 7, Method: "update"},
		},
		{
			name:  "endpoint delete updates parent",
			event: queue.Event{RecordID: 99, ServiceID: 7, TableName: "serviceendpoints", Method: "delete"},
			want:  queue.Route{ServiceID: 7, Method: "update"},
		},
		{
			name:    "child without parent",
			event:   queue.Event{RecordID: 99, TableName: "servicedayopenings", Method: "update"},
			wantErr: queue.ErrMalformedEvent,
		},
		{
			name:    "unknown table",
			event:   queue.Event{RecordID: 1, TableName: "users", Method: "update"},
			wantErr: queue.ErrUnsupportedTable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			route, err := tt.event.Resolve()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.ErrorIs(t, err, queue.ErrUnroutable)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, route)
		})
	}
}

func TestHandleSQSEvent_PartialFailures(t *testing.T) {
	// Arrange
	ctx := context.Background()
	syncer := new(MockSyncer)
	publisher := new(MockMetricsPublisher)
	core, logs := observer.New(zapcore.DebugLevel)
	dimensions := map[string]string{"Environment": "dev"}

	metrics := dm.Metrics{Total: 5, Supported: 4, Inserted: 1, Skipped: 1, Errored: 2}
	syncer.On("ResetMetrics").Return().Once()
	syncer.On("SyncService", mock.Anything, 1, "insert").Return(nil)
	syncer.On("SyncService", mock.Anything, 2, "update").
		Return(&migration.MigrationError{Kind: migration.KindSkipped, RecordID: 2})
	syncer.On("SyncService", mock.Anything, 3, "update").
		Return(&migration.MigrationError{Kind: migration.KindRetryable, RecordID: 3, Backoff: apperrors.BackoffImmediate})
	syncer.On("SyncService", mock.Anything, 4, "update").Return(errors.New("boom"))
	syncer.On("SyncService", mock.Anything, 5, "update").
		Return(&migration.MigrationError{Kind: migration.KindSourceNotFound, RecordID: 5})
	syncer.On("Metrics").Return(metrics)
	publisher.On("PublishCounters", mock.Anything, metrics.Counters(), dimensions).Return(nil)

	handler := queue.NewHandler(syncer, publisher, dimensions, zap.New(core))

	event := events.SQSEvent{Records: []events.SQSMessage{
		message("m1", `{"record_id":1,"service_id":1,"table_name":"services","method":"insert"}`),
		message("m2", `{"record_id":2,"service_id":2,"table_name":"services","method":"update"}`),
		message("m3", `{"record_id":30,"service_id":3,"table_name":"serviceendpoints","method":"insert"}`),
		message("m4", `{"record_id":4,"service_id":4,"table_name":"services","method":"update"}`),
		message("m5", `{"record_id":5,"service_id":5,"table_name":"services","method":"update"}`),
		message("m6", `{"record_id":6,"table_name":"services","method":"delete"}`),
		message("m7", `{garbage`),
	}}

	// Act
	response, err := handler.HandleSQSEvent(ctx, event)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []events.SQSBatchItemFailure{
		{ItemIdentifier: "m3"},
		{ItemIdentifier: "m4"},
	}, response.BatchItemFailures)

	refs := references(logs)
	assert.Contains(t, refs, "DM_ETL_010")
	assert.Contains(t, refs, "DM_ETL_009")
	assert.Contains(t, refs, "SM_APP_008a")
	assert.Contains(t, refs, "SM_APP_009")
	assert.Equal(t, "SM_APP_004", refs[len(refs)-1])
	unexpected := logs.FilterField(zap.String(logging.FieldReference, "SM_APP_009")).All()
	require.Len(t, unexpected, 1)
	assert.Equal(t, zapcore.ErrorLevel, unexpected[0].Level)
	assert.Equal(t, "boom", unexpected[0].ContextMap()["error"])

	syncer.AssertExpectations(t)
	syncer.AssertNumberOfCalls(t, "SyncService", 5)
	publisher.AssertExpectations(t)
}

func TestHandleSQSEvent_AllFailed(t *testing.T) {
	syncer := new(MockSyncer)
	syncer.On("ResetMetrics").Return()
	syncer.On("SyncService", mock.Anything, 1, "update").
		Return(&migration.MigrationError{Kind: migration.KindRetryable, RecordID: 1, Backoff: apperrors.BackoffExponential})
	syncer.On("Metrics").Return(dm.Metrics{Total: 1, Errored: 1})

	handler := queue.NewHandler(syncer, nil, nil, zap.NewNop())
	_, err := handler.HandleSQSEvent(context.Background(), events.SQSEvent{Records: []events.SQSMessage{
		message("m1", `{"record_id":1,"table_name":"services","method":"update"}`),
	}})

	assert.ErrorIs(t, err, queue.ErrBatchFailed)
	syncer.AssertExpectations(t)
}

func TestHandleSQSEvent_MetricsPublishFailure(t *testing.T) {
	syncer := new(MockSyncer)
	publisher := new(MockMetricsPublisher)
	core, logs := observer.New(zapcore.DebugLevel)

	syncer.On("ResetMetrics").Return()
	syncer.On("SyncService", mock.Anything, 1, "insert").Return(nil)
	syncer.On("Metrics").Return(dm.Metrics{Total: 1, Inserted: 1})
	publisher.On("PublishCounters", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("cloudwatch down"))

	handler := queue.NewHandler(syncer, publisher, nil, zap.New(core))
	response, err := handler.HandleSQSEvent(context.Background(), events.SQSEvent{Records: []events.SQSMessage{
		message("m1", `{"record_id":1,"table_name":"services","method":"insert"}`),
	}})

	require.NoError(t, err)
	assert.Empty(t, response.BatchItemFailures)
	assert.Contains(t, references(logs), "SM_APP_012")
}
