package observability

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCloudWatch struct {
	mock.Mock
}

func (m *mockCloudWatch) PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	args := m.Called(ctx, params)
	return &cloudwatch.PutMetricDataOutput{}, args.Error(0)
}

func TestMetrics_PublishCounters(t *testing.T) {
	// Arrange
	ctx := context.Background()
	client := new(mockCloudWatch)
	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	metrics := NewMetrics("FtRS/DataMigration", client)
	metrics.now = func() time.Time { return ts }

	var captured *cloudwatch.PutMetricDataInput
	client.On("PutMetricData", ctx, mock.AnythingOfType("*cloudwatch.PutMetricDataInput")).
		Run(func(args mock.Arguments) { captured = args.Get(1).(*cloudwatch.PutMetricDataInput) }).
		Return(nil)

	// Act
	err := metrics.PublishCounters(ctx,
		map[string]int{"total": 3, "inserted": 2, "errored": 1},
		map[string]string{"Environment": "dev"},
	)

	// Assert
	require.NoError(t, err)
	client.AssertExpectations(t)
	require.NotNil(t, captured)
	assert.Equal(t, "FtRS/DataMigration", aws.ToString(captured.Namespace))
	require.Len(t, captured.MetricData, 3)

	first := captured.MetricData[0]
	assert.Equal(t, "errored", aws.ToString(first.MetricName))
	assert.Equal(t, 1.0, aws.ToFloat64(first.Value))
	assert.Equal(t, types.StandardUnitCount, first.Unit)
	assert.Equal(t, ts, aws.ToTime(first.Timestamp))
	require.Len(t, first.Dimensions, 1)
	assert.Equal(t, "Environment", aws.ToString(first.Dimensions[0].Name))
}

func TestMetrics_PublishCountersError(t *testing.T) {
	client := new(mockCloudWatch)
	client.On("PutMetricData", mock.Anything, mock.Anything).Return(errors.New("throttled"))

	err := NewMetrics("ns", client).PublishCounters(context.Background(), map[string]int{"total": 1}, nil)

	assert.ErrorContains(t, err, "throttled")
}

func TestMetrics_DisabledWithoutClient(t *testing.T) {
	var nilMetrics *Metrics
	assert.NoError(t, nilMetrics.PublishCounters(context.Background(), map[string]int{"total": 1}, nil))
	assert.NoError(t, NewMetrics("ns", nil).RecordLatency(context.Background(), "sync", time.Second))
}

func TestCollector(t *testing.T) {
	c := NewCollector("ftrs")

	c.ObserveRecord("inserted", 20*time.Millisecond)
	c.ObserveRecord("inserted", 30*time.Millisecond)
	c.ObserveRecord("skipped", time.Millisecond)
	c.ObserveTransaction(4)
	c.SetCircuitOpen("dos", true)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.Records().WithLabelValues("inserted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Records().WithLabelValues("skipped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.breakerOpen.WithLabelValues("dos")))

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `ftrs_migration_records_total{outcome="inserted"} 2`)
}

func TestTracer_Disabled(t *testing.T) {
	var calls int
	tracer := NewTracer("data-migration", false)

	err := tracer.TraceFunction(context.Background(), "sync", func(context.Context) error {
		calls++
		return errors.New("boom")
	})

	assert.EqualError(t, err, "boom")
	assert.Equal(t, 1, calls)

	var nilTracer *Tracer
	assert.NoError(t, nilTracer.TraceFunction(context.Background(), "sync", func(context.Context) error { return nil }))
	nilTracer.AddAnnotation(context.Background(), "record_id", "42")
	nilTracer.AddMetadata(context.Background(), "item_count", 1)
	nilTracer.RecordError(context.Background(), errors.New("boom"))
	ctx, seg := tracer.StartSegment(context.Background(), "SyncAll")
	assert.Nil(t, seg)
	assert.Nil(t, xray.GetSegment(ctx))
}

func TestTracer_Enabled(t *testing.T) {
	tracer := NewTracer("data-migration", true)

	t.Run("starts a segment for untraced work", func(t *testing.T) {
		ctx, seg := tracer.StartSegment(context.Background(), "SyncAll")
		require.NotNil(t, seg)
		assert.Same(t, seg, xray.GetSegment(ctx))
		assert.Equal(t, "data-migration.SyncAll", seg.Name)

		nested, inner := tracer.StartSegment(ctx, "SyncAll")
		assert.Nil(t, inner)
		assert.Equal(t, ctx, nested)
	})

	t.Run("annotates the current segment", func(t *testing.T) {
		ctx, seg := xray.BeginSegment(context.Background(), "invocation")

		tracer.AddMetadata(ctx, "item_count", 3)
		tracer.RecordError(ctx, errors.New("boom"))
		tracer.RecordError(ctx, nil)

		assert.Equal(t, 3, seg.Metadata["default"]["item_count"])
		assert.True(t, seg.Fault)
		require.NotNil(t, seg.Cause)
		assert.Len(t, seg.Cause.Exceptions, 1)
	})

	t.Run("no segment in context", func(t *testing.T) {
		tracer.AddMetadata(context.Background(), "item_count", 3)
		tracer.RecordError(context.Background(), errors.New("boom"))
	})
}
