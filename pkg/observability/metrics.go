package observability

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// maxMetricDataPerRequest is the PutMetricData limit.
const maxMetricDataPerRequest = 1000

// CloudWatchAPI is the subset of the CloudWatch client used here.
type CloudWatchAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// Metrics publishes counters to CloudWatch.
type Metrics struct {
	namespace string
	client    CloudWatchAPI
	now       func() time.Time
}

// NewMetrics creates a new metrics instance. A nil client disables
// publishing.
func NewMetrics(namespace string, client CloudWatchAPI) *Metrics {
	return &Metrics{
		namespace: namespace,
		client:    client,
		now:       time.Now,
	}
}

// PublishCounters sends one Count datum per counter, tagged with dimensions.
// Counter names are sent in sorted order.
func (m *Metrics) PublishCounters(ctx context.Context, counters map[string]int, dimensions map[string]string) error {
	if m == nil || m.client == nil || len(counters) == 0 {
		return nil
	}

	dims := make([]types.Dimension, 0, len(dimensions))
	for _, name := range sortedKeys(dimensions) {
		dims = append(dims, types.Dimension{
			Name:  aws.String(name),
			Value: aws.String(dimensions[name]),
		})
	}

	names := make([]string, 0, len(counters))
	for name := range counters {
		names = append(names, name)
	}
	sort.Strings(names)

	timestamp := m.now()
	data := make([]types.MetricDatum, 0, len(names))
	for _, name := range names {
		data = append(data, types.MetricDatum{
			MetricName: aws.String(name),
			Dimensions: dims,
			Value:      aws.Float64(float64(counters[name])),
			Unit:       types.StandardUnitCount,
			Timestamp:  aws.Time(timestamp),
		})
	}

	for start := 0; start < len(data); start += maxMetricDataPerRequest {
		end := start + maxMetricDataPerRequest
		if end > len(data) {
			end = len(data)
		}
		input := &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(m.namespace),
			MetricData: data[start:end],
		}
		if _, err := m.client.PutMetricData(ctx, input); err != nil {
			return fmt.Errorf("failed to put metric data: %w", err)
		}
	}
	return nil
}

// RecordLatency records latency for any operation
func (m *Metrics) RecordLatency(ctx context.Context, operation string, latency time.Duration) error {
	if m == nil || m.client == nil {
		return nil
	}

	input := &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(m.namespace),
		MetricData: []types.MetricDatum{
			{
				MetricName: aws.String("OperationLatency"),
				Dimensions: []types.Dimension{
					{
						Name:  aws.String("Operation"),
						Value: aws.String(operation),
					},
				},
				Value:     aws.Float64(float64(latency.Milliseconds())),
				Unit:      types.StandardUnitMilliseconds,
				Timestamp: aws.Time(m.now()),
			},
		},
	}
	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		return fmt.Errorf("failed to put latency metric: %w", err)
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
