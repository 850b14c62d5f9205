package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"data-migration/application/migration"
	"data-migration/application/ports"
	dm "data-migration/domain/migration"
	apperrors "data-migration/pkg/errors"
	"data-migration/pkg/logging"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"
)

// Syncer synchronises a single service and keeps batch counters.
type Syncer interface {
	SyncService(ctx context.Context, serviceID int, method string) error
	Metrics() dm.Metrics
	ResetMetrics()
}

// ErrBatchFailed is returned when no record of a batch succeeded, so the
// whole batch is handed back to the queue.
var ErrBatchFailed = errors.New("every record in the batch failed")

// Handler processes SQS batches of DMS events.
type Handler struct {
	syncer     Syncer
	metrics    ports.MetricsPublisher
	dimensions map[string]string
	logger     *zap.Logger
}

// NewHandler creates a new SQS handler. metrics may be nil.
func NewHandler(syncer Syncer, metrics ports.MetricsPublisher, dimensions map[string]string, logger *zap.Logger) *Handler {
	return &Handler{
		syncer:     syncer,
		metrics:    metrics,
		dimensions: dimensions,
		logger:     logger,
	}
}

// HandleSQSEvent processes every record of the batch in order and reports
// the ones that should be delivered again. Records that failed for a reason
// a retry cannot fix are acknowledged.
func (h *Handler) HandleSQSEvent(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	logging.Log(h.logger, logging.SMAPP003, zap.Int("record_count", len(event.Records)))
	h.syncer.ResetMetrics()

	var response events.SQSEventResponse
	for _, record := range event.Records {
		if err := h.handleRecord(ctx, record); err != nil {
			response.BatchItemFailures = append(response.BatchItemFailures, events.SQSBatchItemFailure{
				ItemIdentifier: record.MessageId,
			})
		}
	}

	metrics := h.syncer.Metrics()
	h.publishMetrics(ctx, metrics)

	if n := len(response.BatchItemFailures); n > 0 {
		logging.Log(h.logger, logging.SMAPP005, zap.Int("failure_count", n), zap.Any("failures", response.BatchItemFailures))
		if n == len(event.Records) {
			return events.SQSEventResponse{}, fmt.Errorf("%w: %d records", ErrBatchFailed, n)
		}
	}

	logging.Log(h.logger, logging.SMAPP004, zap.Any("metrics", metrics))
	return response, nil
}

// handleRecord returns an error only when the message should be retried.
func (h *Handler) handleRecord(ctx context.Context, record events.SQSMessage) error {
	start := time.Now()
	logger := h.logger.With(zap.String("sqs_message_id", record.MessageId))
	defer func() {
		logging.Log(logger, logging.SMAPP007, zap.Duration("duration", time.Since(start)))
	}()

	event, err := ParseEvent(record.Body)
	if err != nil {
		logging.Log(logger, logging.DMETL009, zap.Error(err), zap.String("record_body", record.Body))
		return nil
	}
	logging.Log(logger, logging.SMAPP006, zap.Any("event", event))

	route, err := event.Resolve()
	if err != nil {
		switch {
		case errors.Is(err, ErrUnsupportedMethod):
			logging.Log(logger, logging.DMETL010, zap.String("method", event.Method), zap.String("table_name", event.TableName))
		case errors.Is(err, ErrUnsupportedTable):
			logging.Log(logger, logging.DMETL011, zap.String("method", event.Method), zap.String("table_name", event.TableName))
		default:
			logging.Log(logger, logging.DMETL009, zap.Error(err))
		}
		logging.Log(logger, logging.SMAPP008B, zap.Error(err))
		return nil
	}

	err = h.syncer.SyncService(ctx, route.ServiceID, route.Method)
	if err == nil {
		return nil
	}

	var me *migration.MigrationError
	if !errors.As(err, &me) {
		apperrors.Log(logger, logging.SMAPP009.Message, err, logging.SMAPP009.Field())
		return err
	}
	if me.Kind.Requeue() {
		logging.Log(logger, logging.SMAPP008A,
			zap.Error(err),
			zap.String("kind", me.Kind.String()),
			zap.String("backoff", string(me.Backoff)),
		)
		return err
	}
	logging.Log(logger, logging.SMAPP008B, zap.Error(err), zap.String("kind", me.Kind.String()))
	return nil
}

func (h *Handler) publishMetrics(ctx context.Context, metrics dm.Metrics) {
	if h.metrics == nil {
		return
	}
	if err := h.metrics.PublishCounters(ctx, metrics.Counters(), h.dimensions); err != nil {
		logging.Log(h.logger, logging.SMAPP012, zap.Error(err))
	}
}
