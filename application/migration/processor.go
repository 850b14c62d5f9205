// Package migration synchronises DoS services into the target tables.
//
// A synchronisation reads the stored migration state and the source service,
// transforms the service and writes every change together with the next
// state in one conditional transaction. Concurrent synchronisations of the
// same service are ordered by the state version condition alone.
package migration

import (
	"context"
	"fmt"
	"sync"
	"time"

	"data-migration/application/ports"
	"data-migration/application/transformers"
	"data-migration/domain/events"
	"data-migration/domain/legacy"
	dm "data-migration/domain/migration"
	"data-migration/pkg/diff"
	apperrors "data-migration/pkg/errors"
	"data-migration/pkg/logging"
	"data-migration/pkg/observability"
	"data-migration/pkg/utils"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Outcomes recorded for a synchronisation that did not fail.
const (
	OutcomeInserted  = "inserted"
	OutcomeUpdated   = "updated"
	OutcomeUnchanged = "unchanged"
)

// Processor synchronises services one at a time. It is safe for concurrent
// use; only the metrics are shared between calls.
type Processor struct {
	source       ports.SourceRepository
	metadata     ports.MetadataProvider
	states       ports.StateRepository
	writer       ports.TransactionWriter
	transformers []transformers.Transformer
	tables       Tables
	logger       *zap.Logger

	clock     utils.Clock
	tracer    *observability.Tracer
	collector *observability.Collector
	publisher ports.EventPublisher
	detector  *diff.Detector

	mu      sync.Mutex
	metrics dm.Metrics
}

// NewProcessor creates a Processor.
func NewProcessor(
	source ports.SourceRepository,
	metadata ports.MetadataProvider,
	states ports.StateRepository,
	writer ports.TransactionWriter,
	registry []transformers.Transformer,
	tables Tables,
	logger *zap.Logger,
) *Processor {
	return &Processor{
		source:       source,
		metadata:     metadata,
		states:       states,
		writer:       writer,
		transformers: registry,
		tables:       tables,
		logger:       logger,
		clock:        utils.SystemClock{},
		detector:     diff.NewDetector(),
	}
}

// WithClock sets the clock used for audit timestamps.
func (p *Processor) WithClock(clock utils.Clock) *Processor {
	p.clock = clock
	return p
}

// WithTracer traces every synchronisation.
func (p *Processor) WithTracer(tracer *observability.Tracer) *Processor {
	p.tracer = tracer
	return p
}

// WithCollector records outcomes in prometheus.
func (p *Processor) WithCollector(collector *observability.Collector) *Processor {
	p.collector = collector
	return p
}

// WithEventPublisher publishes a RecordMigrated event after each commit.
func (p *Processor) WithEventPublisher(publisher ports.EventPublisher) *Processor {
	p.publisher = publisher
	return p
}

// Metrics returns a snapshot of the counters.
func (p *Processor) Metrics() dm.Metrics {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.metrics
}

// ResetMetrics zeroes the counters.
func (p *Processor) ResetMetrics() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.metrics.Reset()
}

func (p *Processor) count(fn func(m *dm.Metrics)) {
	p.mu.Lock()
	fn(&p.metrics)
	p.mu.Unlock()
}

// SyncService synchronises one service. A nil error means the target tables
// match the service, whether or not anything was written. Failures are
// *MigrationError values, except unexpected ones which are KindErrored.
func (p *Processor) SyncService(ctx context.Context, serviceID int, method string) error {
	start := time.Now()
	p.count(func(m *dm.Metrics) { m.Total++ })

	logger := logging.ForRecord(p.logger, serviceID).With(zap.String("method", method))

	var outcome string
	err := p.tracer.TraceFunction(ctx, "SyncService", func(ctx context.Context) error {
		p.tracer.AddAnnotation(ctx, "record_id", fmt.Sprint(serviceID))
		var err error
		outcome, err = p.sync(ctx, serviceID, logger)
		return err
	})

	if err != nil {
		kind := KindOf(err)
		outcome = kind.String()
		p.count(func(m *dm.Metrics) {
			switch kind {
			case KindUnsupported:
				m.Unsupported++
			case KindSkipped:
				m.Skipped++
			case KindInvalid, KindUnsupportedChange:
				m.Invalid++
			default:
				m.Errored++
			}
		})
		switch kind {
		case KindUnsupported, KindSkipped, KindInvalid, KindRetryable:
		default:
			logging.Log(logger, logging.DMETL008, append(apperrors.Fields(err), zap.String("kind", kind.String()))...)
			p.tracer.RecordError(ctx, err)
		}
	}

	if p.collector != nil {
		p.collector.ObserveRecord(outcome, time.Since(start))
	}
	return err
}

func (p *Processor) sync(ctx context.Context, serviceID int, logger *zap.Logger) (string, error) {
	state, err := p.states.GetState(ctx, dm.ServiceRecordID(serviceID))
	if err != nil {
		return "", &MigrationError{Kind: KindErrored, RecordID: serviceID, Reason: "failed to read migration state", Err: err}
	}
	if state != nil {
		logging.Log(logger, logging.DMETL019, zap.Int("version", state.Version))
	} else {
		logging.Log(logger, logging.DMETL020)
	}

	service, err := p.source.GetService(ctx, serviceID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return "", &MigrationError{Kind: KindSourceNotFound, RecordID: serviceID, Reason: "service not found in source", Reference: logging.DMETL008.Code, Err: err}
		}
		return "", &MigrationError{Kind: KindErrored, RecordID: serviceID, Reason: "failed to read service", Err: err}
	}

	transformer, err := p.selectTransformer(service, logger)
	if err != nil {
		return "", err
	}

	sanitised, issues, err := p.validate(transformer, service, logger)
	if err != nil {
		return "", err
	}

	metadata, err := p.metadata.Metadata(ctx)
	if err != nil {
		return "", &MigrationError{Kind: KindErrored, RecordID: serviceID, Reason: "failed to load metadata", Err: err}
	}

	result, err := transformer.Transform(sanitised, metadata, logger)
	if err != nil {
		return "", &MigrationError{Kind: KindErrored, RecordID: serviceID, Reason: "transform failed", Err: err}
	}
	result.ValidationIssues = issues
	p.count(func(m *dm.Metrics) { m.Transformed++ })
	logging.Log(logger, logging.DMETL006, zap.String("transformer", transformer.Name()))

	builder := NewTransactionBuilder(p.tables, serviceID, state, logger, p.clock.Now()).
		WithValidationIssues(result.ValidationIssues).
		AddOrganisation(result.Organisation).
		AddLocation(result.Location).
		AddHealthcareService(result.HealthcareService)
	items, err := builder.Build()
	if err != nil {
		return "", err
	}
	if len(items) == 0 {
		return OutcomeUnchanged, nil
	}

	if err := p.writer.Write(ctx, items); err != nil {
		return "", retryable(serviceID, err)
	}

	p.tracer.AddMetadata(ctx, "item_count", len(items))
	if p.collector != nil {
		p.collector.ObserveTransaction(len(items))
	}

	next := builder.State()
	op, outcome := events.OperationUpdate, OutcomeUpdated
	if state.IsNew() {
		op, outcome = events.OperationInsert, OutcomeInserted
	}
	p.count(func(m *dm.Metrics) {
		if op == events.OperationInsert {
			m.Inserted++
		} else {
			m.Updated++
		}
	})
	logging.Log(logger, logging.DMETL007,
		zap.String("operation", string(op)),
		zap.Int("version", next.Version),
		zap.Int("item_count", len(items)),
	)

	p.publish(ctx, next, op, logger)
	return outcome, nil
}

func (p *Processor) selectTransformer(service *legacy.Service, logger *zap.Logger) (transformers.Transformer, error) {
	selection, rejected := transformers.Select(p.transformers, service)
	for name, reason := range rejected {
		logging.Log(logger, logging.DMETL002, zap.String("transformer", name), zap.String("reason", reason))
	}

	switch selection.Kind {
	case transformers.NoMatch:
		logging.Log(logger, logging.DMETL004, zap.String("reason", "no transformer supports the record"))
		me := newMigrationError(KindUnsupported, service.ID, "no transformer supports the record")
		me.Reference = logging.DMETL004.Code
		return nil, me
	case transformers.AmbiguousMatch:
		return nil, &MigrationError{
			Kind:      KindConfiguration,
			RecordID:  service.ID,
			Reason:    "more than one transformer supports the record",
			Reference: logging.DMETL008.Code,
			Err:       apperrors.NewConfigurationError("ambiguous transformer registry").WithDetail("transformers", selection.Matches),
		}
	}

	transformer := selection.Transformer
	p.count(func(m *dm.Metrics) { m.Supported++ })
	logging.Log(logger, logging.DMETL003, zap.String("transformer", transformer.Name()))

	if ok, reason := transformer.ShouldInclude(service); !ok {
		logging.Log(logger, logging.DMETL005, zap.String("transformer", transformer.Name()), zap.String("reason", reason))
		me := newMigrationError(KindSkipped, service.ID, reason)
		me.Reference = logging.DMETL005.Code
		return nil, me
	}
	return transformer, nil
}

func (p *Processor) validate(transformer transformers.Transformer, service *legacy.Service, logger *zap.Logger) (*legacy.Service, []dm.ValidationIssue, error) {
	logging.Log(logger, logging.SMVAL001, zap.String("transformer", transformer.Name()))
	result := transformer.Validator().Validate(service)

	if len(result.Issues) > 0 {
		logging.Log(logger, logging.DMETL013, zap.Int("issue_count", len(result.Issues)), zap.Any("issues", result.Issues))
	}
	if !result.ShouldContinue {
		logging.Log(logger, logging.DMETL014, zap.Any("issues", result.Issues))
		return nil, nil, &MigrationError{
			Kind:      KindInvalid,
			RecordID:  service.ID,
			Reason:    "record failed validation",
			Reference: logging.DMETL014.Code,
			Issues:    result.Issues,
		}
	}

	p.logSanitised(service, result.Sanitised, logger)
	return result.Sanitised, result.Issues, nil
}

// logSanitised logs the values the validator changed.
func (p *Processor) logSanitised(original, sanitised *legacy.Service, logger *zap.Logger) {
	before, err := attributevalue.MarshalMap(original)
	if err != nil {
		logger.Debug("Failed to marshal service for comparison", zap.Error(err))
		return
	}
	after, err := attributevalue.MarshalMap(sanitised)
	if err != nil {
		logger.Debug("Failed to marshal service for comparison", zap.Error(err))
		return
	}
	if changes := p.detector.Detect(before, after); len(changes) > 0 {
		logging.Log(logger, logging.SMVAL003, zap.Any("changes", changes))
	}
}

func (p *Processor) publish(ctx context.Context, state *dm.State, op events.Operation, logger *zap.Logger) {
	if p.publisher == nil {
		return
	}
	event := events.NewRecordMigrated(state.SourceRecordID, state.Version, op, p.clock.Now())
	event.OrganisationID = state.OrganisationID
	event.LocationID = state.LocationID
	event.HealthcareServiceID = state.HealthcareServiceID
	if err := p.publisher.Publish(ctx, event); err != nil {
		logging.Log(logger, logging.DMETL039, zap.Error(err))
	}
}

// retryable classifies a failed transaction. The write is all or nothing so
// any failure can be retried from a fresh state read.
func retryable(serviceID int, err error) *MigrationError {
	backoff := apperrors.BackoffExponential
	if appErr := apperrors.GetAppError(err); appErr != nil && appErr.Backoff != apperrors.BackoffNone && appErr.Backoff != "" {
		backoff = appErr.Backoff
	}
	return &MigrationError{
		Kind:      KindRetryable,
		RecordID:  serviceID,
		Reason:    "transaction failed",
		Reference: logging.DMETL038.Code,
		Backoff:   backoff,
		Err:       err,
	}
}

// SyncAll synchronises every service matching filter with up to concurrency
// services in flight. Per service failures are counted and logged but do not
// stop the run.
func (p *Processor) SyncAll(ctx context.Context, filter legacy.ServiceFilter, concurrency int) (err error) {
	ctx, seg := p.tracer.StartSegment(ctx, "SyncAll")
	if seg != nil {
		defer func() { seg.Close(err) }()
	}

	ids, err := p.source.ListServiceIDs(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to list services: %w", err)
	}
	logging.Log(p.logger, logging.DMETL000, zap.Int("service_count", len(ids)), zap.Int("concurrency", concurrency))

	if concurrency < 1 {
		concurrency = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, id := range ids {
		if gctx.Err() != nil {
			break
		}
		id := id
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			_ = p.SyncService(gctx, id, "full_sync")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("full sync interrupted: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("full sync interrupted: %w", err)
	}

	logging.Log(p.logger, logging.DMETL999, zap.Any("metrics", p.Metrics()))
	return nil
}
