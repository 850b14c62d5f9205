package di

import (
	"context"
	"fmt"

	"data-migration/application/migration"
	"data-migration/application/ports"
	"data-migration/application/queue"
	"data-migration/application/transformers"
	"data-migration/application/versionhistory"
	dm "data-migration/domain/migration"
	"data-migration/infrastructure/config"
	"data-migration/infrastructure/messaging/eventbridge"
	"data-migration/infrastructure/persistence/dynamodb"
	"data-migration/infrastructure/persistence/memory"
	"data-migration/infrastructure/persistence/postgres"
	"data-migration/pkg/logging"
	"data-migration/pkg/observability"
	"data-migration/pkg/utils"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-xray-sdk-go/instrumentation/awsv2"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

const serviceName = "data-migration"

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.New(serviceName, cfg.LogLevel, cfg.IsLocal())
}

// ProvideClock provides the wall clock
func ProvideClock() utils.Clock {
	return utils.SystemClock{}
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	if cfg.EnableTracing {
		awsv2.AWSV2Instrumentor(&awsCfg.APIOptions)
	}
	return awsCfg, nil
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config, cfg *config.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg, func(o *awsdynamodb.Options) {
		if cfg.DynamoDBEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.DynamoDBEndpoint)
		}
	})
}

// ProvideTableClient exposes the DynamoDB client to the repositories
func ProvideTableClient(client *awsdynamodb.Client) dynamodb.Client {
	return client
}

// ProvideMemoryStore creates an in-memory store holding every table, for dry
// runs
func ProvideMemoryStore(cfg *config.Config, logger *zap.Logger) dynamodb.Client {
	store := memory.NewStore(logger.Named("memory"))
	for _, entity := range []string{
		config.EntityOrganisation,
		config.EntityLocation,
		config.EntityHealthcareService,
	} {
		store.CreateTable(cfg.TableName(entity), memory.KeySchema{PartitionKey: "id", SortKey: "field"})
	}
	store.CreateTable(cfg.TableName(config.EntityState), memory.KeySchema{PartitionKey: dm.KeySourceRecordID})
	store.CreateTable(cfg.TableName(config.EntityVersionHistory), memory.KeySchema{PartitionKey: "entity_id", SortKey: "timestamp"})
	return store
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideCloudWatchClient creates a CloudWatch client
func ProvideCloudWatchClient(awsCfg aws.Config) *awscloudwatch.Client {
	return awscloudwatch.NewFromConfig(awsCfg)
}

// ProvideEventPublisher creates the EventBridge publisher. It returns nil when
// events are disabled or no bus is configured.
func ProvideEventPublisher(client *awseventbridge.Client, cfg *config.Config, logger *zap.Logger) ports.EventPublisher {
	if !cfg.EnableEvents || cfg.EventBusName == "" {
		return nil
	}
	return eventbridge.NewPublisher(client, cfg.EventBusName, logger)
}

// ProvideNoEventPublisher disables event publishing
func ProvideNoEventPublisher() ports.EventPublisher {
	return nil
}

// ProvideMetricsPublisher creates the CloudWatch metrics publisher
func ProvideMetricsPublisher(client *awscloudwatch.Client, cfg *config.Config) ports.MetricsPublisher {
	if !cfg.EnableMetrics {
		return observability.NewMetrics(cfg.MetricsNamespace, nil)
	}
	return observability.NewMetrics(cfg.MetricsNamespace, client)
}

// ProvideNoMetricsPublisher creates a metrics publisher that drops everything
func ProvideNoMetricsPublisher(cfg *config.Config) ports.MetricsPublisher {
	return observability.NewMetrics(cfg.MetricsNamespace, nil)
}

// ProvideCollector creates the prometheus collector
func ProvideCollector(cfg *config.Config) *observability.Collector {
	return observability.NewCollector(cfg.MetricsNamespace)
}

// ProvideTracer creates the X-Ray tracer
func ProvideTracer(cfg *config.Config) *observability.Tracer {
	return observability.NewTracer(serviceName, cfg.EnableTracing)
}

// ProvideTables resolves the tables a synchronisation writes to
func ProvideTables(cfg *config.Config) (migration.Tables, error) {
	tables := migration.Tables{
		Organisation:      cfg.TableName(config.EntityOrganisation),
		Location:          cfg.TableName(config.EntityLocation),
		HealthcareService: cfg.TableName(config.EntityHealthcareService),
		State:             cfg.TableName(config.EntityState),
	}
	if err := utils.ValidateStruct(tables); err != nil {
		return migration.Tables{}, fmt.Errorf("failed to resolve tables: %w", err)
	}
	return tables, nil
}

// ProvideStateRepository creates the migration state repository
func ProvideStateRepository(client dynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.StateRepository {
	return dynamodb.NewStateRepository(client, cfg.TableName(config.EntityState), logger)
}

// ProvideTransactionWriter creates the transaction executor
func ProvideTransactionWriter(client dynamodb.Client, logger *zap.Logger) ports.TransactionWriter {
	return dynamodb.NewTransactionExecutor(client, logger)
}

// ProvideVersionHistoryWriter creates the version history repository
func ProvideVersionHistoryWriter(client dynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.VersionHistoryWriter {
	return dynamodb.NewVersionHistoryRepository(client, cfg.TableName(config.EntityVersionHistory), logger)
}

// ProvideSourceDB opens the DoS database. The cleanup closes it.
func ProvideSourceDB(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*sqlx.DB, func(), error) {
	if err := cfg.Source.Validate(); err != nil {
		return nil, nil, err
	}
	db, err := postgres.Open(ctx, cfg.Source.ConnectionString(), cfg.Source.MaxOpenConns)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := db.Close(); err != nil {
			logger.Warn("Failed to close source database", zap.Error(err))
		}
	}
	return db, cleanup, nil
}

// ProvideBreaker creates the circuit breaker around source reads
func ProvideBreaker(cfg *config.Config, collector *observability.Collector, logger *zap.Logger) *postgres.Breaker {
	return postgres.NewBreaker(postgres.BreakerSettings{
		Name:                "dos-source",
		ConsecutiveFailures: cfg.Source.BreakerFailures,
		Timeout:             cfg.Source.BreakerTimeout,
	}, collector, logger)
}

// ProvideSourceRepository creates the DoS service repository
func ProvideSourceRepository(db *sqlx.DB, breaker *postgres.Breaker, logger *zap.Logger) ports.SourceRepository {
	return postgres.NewSourceRepository(db, breaker, logger)
}

// ProvideMetadataProvider creates the cached DoS metadata repository
func ProvideMetadataProvider(db *sqlx.DB, breaker *postgres.Breaker, cfg *config.Config, logger *zap.Logger) ports.MetadataProvider {
	return NewMetadataCache(
		postgres.NewMetadataRepository(db, breaker, logger),
		cfg.MetadataCacheTTL,
		logger,
	)
}

// ProvideTransformers returns the transformer registry
func ProvideTransformers(clock utils.Clock) []transformers.Transformer {
	return transformers.Default(clock)
}

// ProvideProcessor creates the migration processor
func ProvideProcessor(
	source ports.SourceRepository,
	metadata ports.MetadataProvider,
	states ports.StateRepository,
	writer ports.TransactionWriter,
	registry []transformers.Transformer,
	tables migration.Tables,
	clock utils.Clock,
	tracer *observability.Tracer,
	collector *observability.Collector,
	publisher ports.EventPublisher,
	logger *zap.Logger,
) *migration.Processor {
	return migration.NewProcessor(source, metadata, states, writer, registry, tables, logger).
		WithClock(clock).
		WithTracer(tracer).
		WithCollector(collector).
		WithEventPublisher(publisher)
}

// ProvideQueueHandler creates the SQS batch handler
func ProvideQueueHandler(
	processor *migration.Processor,
	metrics ports.MetricsPublisher,
	cfg *config.Config,
	logger *zap.Logger,
) *queue.Handler {
	dimensions := map[string]string{"Environment": cfg.Environment}
	if cfg.Workspace != "" {
		dimensions["Workspace"] = cfg.Workspace
	}
	return queue.NewHandler(processor, metrics, dimensions, logger)
}

// ProvideVersionHistoryProcessor creates the stream record processor
func ProvideVersionHistoryProcessor(
	writer ports.VersionHistoryWriter,
	clock utils.Clock,
	logger *zap.Logger,
) *versionhistory.Processor {
	return versionhistory.NewProcessor(writer, clock, logger)
}
