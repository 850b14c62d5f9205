//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"data-migration/infrastructure/config"

	"github.com/google/wire"
)

// TableSet provides the DynamoDB backed repositories
var TableSet = wire.NewSet(
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideTableClient,
)

// SourceSet provides the DoS database and its repositories
var SourceSet = wire.NewSet(
	ProvideSourceDB,
	ProvideBreaker,
	ProvideSourceRepository,
	ProvideMetadataProvider,
)

// MigrationSet is the provider set shared by every sync entry point
var MigrationSet = wire.NewSet(
	ProvideLogger,
	ProvideClock,
	ProvideCollector,
	ProvideTracer,
	ProvideTables,
	ProvideStateRepository,
	ProvideTransactionWriter,
	ProvideTransformers,
	ProvideProcessor,
	ProvideQueueHandler,
	SourceSet,
	wire.Struct(new(MigrationContainer), "*"),
)

// InitializeMigrationContainer wires a sync against the real tables
func InitializeMigrationContainer(ctx context.Context, cfg *config.Config) (*MigrationContainer, func(), error) {
	wire.Build(
		MigrationSet,
		TableSet,
		ProvideEventBridgeClient,
		ProvideCloudWatchClient,
		ProvideEventPublisher,
		ProvideMetricsPublisher,
	)
	return nil, nil, nil // Wire will replace this
}

// InitializeDryRunContainer wires a sync that writes to in-memory tables and
// publishes nothing
func InitializeDryRunContainer(ctx context.Context, cfg *config.Config) (*MigrationContainer, func(), error) {
	wire.Build(
		MigrationSet,
		ProvideMemoryStore,
		ProvideNoEventPublisher,
		ProvideNoMetricsPublisher,
	)
	return nil, nil, nil // Wire will replace this
}

// InitializeVersionHistoryContainer wires the version history stream handler
func InitializeVersionHistoryContainer(ctx context.Context, cfg *config.Config) (*VersionHistoryContainer, error) {
	wire.Build(
		ProvideLogger,
		ProvideClock,
		TableSet,
		ProvideVersionHistoryWriter,
		ProvideVersionHistoryProcessor,
		wire.Struct(new(VersionHistoryContainer), "*"),
	)
	return nil, nil // Wire will replace this
}
