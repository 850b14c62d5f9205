package di

import (
	"data-migration/application/migration"
	"data-migration/application/queue"
	"data-migration/application/versionhistory"
	"data-migration/infrastructure/config"
	"data-migration/pkg/observability"

	"go.uber.org/zap"
)

// MigrationContainer holds the dependencies of a DoS to DynamoDB sync
type MigrationContainer struct {
	Config    *config.Config
	Logger    *zap.Logger
	Processor *migration.Processor
	Handler   *queue.Handler
	Collector *observability.Collector
}

// VersionHistoryContainer holds the dependencies of the stream handler
type VersionHistoryContainer struct {
	Config    *config.Config
	Logger    *zap.Logger
	Processor *versionhistory.Processor
}
