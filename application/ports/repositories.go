package ports

import (
	"context"

	"data-migration/domain/events"
	"data-migration/domain/legacy"
	"data-migration/domain/migration"
	"data-migration/domain/versioning"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// SourceRepository reads services from the DoS database.
// This is a port in hexagonal architecture - the domain doesn't know about the implementation
type SourceRepository interface {
	// GetService loads a service with all of its child rows. It returns a
	// NOT_FOUND AppError when the service does not exist.
	GetService(ctx context.Context, id int) (*legacy.Service, error)

	// ListServiceIDs returns the ids of every service matching filter, in
	// ascending order.
	ListServiceIDs(ctx context.Context, filter legacy.ServiceFilter) ([]int, error)
}

// MetadataProvider supplies the DoS reference data used by transformers.
type MetadataProvider interface {
	Metadata(ctx context.Context) (*legacy.Metadata, error)
}

// StateRepository reads migration state.
type StateRepository interface {
	// GetState returns nil and no error when no state exists for the id.
	GetState(ctx context.Context, sourceRecordID string) (*migration.State, error)
}

// TransactionWriter executes a prepared list of transaction items
// atomically.
type TransactionWriter interface {
	Write(ctx context.Context, items []types.TransactWriteItem) error
}

// VersionHistoryWriter stores change records of target entities.
type VersionHistoryWriter interface {
	WriteChangeRecord(ctx context.Context, record versioning.Record) error
}

// EventPublisher publishes domain events
type EventPublisher interface {
	Publish(ctx context.Context, event events.DomainEvent) error
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}

// MetricsPublisher reports batch counters.
type MetricsPublisher interface {
	PublishCounters(ctx context.Context, counters map[string]int, dimensions map[string]string) error
}
