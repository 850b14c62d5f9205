package events

import "time"

// Source is the EventBridge source of every event published by the migration.
const Source = "ftrs.data-migration"

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

// Operation is the kind of write a committed synchronisation made.
type Operation string

const (
	OperationInsert Operation = "insert"
	OperationUpdate Operation = "update"
)

// RecordMigrated is raised after a synchronisation commits. Version is the
// migration state version written by the commit.
type RecordMigrated struct {
	BaseEvent
	SourceRecordID      string    `json:"source_record_id"`
	Operation           Operation `json:"operation"`
	OrganisationID      *string   `json:"organisation_id,omitempty"`
	LocationID          *string   `json:"location_id,omitempty"`
	HealthcareServiceID *string   `json:"healthcare_service_id,omitempty"`
}

// NewRecordMigrated creates a RecordMigrated event
func NewRecordMigrated(sourceRecordID string, version int, op Operation, timestamp time.Time) RecordMigrated {
	return RecordMigrated{
		BaseEvent: BaseEvent{
			AggregateID: sourceRecordID,
			EventType:   "migration.record_migrated",
			Timestamp:   timestamp,
			Version:     version,
		},
		SourceRecordID: sourceRecordID,
		Operation:      op,
	}
}
