// Package entities holds the target documents produced by the migration.
//
// Every document is addressed by its generated id plus the fixed field
// DocumentField. Optional attributes are pointers without omitempty so that a
// cleared value is stored as NULL instead of being dropped from the item.
package entities

import "time"

// DocumentField is the sort key value of the full-document row of an entity.
const DocumentField = "document"

// Audit attribute names. They change on every write and are never treated as
// data changes.
const (
	AttrCreatedBy     = "createdBy"
	AttrCreatedTime   = "createdTime"
	AttrLastUpdatedBy = "lastUpdatedBy"
	AttrLastUpdated   = "lastUpdated"
)

// AuditFields lists the audit attribute names.
var AuditFields = []string{AttrCreatedBy, AttrCreatedTime, AttrLastUpdatedBy, AttrLastUpdated}

// AuditEventType classifies who made a change.
type AuditEventType string

const (
	AuditEventTypeApp    AuditEventType = "app"
	AuditEventTypeUser   AuditEventType = "user"
	AuditEventTypeSystem AuditEventType = "system"
)

// AuditEvent identifies the actor of a create or update.
type AuditEvent struct {
	Type    AuditEventType `dynamodbav:"type" json:"type"`
	Value   string         `dynamodbav:"value" json:"value"`
	Display string         `dynamodbav:"display" json:"display"`
}

// MigrationUser is the actor recorded on everything written by the migration.
var MigrationUser = AuditEvent{
	Type:    AuditEventTypeApp,
	Value:   "INTERNAL001",
	Display: "Data Migration",
}

// Audit is embedded by every document.
type Audit struct {
	CreatedBy     AuditEvent `dynamodbav:"createdBy" json:"createdBy"`
	CreatedTime   time.Time  `dynamodbav:"createdTime" json:"createdTime"`
	LastUpdatedBy AuditEvent `dynamodbav:"lastUpdatedBy" json:"lastUpdatedBy"`
	LastUpdated   time.Time  `dynamodbav:"lastUpdated" json:"lastUpdated"`
}

// NewAudit stamps a document as created and last updated by actor at ts.
func NewAudit(actor AuditEvent, ts time.Time) Audit {
	return Audit{
		CreatedBy:     actor,
		CreatedTime:   ts,
		LastUpdatedBy: actor,
		LastUpdated:   ts,
	}
}

// Decimal is an exact decimal number kept in its textual form. It is stored
// as a string attribute so coordinates never pass through a float.
type Decimal string

// String returns the textual value.
func (d Decimal) String() string {
	return string(d)
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
