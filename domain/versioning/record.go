package versioning

import (
	"fmt"
	"time"
)

// ChangeType represents the type of change
type ChangeType string

const (
	ChangeTypeUpdate ChangeType = "UPDATE"
)

// FieldChange is the before and after value of one changed field path.
type FieldChange struct {
	Old interface{} `dynamodbav:"old" json:"old"`
	New interface{} `dynamodbav:"new" json:"new"`
}

// ChangedBy identifies who made a change.
type ChangedBy struct {
	Display string `dynamodbav:"display" json:"display"`
	Type    string `dynamodbav:"type" json:"type"`
	Value   string `dynamodbav:"value" json:"value"`
}

// UnknownActor is recorded when a document carries no usable lastUpdatedBy.
var UnknownActor = ChangedBy{
	Display: "Unknown",
	Type:    "system",
	Value:   "unknown",
}

// Record is one entry of the version history table.
type Record struct {
	EntityID      string                 `dynamodbav:"entity_id" json:"entity_id"`
	Timestamp     string                 `dynamodbav:"timestamp" json:"timestamp"`
	ChangeType    ChangeType             `dynamodbav:"change_type" json:"change_type"`
	ChangedFields map[string]FieldChange `dynamodbav:"changed_fields" json:"changed_fields"`
	ChangedBy     ChangedBy              `dynamodbav:"changed_by" json:"changed_by"`
}

// EntityID builds the history key of a document row.
func EntityID(table, recordID, field string) string {
	return fmt.Sprintf("%s|%s|%s", table, recordID, field)
}

// Timestamp formats t as the history sort key.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ExtractChangedBy reads the lastUpdatedBy audit event of a decoded document.
// Missing or malformed values fall back to UnknownActor field by field.
func ExtractChangedBy(document map[string]interface{}) ChangedBy {
	if len(document) == 0 {
		return UnknownActor
	}
	raw, ok := document["lastUpdatedBy"].(map[string]interface{})
	if !ok || len(raw) == 0 {
		return UnknownActor
	}
	return ChangedBy{
		Display: stringOr(raw["display"], UnknownActor.Display),
		Type:    stringOr(raw["type"], UnknownActor.Type),
		Value:   stringOr(raw["value"], UnknownActor.Value),
	}
}

func stringOr(v interface{}, fallback string) string {
	if v == nil {
		return fallback
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
