package migration

import "data-migration/domain/entities"

// TransformResult is what a transformer produced for one source record. Any
// entity may be nil.
type TransformResult struct {
	Organisation      *entities.Organisation
	Location          *entities.Location
	HealthcareService *entities.HealthcareService
	ValidationIssues  []ValidationIssue
}

// Metrics counts synchronisation outcomes over a batch.
type Metrics struct {
	Total       int `json:"total"`
	Supported   int `json:"supported"`
	Unsupported int `json:"unsupported"`
	Transformed int `json:"transformed"`
	Invalid     int `json:"invalid"`
	Inserted    int `json:"inserted"`
	Updated     int `json:"updated"`
	Skipped     int `json:"skipped"`
	Errored     int `json:"errored"`
}

// Reset zeroes every counter.
func (m *Metrics) Reset() {
	*m = Metrics{}
}

// Counters returns the counters keyed by metric name.
func (m Metrics) Counters() map[string]int {
	return map[string]int{
		"total":       m.Total,
		"supported":   m.Supported,
		"unsupported": m.Unsupported,
		"transformed": m.Transformed,
		"invalid":     m.Invalid,
		"inserted":    m.Inserted,
		"updated":     m.Updated,
		"skipped":     m.Skipped,
		"errored":     m.Errored,
	}
}
