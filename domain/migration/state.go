// Package migration holds the bookkeeping records of the DoS migration.
package migration

import (
	"fmt"

	"data-migration/domain/entities"
	"data-migration/domain/legacy"
)

// KeySourceRecordID is the partition key attribute of the state table.
const KeySourceRecordID = "source_record_id"

// FormatSourceRecordID builds the state key for a source row.
func FormatSourceRecordID(table string, recordID int) string {
	return fmt.Sprintf("%s#%d", table, recordID)
}

// ServiceRecordID is the state key of a DoS service.
func ServiceRecordID(serviceID int) string {
	return FormatSourceRecordID(legacy.TableServices, serviceID)
}

// State is the per source record migration state. A state exists only once a
// synchronisation has committed, and Version counts the commits.
//
// The entity copies are what the previous commit wrote and are the baseline
// the next synchronisation diffs against.
type State struct {
	SourceRecordID      string                      `dynamodbav:"source_record_id" json:"source_record_id"`
	Version             int                         `dynamodbav:"version" json:"version"`
	OrganisationID      *string                     `dynamodbav:"organisation_id" json:"organisation_id"`
	Organisation        *entities.Organisation      `dynamodbav:"organisation" json:"organisation"`
	LocationID          *string                     `dynamodbav:"location_id" json:"location_id"`
	Location            *entities.Location          `dynamodbav:"location" json:"location"`
	HealthcareServiceID *string                     `dynamodbav:"healthcare_service_id" json:"healthcare_service_id"`
	HealthcareService   *entities.HealthcareService `dynamodbav:"healthcare_service" json:"healthcare_service"`
	ValidationIssues    []ValidationIssue           `dynamodbav:"validation_issues" json:"validation_issues"`
}

// NewState returns the not yet persisted state of a service at version 0.
func NewState(serviceID int) *State {
	return &State{
		SourceRecordID:   ServiceRecordID(serviceID),
		Version:          0,
		ValidationIssues: []ValidationIssue{},
	}
}

// IsNew reports whether the state has never been committed.
func (s *State) IsNew() bool {
	return s == nil || s.Version == 0
}

// Next returns a copy of the state with the version advanced by one.
func (s *State) Next() *State {
	next := *s
	next.Version = s.Version + 1
	next.ValidationIssues = append([]ValidationIssue{}, s.ValidationIssues...)
	return &next
}
