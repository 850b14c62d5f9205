// Package legacy models the Directory of Services (DoS) source records read
// from the relational database. Values are read-only for the migration.
package legacy

import "time"

// Source tables that can trigger a synchronisation.
const (
	TableServices                     = "services"
	TableServiceEndpoints             = "serviceendpoints"
	TableServiceDayOpenings           = "servicedayopenings"
	TableServiceSpecifiedOpeningDates = "servicespecifiedopeningdates"
	TableServiceSGSDs                 = "servicesgsds"
	TableServiceDispositions          = "servicedispositions"
	TableServiceAgeRange              = "serviceagerange"
)

// ChildTables are tables whose rows belong to a parent service.
var ChildTables = []string{
	TableServiceEndpoints,
	TableServiceDayOpenings,
	TableServiceSpecifiedOpeningDates,
	TableServiceSGSDs,
	TableServiceDispositions,
	TableServiceAgeRange,
}

// IsChildTable reports whether rows of table belong to a parent service.
func IsChildTable(table string) bool {
	for _, t := range ChildTables {
		if t == table {
			return true
		}
	}
	return false
}

// Service is a DoS service together with its child rows.
type Service struct {
	ID             int
	UID            string
	Name           string
	PublicName     *string
	ODSCode        *string
	TypeID         int
	StatusID       *int
	Address        *string
	Town           *string
	Postcode       *string
	PublicPhone    *string
	NonPublicPhone *string
	Email          *string
	Web            *string
	Latitude       *string
	Longitude      *string
	ModifiedTime   *time.Time

	Endpoints             []ServiceEndpoint
	ScheduledOpeningTimes []ServiceDayOpening
	SpecifiedOpeningTimes []ServiceSpecifiedOpeningDate
	SGSDs                 []ServiceSGSD
	Dispositions          []ServiceDisposition
	AgeRanges             []ServiceAgeRange
}

// Clone returns a deep copy so a validator can sanitise without touching the
// original record.
func (s *Service) Clone() *Service {
	if s == nil {
		return nil
	}
	c := *s
	c.PublicName = cloneString(s.PublicName)
	c.ODSCode = cloneString(s.ODSCode)
	c.Address = cloneString(s.Address)
	c.Town = cloneString(s.Town)
	c.Postcode = cloneString(s.Postcode)
	c.PublicPhone = cloneString(s.PublicPhone)
	c.NonPublicPhone = cloneString(s.NonPublicPhone)
	c.Email = cloneString(s.Email)
	c.Web = cloneString(s.Web)
	c.Latitude = cloneString(s.Latitude)
	c.Longitude = cloneString(s.Longitude)
	if s.StatusID != nil {
		v := *s.StatusID
		c.StatusID = &v
	}
	c.Endpoints = append([]ServiceEndpoint(nil), s.Endpoints...)
	c.ScheduledOpeningTimes = append([]ServiceDayOpening(nil), s.ScheduledOpeningTimes...)
	c.SpecifiedOpeningTimes = append([]ServiceSpecifiedOpeningDate(nil), s.SpecifiedOpeningTimes...)
	c.SGSDs = append([]ServiceSGSD(nil), s.SGSDs...)
	c.Dispositions = append([]ServiceDisposition(nil), s.Dispositions...)
	c.AgeRanges = append([]ServiceAgeRange(nil), s.AgeRanges...)
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// ServiceEndpoint is a row of serviceendpoints.
type ServiceEndpoint struct {
	ID                   int
	EndpointOrder        int
	Transport            *string
	Format               *string
	Interaction          *string
	BusinessScenario     *string
	Address              *string
	Comment              *string
	IsCompressionEnabled *string
	ServiceID            int
}

// ServiceDayOpening groups the opening times of one weekday.
type ServiceDayOpening struct {
	ID    int
	DayID int
	Times []OpeningTime
}

// OpeningTime is a start/end pair in "15:04:05" form.
type OpeningTime struct {
	StartTime string
	EndTime   string
}

// ServiceSpecifiedOpeningDate groups the times that apply on one date.
type ServiceSpecifiedOpeningDate struct {
	ID    int
	Date  time.Time
	Times []SpecifiedOpeningTime
}

// SpecifiedOpeningTime is a dated opening or closure.
type SpecifiedOpeningTime struct {
	StartTime string
	EndTime   string
	IsClosed  bool
}

// ServiceSGSD is a symptom group / discriminator pair attached to a service.
type ServiceSGSD struct {
	SGID int
	SDID int
}

// ServiceDisposition links a service to a disposition.
type ServiceDisposition struct {
	DispositionID int
}

// ServiceAgeRange is an age window in days, stored as decimal text.
type ServiceAgeRange struct {
	DaysFrom string
	DaysTo   string
}

// ServiceFilter narrows a full sync to some service types and statuses.
type ServiceFilter struct {
	TypeIDs   []int
	StatusIDs []int
}
