package entities

// HealthcareService categories and types produced by the migration.
const (
	CategoryGPServices        = "GP Services"
	TypeGPConsultationService = "GP Consultation Service"
	TimeUnitDays              = "days"
	OpeningTimeAvailable      = "availableTime"
	OpeningTimeVariations     = "availableTimeVariations"
	OpeningTimePublicHolidays = "availableTimePublicHolidays"
	OpeningTimeNotAvailable   = "notAvailable"
)

// HealthcareService is the service offered at a location.
type HealthcareService struct {
	ID                                string        `dynamodbav:"id" json:"id"`
	Field                             string        `dynamodbav:"field" json:"field"`
	IdentifierOldDoSUID               *string       `dynamodbav:"identifier_oldDoS_uid" json:"identifier_oldDoS_uid"`
	Active                            bool          `dynamodbav:"active" json:"active"`
	Category                          *string       `dynamodbav:"category" json:"category"`
	Type                              *string       `dynamodbav:"type" json:"type"`
	ProvidedBy                        *string       `dynamodbav:"providedBy" json:"providedBy"`
	Location                          *string       `dynamodbav:"location" json:"location"`
	Name                              string        `dynamodbav:"name" json:"name"`
	Telecom                           *Telecom      `dynamodbav:"telecom" json:"telecom"`
	OpeningTime                       []OpeningTime `dynamodbav:"openingTime" json:"openingTime"`
	SymptomGroupSymptomDiscriminators []SGSDPair    `dynamodbav:"symptomGroupSymptomDiscriminators" json:"symptomGroupSymptomDiscriminators"`
	Dispositions                      []string      `dynamodbav:"dispositions" json:"dispositions"`
	AgeEligibilityCriteria            []AgeRange    `dynamodbav:"ageEligibilityCriteria" json:"ageEligibilityCriteria"`
	Audit
}

// Telecom holds the contact details of a service.
type Telecom struct {
	PhonePublic  *string `dynamodbav:"phone_public" json:"phone_public"`
	PhonePrivate *string `dynamodbav:"phone_private" json:"phone_private"`
	Email        *string `dynamodbav:"email" json:"email"`
	Web          *string `dynamodbav:"web" json:"web"`
}

// OpeningTime is one availability window. DayOfWeek is set for weekly
// availability only; dated variations carry full timestamps in Start/End.
type OpeningTime struct {
	Category  string  `dynamodbav:"category" json:"category"`
	DayOfWeek *string `dynamodbav:"dayOfWeek" json:"dayOfWeek"`
	StartTime string  `dynamodbav:"startTime" json:"startTime"`
	EndTime   string  `dynamodbav:"endTime" json:"endTime"`
	AllDay    bool    `dynamodbav:"allDay" json:"allDay"`
}

// SGSDPair is a symptom group / symptom discriminator code pair.
type SGSDPair struct {
	SG int `dynamodbav:"sg" json:"sg"`
	SD int `dynamodbav:"sd" json:"sd"`
}

// AgeRange is an eligibility window expressed in Type units.
type AgeRange struct {
	RangeFrom Decimal `dynamodbav:"rangeFrom" json:"rangeFrom"`
	RangeTo   Decimal `dynamodbav:"rangeTo" json:"rangeTo"`
	Type      string  `dynamodbav:"type" json:"type"`
}
