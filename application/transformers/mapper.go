package transformers

import (
	"fmt"
	"math/big"
	"sort"
	"strings"
	"time"

	"data-migration/domain/entities"
	"data-migration/domain/legacy"
	"data-migration/pkg/logging"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MigrationNamespace seeds the name based UUIDs of migrated entities, so the
// same source row always maps to the same target id.
var MigrationNamespace = uuid.MustParse("fa3aaa15-9f83-4f4a-8f86-fd1315248bcb")

// Entity kinds used when generating ids.
const (
	KindOrganisation      = "organisation"
	KindLocation          = "location"
	KindHealthcareService = "healthcare_service"
	KindEndpoint          = "endpoint"
)

// GenerateID returns the deterministic id of the entity of the given kind
// created from source row sourceID.
func GenerateID(sourceID int, kind string) string {
	return uuid.NewSHA1(MigrationNamespace, []byte(fmt.Sprintf("%d-%s", sourceID, kind))).String()
}

// payloadMimeTypes maps DoS endpoint formats to MIME types. Unknown formats
// are kept as they are.
var payloadMimeTypes = map[string]string{
	"PDF":  "application/pdf",
	"HTML": "text/html",
	"FHIR": "application/fhir",
	"CDA":  "application/hl7-cda+xml",
	"XML":  "application/xml",
}

// ageTolerance is how far apart two age ranges may be, in days, and still be
// treated as consecutive.
var ageTolerance = big.NewRat(1, 1)

// mapper builds target entities from a sanitised source record.
type mapper struct {
	metadata *legacy.Metadata
	logger   *zap.Logger
	audit    entities.Audit
}

func newMapper(metadata *legacy.Metadata, logger *zap.Logger, now time.Time) *mapper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &mapper{
		metadata: metadata,
		logger:   logger,
		audit:    entities.NewAudit(entities.MigrationUser, now),
	}
}

func (m *mapper) organisation(s *legacy.Service) *entities.Organisation {
	id := GenerateID(s.ID, KindOrganisation)

	name := s.Name
	if s.PublicName != nil {
		name = *s.PublicName
	}

	var orgType *string
	if st, ok := m.metadata.ServiceTypes[s.TypeID]; ok {
		orgType = entities.StringPtr(st.Name)
	}

	endpoints := make([]entities.Endpoint, 0, len(s.Endpoints))
	for _, e := range s.Endpoints {
		endpoints = append(endpoints, m.endpoint(e, id))
	}

	return &entities.Organisation{
		ID:                  id,
		Field:               entities.DocumentField,
		IdentifierOldDoSUID: entities.StringPtr(s.UID),
		IdentifierODSCode:   s.ODSCode,
		Active:              true,
		Name:                name,
		Telecom:             []string{},
		Type:                orgType,
		Endpoints:           endpoints,
		Audit:               m.audit,
	}
}

func (m *mapper) endpoint(e legacy.ServiceEndpoint, organisationID string) entities.Endpoint {
	payloadType := e.Interaction
	var mimeType *string
	if e.Format != nil {
		mime, ok := payloadMimeTypes[*e.Format]
		if !ok {
			mime = *e.Format
		}
		mimeType = &mime
	}
	if deref(e.Transport) == "telno" {
		payloadType = nil
		mimeType = nil
	}

	return entities.Endpoint{
		ID:                    GenerateID(e.ID, KindEndpoint),
		IdentifierOldDoSID:    e.ID,
		Status:                entities.EndpointStatusActive,
		ConnectionType:        e.Transport,
		BusinessScenario:      e.BusinessScenario,
		PayloadType:           payloadType,
		PayloadMimeType:       mimeType,
		Address:               e.Address,
		ManagedByOrganisation: organisationID,
		Order:                 e.EndpointOrder,
		IsCompressionEnabled:  deref(e.IsCompressionEnabled) == "compressed",
		Comment:               e.Comment,
		Audit:                 m.audit,
	}
}

func (m *mapper) location(s *legacy.Service, organisationID string) *entities.Location {
	address := FormatAddress(s.Address, s.Town, s.Postcode)
	if address == nil {
		logging.Log(m.logger, logging.DMETL016, zap.String("organisation_id", organisationID))
	} else {
		logging.Log(m.logger, logging.DMETL015,
			zap.String("organisation_id", organisationID),
			zap.Any("address", address),
		)
	}

	var position *entities.PositionGCS
	if deref(s.Latitude) != "" && deref(s.Longitude) != "" {
		position = &entities.PositionGCS{
			Latitude:  entities.Decimal(*s.Latitude),
			Longitude: entities.Decimal(*s.Longitude),
		}
	}

	return &entities.Location{
		ID:                   GenerateID(s.ID, KindLocation),
		Field:                entities.DocumentField,
		IdentifierOldDoSUID:  entities.StringPtr(s.UID),
		Active:               true,
		ManagingOrganisation: organisationID,
		Address:              address,
		PositionGCS:          position,
		PrimaryAddress:       true,
		Audit:                m.audit,
	}
}

func (m *mapper) healthcareService(s *legacy.Service, organisationID, locationID, category, serviceType string) (*entities.HealthcareService, error) {
	openingTimes, err := m.openingTimes(s)
	if err != nil {
		return nil, err
	}
	ageCriteria, err := m.ageEligibility(s)
	if err != nil {
		return nil, err
	}

	return &entities.HealthcareService{
		ID:                  GenerateID(s.ID, KindHealthcareService),
		Field:               entities.DocumentField,
		IdentifierOldDoSUID: entities.StringPtr(s.UID),
		Active:              true,
		Category:            entities.StringPtr(category),
		Type:                entities.StringPtr(serviceType),
		ProvidedBy:          &organisationID,
		Location:            &locationID,
		Name:                s.Name,
		Telecom: &entities.Telecom{
			PhonePublic:  s.PublicPhone,
			PhonePrivate: s.NonPublicPhone,
			Email:        s.Email,
			Web:          s.Web,
		},
		OpeningTime:                       openingTimes,
		SymptomGroupSymptomDiscriminators: m.sgsds(s),
		Dispositions:                      m.dispositions(s),
		AgeEligibilityCriteria:            ageCriteria,
		Audit:                             m.audit,
	}, nil
}

func (m *mapper) openingTimes(s *legacy.Service) ([]entities.OpeningTime, error) {
	items := []entities.OpeningTime{}

	for _, opening := range s.ScheduledOpeningTimes {
		day, ok := m.metadata.OpeningTimeDays[opening.DayID]
		if !ok {
			return nil, fmt.Errorf("unknown opening time day %d", opening.DayID)
		}

		category := entities.OpeningTimeAvailable
		var dayOfWeek *string
		if day.Name == legacy.DayBankHoliday {
			category = entities.OpeningTimePublicHolidays
		} else {
			name := strings.ToLower(day.Name)
			if len(name) > 3 {
				name = name[:3]
			}
			dayOfWeek = &name
		}

		for _, t := range opening.Times {
			items = append(items, entities.OpeningTime{
				Category:  category,
				DayOfWeek: dayOfWeek,
				StartTime: t.StartTime,
				EndTime:   t.EndTime,
			})
		}
	}

	for _, specified := range s.SpecifiedOpeningTimes {
		date := specified.Date.Format("2006-01-02")
		for _, t := range specified.Times {
			category := entities.OpeningTimeVariations
			if t.IsClosed {
				category = entities.OpeningTimeNotAvailable
			}
			items = append(items, entities.OpeningTime{
				Category:  category,
				StartTime: date + "T" + t.StartTime,
				EndTime:   date + "T" + t.EndTime,
			})
		}
	}

	return items, nil
}

func (m *mapper) sgsds(s *legacy.Service) []entities.SGSDPair {
	pairs := make([]entities.SGSDPair, 0, len(s.SGSDs))
	for _, code := range s.SGSDs {
		pairs = append(pairs, entities.SGSDPair{SG: code.SGID, SD: code.SDID})
	}
	return pairs
}

func (m *mapper) dispositions(s *legacy.Service) []string {
	codes := make([]string, 0, len(s.Dispositions))
	for _, d := range s.Dispositions {
		disposition, ok := m.metadata.Dispositions[d.DispositionID]
		if !ok || disposition.DXCode == nil {
			logging.Log(m.logger, logging.DMETL018,
				zap.Int("service_id", s.ID),
				zap.Int("disposition_id", d.DispositionID),
			)
			continue
		}
		codes = append(codes, *disposition.DXCode)
	}
	return codes
}

type ratRange struct {
	from, to *big.Rat
}

// ageEligibility merges the DoS age ranges, which are in days, into as few
// ranges as possible. Ranges within a day of each other or overlapping are
// combined. It returns nil when the service has no age ranges.
func (m *mapper) ageEligibility(s *legacy.Service) ([]entities.AgeRange, error) {
	if len(s.AgeRanges) == 0 {
		logging.Log(m.logger, logging.DMETL017, zap.Int("service_id", s.ID))
		return nil, nil
	}

	ranges := make([]ratRange, 0, len(s.AgeRanges))
	for _, r := range s.AgeRanges {
		from, ok := new(big.Rat).SetString(r.DaysFrom)
		if !ok {
			return nil, fmt.Errorf("invalid age range start %q", r.DaysFrom)
		}
		to, ok := new(big.Rat).SetString(r.DaysTo)
		if !ok {
			return nil, fmt.Errorf("invalid age range end %q", r.DaysTo)
		}
		ranges = append(ranges, ratRange{from: from, to: to})
	}
	sort.SliceStable(ranges, func(i, j int) bool { return ranges[i].from.Cmp(ranges[j].from) < 0 })

	var merged []ratRange
	current := ranges[0]
	for _, next := range ranges[1:] {
		gap := new(big.Rat).Sub(next.from, current.to)
		switch {
		case new(big.Rat).Abs(gap).Cmp(ageTolerance) <= 0:
			current.to = next.to
		case next.from.Cmp(current.to) <= 0:
			if next.to.Cmp(current.to) > 0 {
				current.to = next.to
			}
		default:
			merged = append(merged, current)
			current = next
		}
	}
	merged = append(merged, current)

	out := make([]entities.AgeRange, 0, len(merged))
	for _, r := range merged {
		out = append(out, entities.AgeRange{
			RangeFrom: formatDecimal(r.from),
			RangeTo:   formatDecimal(r.to),
			Type:      entities.TimeUnitDays,
		})
	}
	return out, nil
}

// formatDecimal renders r without trailing zeros, e.g. 365 or 364.25.
func formatDecimal(r *big.Rat) entities.Decimal {
	if r.IsInt() {
		return entities.Decimal(r.Num().String())
	}
	s := r.FloatString(10)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	return entities.Decimal(s)
}
