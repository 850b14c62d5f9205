package transformers

import (
	"testing"
	"time"

	"data-migration/domain/entities"
	"data-migration/domain/legacy"
	"data-migration/domain/migration"
	"data-migration/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var migratedAt = time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func testMetadata() *legacy.Metadata {
	return &legacy.Metadata{
		ServiceTypes: map[int]legacy.ServiceType{
			100: {ID: 100, Name: "GP Practice"},
		},
		OpeningTimeDays: map[int]legacy.OpeningTimeDay{
			1: {ID: 1, Name: "Monday"},
			2: {ID: 2, Name: "Tuesday"},
			8: {ID: 8, Name: "BankHoliday"},
		},
		Dispositions: map[int]legacy.Disposition{
			10: {ID: 10, Name: "Speak to GP", DXCode: ptr("DX10")},
			11: {ID: 11, Name: "Contact GP", DXCode: ptr("DX11")},
		},
	}
}

func testService() *legacy.Service {
	return &legacy.Service{
		ID:             42,
		UID:            "138179",
		Name:           "Test Surgery",
		PublicName:     ptr("Test Surgery - Main Site"),
		ODSCode:        ptr("A12345"),
		TypeID:         100,
		StatusID:       ptr(1),
		Address:        ptr("1 High Street$Headingley$Leeds$West Yorkshire"),
		Town:           ptr("Leeds"),
		Postcode:       ptr("LS6 1AA"),
		PublicPhone:    ptr("0113 496 0000"),
		NonPublicPhone: ptr("01134960001"),
		Email:          ptr("practice@nhs.net"),
		Web:            ptr("www.example.nhs.uk"),
		Latitude:       ptr("53.8193"),
		Longitude:      ptr("-1.5784"),
		Endpoints: []legacy.ServiceEndpoint{
			{
				ID:                   1001,
				EndpointOrder:        1,
				Transport:            ptr("itk"),
				Format:               ptr("CDA"),
				Interaction:          ptr("urn:nhs-itk:interaction:primaryOutofHourRecipientNHS111CDADocument-v2-0"),
				BusinessScenario:     ptr("Primary"),
				Address:              ptr("https://itk.example.nhs.uk"),
				IsCompressionEnabled: ptr("compressed"),
				ServiceID:            42,
			},
			{
				ID:            1002,
				EndpointOrder: 2,
				Transport:     ptr("telno"),
				Format:        ptr("PDF"),
				Interaction:   ptr("scheduling"),
				Address:       ptr("01134960002"),
				ServiceID:     42,
			},
		},
		ScheduledOpeningTimes: []legacy.ServiceDayOpening{
			{ID: 1, DayID: 1, Times: []legacy.OpeningTime{{StartTime: "08:00:00", EndTime: "12:00:00"}, {StartTime: "13:00:00", EndTime: "18:30:00"}}},
			{ID: 2, DayID: 8, Times: []legacy.OpeningTime{{StartTime: "10:00:00", EndTime: "12:00:00"}}},
		},
		SpecifiedOpeningTimes: []legacy.ServiceSpecifiedOpeningDate{
			{
				ID:    1,
				Date:  time.Date(2025, 12, 25, 0, 0, 0, 0, time.UTC),
				Times: []legacy.SpecifiedOpeningTime{{StartTime: "00:00:00", EndTime: "23:59:59", IsClosed: true}},
			},
		},
		SGSDs:        []legacy.ServiceSGSD{{SGID: 1000, SDID: 4003}},
		Dispositions: []legacy.ServiceDisposition{{DispositionID: 10}, {DispositionID: 99}},
		AgeRanges: []legacy.ServiceAgeRange{
			{DaysFrom: "1826.25", DaysTo: "5843"},
			{DaysFrom: "0", DaysTo: "364.25"},
			{DaysFrom: "365.25", DaysTo: "1825.25"},
			{DaysFrom: "10000", DaysTo: "20000"},
		},
	}
}

func TestGPPracticeTransformer_IsSupported(t *testing.T) {
	tr := NewGPPracticeTransformer(utils.FixedClock(migratedAt))

	tests := []struct {
		name    string
		mutate  func(s *legacy.Service)
		ok      bool
		message string
	}{
		{"supported", func(s *legacy.Service) {}, true, ""},
		{"wrong type", func(s *legacy.Service) { s.TypeID = 13 }, false, "Service type is not GP Practice (100)"},
		{"no ods code", func(s *legacy.Service) { s.ODSCode = nil }, false, "Service does not have an ODS code"},
		{"bad ods prefix", func(s *legacy.Service) { s.ODSCode = ptr("I12345") }, false, "ODS code does not match the required format"},
		{"ods code too long", func(s *legacy.Service) { s.ODSCode = ptr("A123456") }, false, "ODS code does not match the required format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testService()
			tt.mutate(s)

			ok, reason := tr.IsSupported(s)

			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.message, reason)
		})
	}
}

func TestGPPracticeTransformer_ShouldInclude(t *testing.T) {
	tr := NewGPPracticeTransformer(nil)

	ok, _ := tr.ShouldInclude(testService())
	assert.True(t, ok)

	s := testService()
	s.StatusID = ptr(2)
	ok, reason := tr.ShouldInclude(s)
	assert.False(t, ok)
	assert.Equal(t, "Service is not active", reason)
}

func TestSelect(t *testing.T) {
	gp := NewGPPracticeTransformer(nil)

	selection, _ := Select([]Transformer{gp}, testService())
	assert.Equal(t, OneMatch, selection.Kind)
	assert.Same(t, gp, selection.Transformer)

	other := testService()
	other.TypeID = 13
	selection, rejected := Select([]Transformer{gp}, other)
	assert.Equal(t, NoMatch, selection.Kind)
	assert.Equal(t, "Service type is not GP Practice (100)", rejected[gp.Name()])

	selection, _ = Select([]Transformer{gp, NewGPPracticeTransformer(nil)}, testService())
	assert.Equal(t, AmbiguousMatch, selection.Kind)
	assert.Nil(t, selection.Transformer)
	assert.Len(t, selection.Matches, 2)
}

func TestGPPracticeValidator(t *testing.T) {
	v := GPPracticeValidator{}

	t.Run("valid record is sanitised", func(t *testing.T) {
		original := testService()
		result := v.Validate(original)

		assert.True(t, result.ShouldContinue)
		assert.Empty(t, result.Issues)
		assert.Equal(t, "Test Surgery", *result.Sanitised.PublicName)
		assert.Equal(t, "01134960000", *result.Sanitised.PublicPhone)
		assert.Equal(t, "Test Surgery - Main Site", *original.PublicName, "input must not be modified")
	})

	t.Run("invalid contact details are cleared", func(t *testing.T) {
		s := testService()
		s.Email = ptr("not-an-email")
		s.NonPublicPhone = ptr("123")

		result := v.Validate(s)

		assert.True(t, result.ShouldContinue)
		require.Len(t, result.Issues, 2)
		assert.Equal(t, "invalid_email", result.Issues[0].Code)
		assert.Equal(t, migration.SeverityError, result.Issues[0].Severity)
		assert.Equal(t, []string{"nonpublicphone"}, result.Issues[1].Expression)
		assert.Nil(t, result.Sanitised.Email)
		assert.Nil(t, result.Sanitised.NonPublicPhone)
	})

	t.Run("missing public name", func(t *testing.T) {
		s := testService()
		s.PublicName = ptr("   ")

		result := v.Validate(s)

		assert.True(t, result.ShouldContinue)
		require.Len(t, result.Issues, 1)
		assert.Equal(t, "publicname_required", result.Issues[0].Code)
	})

	t.Run("no address at all is fatal", func(t *testing.T) {
		s := testService()
		s.Address, s.Town, s.Postcode = nil, nil, nil

		result := v.Validate(s)

		assert.False(t, result.ShouldContinue)
		require.Len(t, result.Issues, 1)
		assert.Equal(t, "address_required", result.Issues[0].Code)
		assert.Equal(t, migration.SeverityFatal, result.Issues[0].Severity)
	})

	t.Run("placeholder address is fatal", func(t *testing.T) {
		s := testService()
		s.Address = ptr("Not Available")

		result := v.Validate(s)

		assert.False(t, result.ShouldContinue)
		assert.Equal(t, "invalid_address", result.Issues[0].Code)
	})
}

func TestFormatAddress(t *testing.T) {
	tests := []struct {
		name     string
		address  *string
		town     *string
		expected *entities.Address
	}{
		{
			name:    "town and county segments are lifted out",
			address: ptr("1 High Street$Headingley$Leeds$West Yorkshire"),
			town:    ptr("Leeds"),
			expected: &entities.Address{
				Line1: ptr("1 High Street"), Line2: ptr("Headingley"),
				County: ptr("West Yorkshire"), Town: ptr("Leeds"), Postcode: ptr("LS6 1AA"),
			},
		},
		{
			name:    "duplicates and blanks are dropped",
			address: ptr(" The Surgery $ $the surgery$Mill Lane"),
			town:    ptr("Otley"),
			expected: &entities.Address{
				Line1: ptr("The Surgery"), Line2: ptr("Mill Lane"),
				Town: ptr("Otley"), Postcode: ptr("LS6 1AA"),
			},
		},
		{
			name:     "empty address",
			address:  ptr(""),
			town:     ptr("Leeds"),
			expected: nil,
		},
		{
			name:     "placeholder",
			address:  ptr("not   available"),
			town:     ptr("Leeds"),
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatAddress(tt.address, tt.town, ptr("LS6 1AA")))
		})
	}
}

func TestGPPracticeTransformer_Transform(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	tr := NewGPPracticeTransformer(utils.FixedClock(migratedAt))

	validated := tr.Validator().Validate(testService())
	result, err := tr.Transform(validated.Sanitised, testMetadata(), zap.New(core))
	require.NoError(t, err)

	org := result.Organisation
	require.NotNil(t, org)
	assert.Equal(t, GenerateID(42, KindOrganisation), org.ID)
	assert.Equal(t, entities.DocumentField, org.Field)
	assert.Equal(t, "Test Surgery", org.Name)
	assert.Equal(t, "GP Practice", *org.Type)
	assert.Equal(t, "A12345", *org.IdentifierODSCode)
	assert.Equal(t, entities.MigrationUser, org.CreatedBy)
	assert.Equal(t, migratedAt, org.LastUpdated)
	require.Len(t, org.Endpoints, 2)
	assert.Equal(t, "application/hl7-cda+xml", *org.Endpoints[0].PayloadMimeType)
	assert.True(t, org.Endpoints[0].IsCompressionEnabled)
	assert.Equal(t, org.ID, org.Endpoints[0].ManagedByOrganisation)
	assert.Nil(t, org.Endpoints[1].PayloadType, "telephone endpoints carry no payload")
	assert.Nil(t, org.Endpoints[1].PayloadMimeType)
	assert.False(t, org.Endpoints[1].IsCompressionEnabled)

	loc := result.Location
	require.NotNil(t, loc)
	assert.Equal(t, org.ID, loc.ManagingOrganisation)
	assert.Equal(t, "West Yorkshire", *loc.Address.County)
	assert.Equal(t, &entities.PositionGCS{Latitude: "53.8193", Longitude: "-1.5784"}, loc.PositionGCS)
	assert.True(t, loc.PrimaryAddress)

	hs := result.HealthcareService
	require.NotNil(t, hs)
	assert.Equal(t, "Test Surgery", hs.Name)
	assert.Equal(t, entities.CategoryGPServices, *hs.Category)
	assert.Equal(t, entities.TypeGPConsultationService, *hs.Type)
	assert.Equal(t, org.ID, *hs.ProvidedBy)
	assert.Equal(t, loc.ID, *hs.Location)
	assert.Equal(t, "01134960000", *hs.Telecom.PhonePublic)

	require.Len(t, hs.OpeningTime, 4)
	assert.Equal(t, entities.OpeningTime{Category: entities.OpeningTimeAvailable, DayOfWeek: ptr("mon"), StartTime: "08:00:00", EndTime: "12:00:00"}, hs.OpeningTime[0])
	assert.Equal(t, entities.OpeningTime{Category: entities.OpeningTimePublicHolidays, StartTime: "10:00:00", EndTime: "12:00:00"}, hs.OpeningTime[2])
	assert.Equal(t, entities.OpeningTime{Category: entities.OpeningTimeNotAvailable, StartTime: "2025-12-25T00:00:00", EndTime: "2025-12-25T23:59:59"}, hs.OpeningTime[3])

	assert.Equal(t, []entities.SGSDPair{{SG: 1000, SD: 4003}}, hs.SymptomGroupSymptomDiscriminators)
	assert.Equal(t, []string{"DX10"}, hs.Dispositions)
	assert.Equal(t, []entities.AgeRange{
		{RangeFrom: "0", RangeTo: "5843", Type: entities.TimeUnitDays},
		{RangeFrom: "10000", RangeTo: "20000", Type: entities.TimeUnitDays},
	}, hs.AgeEligibilityCriteria)

	missing := logs.FilterField(zap.String("log_reference", "DM_ETL_018")).AllUntimed()
	require.Len(t, missing, 1)
	assert.Equal(t, int64(99), missing[0].ContextMap()["disposition_id"])
}

func TestGPPracticeTransformer_Deterministic(t *testing.T) {
	first, err := NewGPPracticeTransformer(utils.FixedClock(migratedAt)).Transform(testService(), testMetadata(), nil)
	require.NoError(t, err)
	second, err := NewGPPracticeTransformer(utils.FixedClock(migratedAt.Add(time.Hour))).Transform(testService(), testMetadata(), nil)
	require.NoError(t, err)

	assert.Equal(t, first.Organisation.ID, second.Organisation.ID)
	assert.Equal(t, first.Location.ID, second.Location.ID)
	assert.Equal(t, first.HealthcareService.ID, second.HealthcareService.ID)
	assert.NotEqual(t, first.Organisation.ID, first.Location.ID)
}

func TestAgeEligibility_NoRanges(t *testing.T) {
	s := testService()
	s.AgeRanges = nil

	result, err := NewGPPracticeTransformer(nil).Transform(s, testMetadata(), nil)

	require.NoError(t, err)
	assert.Nil(t, result.HealthcareService.AgeEligibilityCriteria)
}
