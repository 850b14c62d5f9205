package transformers

import (
	"fmt"
	"regexp"

	"data-migration/domain/entities"
	"data-migration/domain/legacy"
	"data-migration/domain/migration"
	"data-migration/pkg/utils"

	"go.uber.org/zap"
)

const (
	gpPracticeTypeID = 100
	statusActive     = 1
)

var gpPracticeODSCode = regexp.MustCompile(`^[ABCDEFGHJKLMNPVWY][0-9]{5}$`)

// GPPracticeTransformer migrates active GP practices with a valid ODS code.
type GPPracticeTransformer struct {
	clock     utils.Clock
	validator GPPracticeValidator
}

// NewGPPracticeTransformer creates a GPPracticeTransformer. Documents it
// creates are stamped with the clock's time.
func NewGPPracticeTransformer(clock utils.Clock) *GPPracticeTransformer {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	return &GPPracticeTransformer{clock: clock}
}

func (t *GPPracticeTransformer) Name() string { return "GPPracticeTransformer" }

func (t *GPPracticeTransformer) Validator() Validator { return t.validator }

func (t *GPPracticeTransformer) IsSupported(service *legacy.Service) (bool, string) {
	if service.TypeID != gpPracticeTypeID {
		return false, fmt.Sprintf("Service type is not GP Practice (%d)", gpPracticeTypeID)
	}
	if deref(service.ODSCode) == "" {
		return false, "Service does not have an ODS code"
	}
	if !gpPracticeODSCode.MatchString(*service.ODSCode) {
		return false, "ODS code does not match the required format"
	}
	return true, ""
}

func (t *GPPracticeTransformer) ShouldInclude(service *legacy.Service) (bool, string) {
	if service.StatusID == nil || *service.StatusID != statusActive {
		return false, "Service is not active"
	}
	return true, ""
}

func (t *GPPracticeTransformer) Transform(service *legacy.Service, metadata *legacy.Metadata, logger *zap.Logger) (*migration.TransformResult, error) {
	if metadata == nil {
		return nil, fmt.Errorf("metadata is required to transform service %d", service.ID)
	}
	m := newMapper(metadata, logger, t.clock.Now())

	organisation := m.organisation(service)
	location := m.location(service, organisation.ID)
	healthcareService, err := m.healthcareService(service, organisation.ID, location.ID,
		entities.CategoryGPServices, entities.TypeGPConsultationService)
	if err != nil {
		return nil, fmt.Errorf("failed to map healthcare service %d: %w", service.ID, err)
	}

	return &migration.TransformResult{
		Organisation:      organisation,
		Location:          location,
		HealthcareService: healthcareService,
	}, nil
}

// Default returns the transformers registered for migration.
func Default(clock utils.Clock) []Transformer {
	return []Transformer{
		NewGPPracticeTransformer(clock),
	}
}
