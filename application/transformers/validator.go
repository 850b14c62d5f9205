package transformers

import (
	"strings"

	"data-migration/domain/legacy"
	"data-migration/domain/migration"
	"data-migration/pkg/utils"
)

// ValidationResult is the outcome of validating a source record. Sanitised is
// a copy of the record with cleaned values; the input is never modified.
type ValidationResult struct {
	Sanitised      *legacy.Service
	Issues         []migration.ValidationIssue
	ShouldContinue bool
}

// Validator checks and sanitises a source record before transformation.
type Validator interface {
	Validate(service *legacy.Service) ValidationResult
}

// ServiceValidator applies the checks common to every service type.
type ServiceValidator struct{}

// Validate checks the email address and both phone numbers. Invalid values
// are cleared and reported as errors.
func (ServiceValidator) Validate(service *legacy.Service) ValidationResult {
	s := service.Clone()
	var issues []migration.ValidationIssue

	s.Email, issues = validateEmail(s.Email, "email", issues)
	s.PublicPhone, issues = validatePhone(s.PublicPhone, "publicphone", issues)
	s.NonPublicPhone, issues = validatePhone(s.NonPublicPhone, "nonpublicphone", issues)

	return finish(s, issues)
}

// GPPracticeValidator adds the public name and location checks of GP
// practices.
type GPPracticeValidator struct {
	ServiceValidator
}

// Validate runs the common checks, cleans the public name and makes sure an
// address can be formatted. A GP practice without a usable address cannot
// become a location and is rejected.
func (v GPPracticeValidator) Validate(service *legacy.Service) ValidationResult {
	result := v.ServiceValidator.Validate(service)
	s := result.Sanitised
	issues := result.Issues

	if name := strings.TrimSpace(deref(s.PublicName)); name == "" {
		issues = append(issues, migration.ValidationIssue{
			Expression:  []string{"publicname"},
			Severity:    migration.SeverityError,
			Code:        "publicname_required",
			Diagnostics: "Public name is required for GP practices",
			Value:       s.PublicName,
		})
		s.PublicName = nil
	} else {
		cleaned := cleanPublicName(deref(s.PublicName))
		s.PublicName = &cleaned
	}

	switch {
	case deref(s.Address) == "" && deref(s.Town) == "" && deref(s.Postcode) == "":
		issues = append(issues, migration.ValidationIssue{
			Expression:  []string{"address"},
			Severity:    migration.SeverityFatal,
			Code:        "address_required",
			Diagnostics: "Address is required for GP practices to create a location",
		})
	case FormatAddress(s.Address, s.Town, s.Postcode) == nil:
		issues = append(issues, migration.ValidationIssue{
			Expression:  []string{"address"},
			Severity:    migration.SeverityFatal,
			Code:        "invalid_address",
			Diagnostics: "Address was invalid or incomplete, could not be formatted for GP practices to create a location",
			Value:       s.Address,
		})
	}

	return finish(s, issues)
}

// cleanPublicName keeps the part of a DoS public name before the first "-",
// which is where DoS appends internal qualifiers.
func cleanPublicName(name string) string {
	if i := strings.Index(name, "-"); i >= 0 {
		name = name[:i]
	}
	return strings.TrimRightFunc(name, func(r rune) bool { return r == ' ' || r == '\t' })
}

func finish(s *legacy.Service, issues []migration.ValidationIssue) ValidationResult {
	if issues == nil {
		issues = []migration.ValidationIssue{}
	}
	return ValidationResult{
		Sanitised:      s,
		Issues:         issues,
		ShouldContinue: !migration.HasFatal(issues),
	}
}

func validateEmail(email *string, expression string, issues []migration.ValidationIssue) (*string, []migration.ValidationIssue) {
	if email == nil || strings.TrimSpace(*email) == "" {
		return email, issues
	}
	trimmed := strings.TrimSpace(*email)
	if utils.IsEmail(trimmed) {
		return &trimmed, issues
	}
	return nil, append(issues, migration.ValidationIssue{
		Expression:  []string{expression},
		Severity:    migration.SeverityError,
		Code:        "invalid_email",
		Diagnostics: "Email address is not valid",
		Value:       email,
	})
}

func validatePhone(phone *string, expression string, issues []migration.ValidationIssue) (*string, []migration.ValidationIssue) {
	if phone == nil || strings.TrimSpace(*phone) == "" {
		return phone, issues
	}
	cleaned, ok := utils.NormalisePhone(*phone)
	if ok {
		return &cleaned, issues
	}
	return nil, append(issues, migration.ValidationIssue{
		Expression:  []string{expression},
		Severity:    migration.SeverityError,
		Code:        "invalid_phone_number",
		Diagnostics: "Phone number is not a valid 11 digit UK number",
		Value:       phone,
	})
}
