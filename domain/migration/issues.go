package migration

// Severity of a validation issue.
type Severity string

const (
	SeverityFatal       Severity = "fatal"
	SeverityError       Severity = "error"
	SeverityWarning     Severity = "warning"
	SeverityInformation Severity = "information"
)

// ValidationIssue is one finding of a source record validator.
type ValidationIssue struct {
	Expression  []string `dynamodbav:"expression" json:"expression"`
	Severity    Severity `dynamodbav:"severity" json:"severity"`
	Code        string   `dynamodbav:"code" json:"code"`
	Diagnostics string   `dynamodbav:"diagnostics" json:"diagnostics"`
	Value       *string  `dynamodbav:"value" json:"value"`
}

// HasFatal reports whether any issue blocks the migration of the record.
func HasFatal(issues []ValidationIssue) bool {
	for _, issue := range issues {
		if issue.Severity == SeverityFatal {
			return true
		}
	}
	return false
}
