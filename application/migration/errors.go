package migration

import (
	"errors"
	"fmt"

	dm "data-migration/domain/migration"
	apperrors "data-migration/pkg/errors"
)

// Kind classifies why a synchronisation did not commit.
type Kind int

const (
	// KindUnsupported means no transformer handles the record.
	KindUnsupported Kind = iota + 1
	// KindSkipped means the transformer chose to leave the record out.
	KindSkipped
	// KindInvalid means validation found a fatal issue.
	KindInvalid
	// KindConfiguration means the transformer registry is ambiguous.
	KindConfiguration
	// KindSourceNotFound means the source row does not exist.
	KindSourceNotFound
	// KindUnsupportedChange means the new record would delete a migrated
	// entity.
	KindUnsupportedChange
	// KindRetryable means the transaction failed without effect and the
	// whole synchronisation can run again.
	KindRetryable
	// KindErrored is anything else.
	KindErrored
)

var kindNames = map[Kind]string{
	KindUnsupported:       "unsupported",
	KindSkipped:           "skipped",
	KindInvalid:           "invalid",
	KindConfiguration:     "configuration",
	KindSourceNotFound:    "source_not_found",
	KindUnsupportedChange: "unsupported_change",
	KindRetryable:         "retryable",
	KindErrored:           "errored",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Requeue reports whether the message that triggered the synchronisation
// should be delivered again.
func (k Kind) Requeue() bool {
	return k == KindRetryable || k == KindErrored
}

// MigrationError is the classified failure of one synchronisation.
type MigrationError struct {
	Kind     Kind
	RecordID int
	Reason   string
	// Reference is the log reference code written for the failure.
	Reference string
	// Backoff is set for KindRetryable.
	Backoff apperrors.BackoffHint
	// Issues is set for KindInvalid.
	Issues []dm.ValidationIssue
	Err    error
}

func (e *MigrationError) Error() string {
	msg := fmt.Sprintf("%s: record %d", e.Kind, e.RecordID)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MigrationError) Unwrap() error {
	return e.Err
}

// Retryable reports whether running the synchronisation again can succeed.
func (e *MigrationError) Retryable() bool {
	return e.Kind == KindRetryable
}

func newMigrationError(kind Kind, recordID int, reason string) *MigrationError {
	return &MigrationError{Kind: kind, RecordID: recordID, Reason: reason}
}

// KindOf returns the classification of err. Errors that were never
// classified are KindErrored.
func KindOf(err error) Kind {
	var me *MigrationError
	if errors.As(err, &me) {
		return me.Kind
	}
	return KindErrored
}

// IsRetryable reports whether err is a retryable migration failure.
func IsRetryable(err error) bool {
	var me *MigrationError
	return errors.As(err, &me) && me.Retryable()
}

// BackoffOf returns the backoff hint of a retryable failure.
func BackoffOf(err error) apperrors.BackoffHint {
	var me *MigrationError
	if errors.As(err, &me) {
		return me.Backoff
	}
	return apperrors.BackoffNone
}
