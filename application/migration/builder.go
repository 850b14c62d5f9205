package migration

import (
	"fmt"
	"strconv"
	"time"

	"data-migration/domain/entities"
	dm "data-migration/domain/migration"
	"data-migration/pkg/diff"
	"data-migration/pkg/logging"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// Condition expressions of the transaction items.
const (
	conditionEntityNotExists = "attribute_not_exists(id) AND attribute_not_exists(#field)"
	conditionEntityExists    = "attribute_exists(id)"
	conditionStateNotExists  = "attribute_not_exists(source_record_id)"
	conditionStateVersion    = "attribute_exists(source_record_id) AND version = :current_version"
)

// Tables names the tables a synchronisation writes to.
type Tables struct {
	Organisation      string `validate:"required"`
	Location          string `validate:"required"`
	HealthcareService string `validate:"required"`
	State             string `validate:"required"`
}

// entityLog holds the log references of one entity kind.
type entityLog struct {
	kind      string
	absent    logging.Reference
	insert    logging.Reference
	unchanged logging.Reference
	changed   logging.Reference
}

var (
	organisationLog = entityLog{"organisation", logging.DMETL023, logging.DMETL024, logging.DMETL029, logging.DMETL030}
	locationLog     = entityLog{"location", logging.DMETL025, logging.DMETL026, logging.DMETL031, logging.DMETL032}
	serviceLog      = entityLog{"healthcare_service", logging.DMETL027, logging.DMETL028, logging.DMETL033, logging.DMETL034}
)

// TransactionBuilder assembles the items of one synchronisation's atomic
// write. Each entity is inserted when the state has no copy of it, updated
// with the changed fields when it differs from the copy, and left alone
// otherwise. The state item is added last.
//
// Methods can be chained. The first failure stops further work and is
// returned by Build.
type TransactionBuilder struct {
	tables    Tables
	serviceID int
	logger    *zap.Logger
	now       time.Time
	comparer  *diff.Comparer

	prior *dm.State
	next  *dm.State
	items []types.TransactWriteItem
	err   error
}

// NewTransactionBuilder starts a transaction for a service. prior is the
// stored state and nil when the service was never migrated.
func NewTransactionBuilder(tables Tables, serviceID int, prior *dm.State, logger *zap.Logger, now time.Time) *TransactionBuilder {
	if prior == nil {
		prior = dm.NewState(serviceID)
	}
	return &TransactionBuilder{
		tables:    tables,
		serviceID: serviceID,
		logger:    logger,
		now:       now,
		comparer:  diff.New(diff.Exclude(entities.AuditFields...)),
		prior:     prior,
		next:      prior.Next(),
	}
}

// WithValidationIssues sets the issues stored on the state.
func (b *TransactionBuilder) WithValidationIssues(issues []dm.ValidationIssue) *TransactionBuilder {
	b.next.ValidationIssues = append([]dm.ValidationIssue{}, issues...)
	return b
}

// AddOrganisation adds the write for an organisation, which may be nil.
func (b *TransactionBuilder) AddOrganisation(org *entities.Organisation) *TransactionBuilder {
	if org == nil {
		b.addEntity(organisationLog, b.tables.Organisation, "", nil, b.prior.Organisation != nil, b.prior.Organisation)
		return b
	}
	if b.addEntity(organisationLog, b.tables.Organisation, org.ID, org, b.prior.Organisation != nil, b.prior.Organisation) {
		b.next.OrganisationID = aws.String(org.ID)
		b.next.Organisation = org
	}
	return b
}

// AddLocation adds the write for a location, which may be nil.
func (b *TransactionBuilder) AddLocation(loc *entities.Location) *TransactionBuilder {
	if loc == nil {
		b.addEntity(locationLog, b.tables.Location, "", nil, b.prior.Location != nil, b.prior.Location)
		return b
	}
	if b.addEntity(locationLog, b.tables.Location, loc.ID, loc, b.prior.Location != nil, b.prior.Location) {
		b.next.LocationID = aws.String(loc.ID)
		b.next.Location = loc
	}
	return b
}

// AddHealthcareService adds the write for a healthcare service, which may be
// nil.
func (b *TransactionBuilder) AddHealthcareService(hs *entities.HealthcareService) *TransactionBuilder {
	if hs == nil {
		b.addEntity(serviceLog, b.tables.HealthcareService, "", nil, b.prior.HealthcareService != nil, b.prior.HealthcareService)
		return b
	}
	if b.addEntity(serviceLog, b.tables.HealthcareService, hs.ID, hs, b.prior.HealthcareService != nil, b.prior.HealthcareService) {
		b.next.HealthcareServiceID = aws.String(hs.ID)
		b.next.HealthcareService = hs
	}
	return b
}

// addEntity adds the item for one entity and reports whether the state copy
// should be replaced by the candidate. candidate is nil when the record no
// longer produces the entity.
func (b *TransactionBuilder) addEntity(l entityLog, table, id string, candidate interface{}, hasPrior bool, prior interface{}) bool {
	if b.err != nil {
		return false
	}

	switch {
	case candidate == nil && hasPrior:
		me := newMigrationError(KindUnsupportedChange, b.serviceID, fmt.Sprintf("%s is no longer produced for the record and deleting it is not supported", l.kind))
		me.Reference = logging.DMETL008.Code
		b.err = me
		return false
	case candidate == nil:
		logging.Log(b.logger, l.absent)
		return false
	case !hasPrior:
		return b.addInsert(l, table, id, candidate)
	default:
		return b.addUpdate(l, table, id, candidate, prior)
	}
}

func (b *TransactionBuilder) addInsert(l entityLog, table, id string, candidate interface{}) bool {
	item, err := attributevalue.MarshalMap(candidate)
	if err != nil {
		b.err = fmt.Errorf("failed to marshal %s: %w", l.kind, err)
		return false
	}
	b.items = append(b.items, types.TransactWriteItem{
		Put: &types.Put{
			TableName:                aws.String(table),
			Item:                     item,
			ConditionExpression:      aws.String(conditionEntityNotExists),
			ExpressionAttributeNames: map[string]string{"#field": "field"},
		},
	})
	logging.Log(b.logger, l.insert, zap.String("entity_id", id), zap.String("table", table))
	return true
}

func (b *TransactionBuilder) addUpdate(l entityLog, table, id string, candidate, prior interface{}) bool {
	before, err := attributevalue.MarshalMap(prior)
	if err != nil {
		b.err = fmt.Errorf("failed to marshal stored %s: %w", l.kind, err)
		return false
	}
	after, err := attributevalue.MarshalMap(candidate)
	if err != nil {
		b.err = fmt.Errorf("failed to marshal %s: %w", l.kind, err)
		return false
	}

	changes := b.comparer.Compare(before, after)
	expr := diff.ToUpdateExpression(changes)
	if expr.IsEmpty() {
		logging.Log(b.logger, l.unchanged, zap.String("entity_id", id))
		return false
	}

	expr, err = b.withAudit(expr)
	if err != nil {
		b.err = err
		return false
	}

	update := &types.Update{
		TableName: aws.String(table),
		Key: map[string]types.AttributeValue{
			"id":    &types.AttributeValueMemberS{Value: id},
			"field": &types.AttributeValueMemberS{Value: entities.DocumentField},
		},
		UpdateExpression:         aws.String(expr.Expression),
		ExpressionAttributeNames: expr.Names,
		ConditionExpression:      aws.String(conditionEntityExists),
	}
	if len(expr.Values) > 0 {
		update.ExpressionAttributeValues = expr.Values
	}
	b.items = append(b.items, types.TransactWriteItem{Update: update})

	logging.Log(b.logger, l.changed,
		zap.String("entity_id", id),
		zap.Strings("changed_fields", changes.Names()),
		zap.String("update_expression", expr.Expression),
	)
	return true
}

// withAudit stamps the update as made by the migration now. The audit
// clauses come first.
func (b *TransactionBuilder) withAudit(expr *diff.UpdateExpression) (*diff.UpdateExpression, error) {
	by, err := attributevalue.Marshal(entities.MigrationUser)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal audit user: %w", err)
	}
	at, err := attributevalue.Marshal(b.now)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal audit time: %w", err)
	}
	return expr.
		Prepend(entities.AttrLastUpdatedBy, by).
		Prepend(entities.AttrLastUpdated, at), nil
}

// Build returns the transaction items. It returns no items when nothing has
// to be written, in which case no transaction must be sent.
func (b *TransactionBuilder) Build() ([]types.TransactWriteItem, error) {
	if b.err != nil {
		return nil, b.err
	}

	if len(b.items) == 0 && (b.prior.IsNew() || !b.issuesChanged()) {
		logging.Log(b.logger, logging.DMETL037, zap.String("source_record_id", b.prior.SourceRecordID), zap.Int("version", b.prior.Version))
		return []types.TransactWriteItem{}, nil
	}

	item, err := attributevalue.MarshalMap(b.next)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal migration state: %w", err)
	}

	put := &types.Put{
		TableName: aws.String(b.tables.State),
		Item:      item,
	}
	if b.prior.IsNew() {
		put.ConditionExpression = aws.String(conditionStateNotExists)
		logging.Log(b.logger, logging.DMETL035, zap.String("source_record_id", b.next.SourceRecordID))
	} else {
		put.ConditionExpression = aws.String(conditionStateVersion)
		put.ExpressionAttributeValues = map[string]types.AttributeValue{
			":current_version": &types.AttributeValueMemberN{Value: strconv.Itoa(b.prior.Version)},
		}
		logging.Log(b.logger, logging.DMETL036,
			zap.String("source_record_id", b.next.SourceRecordID),
			zap.Int("current_version", b.prior.Version),
			zap.Int("new_version", b.next.Version),
		)
	}

	items := append(append([]types.TransactWriteItem{}, b.items...), types.TransactWriteItem{Put: put})
	return items, nil
}

// State returns the state written by the transaction from Build.
func (b *TransactionBuilder) State() *dm.State {
	return b.next
}

func (b *TransactionBuilder) issuesChanged() bool {
	before, err := attributevalue.Marshal(nonNil(b.prior.ValidationIssues))
	if err != nil {
		return true
	}
	after, err := attributevalue.Marshal(nonNil(b.next.ValidationIssues))
	if err != nil {
		return true
	}
	return !b.comparer.Equal(before, after)
}

func nonNil(issues []dm.ValidationIssue) []dm.ValidationIssue {
	if issues == nil {
		return []dm.ValidationIssue{}
	}
	return issues
}
