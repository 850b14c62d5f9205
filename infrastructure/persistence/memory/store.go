// Package memory is an in-process stand-in for the DynamoDB tables used by the
// migration. It implements the subset of the DynamoDB client the repositories
// need, evaluates condition expressions and applies transactions atomically.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"data-migration/pkg/diff"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"
)

// maxTransactionItems is the DynamoDB limit on a TransactWriteItems call.
const maxTransactionItems = 100

// KeySchema names the key attributes of a table. SortKey is empty for a
// table with a simple key.
type KeySchema struct {
	PartitionKey string
	SortKey      string
}

type table struct {
	schema KeySchema
	items  map[string]map[string]types.AttributeValue
}

// Store holds tables in memory. It is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	tables map[string]*table
	logger *zap.Logger
}

// NewStore creates an empty Store.
func NewStore(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		tables: make(map[string]*table),
		logger: logger,
	}
}

// CreateTable adds an empty table. Creating an existing table is a no-op.
func (s *Store) CreateTable(name string, schema KeySchema) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[name]; ok {
		return
	}
	s.tables[name] = &table{schema: schema, items: make(map[string]map[string]types.AttributeValue)}
}

// Items returns copies of every item of a table ordered by key.
func (s *Store) Items(name string) []map[string]types.AttributeValue {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[name]
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(t.items))
	for k := range t.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]map[string]types.AttributeValue, 0, len(keys))
	for _, k := range keys {
		out = append(out, copyItem(t.items[k]))
	}
	return out
}

// GetItem implements the DynamoDB GetItem operation.
func (s *Store) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, err := s.table(params.TableName)
	if err != nil {
		return nil, err
	}
	key, err := t.key(params.Key)
	if err != nil {
		return nil, err
	}
	out := &dynamodb.GetItemOutput{}
	if item, ok := t.items[key]; ok {
		out.Item = copyItem(item)
	}
	return out, nil
}

// PutItem implements the DynamoDB PutItem operation.
func (s *Store) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.table(params.TableName)
	if err != nil {
		return nil, err
	}
	key, err := t.key(params.Item)
	if err != nil {
		return nil, err
	}
	ok, err := evaluate(aws.ToString(params.ConditionExpression), t.items[key], params.ExpressionAttributeNames, params.ExpressionAttributeValues)
	if err != nil {
		return nil, validationError(err.Error())
	}
	if !ok {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
	}
	t.items[key] = copyItem(params.Item)
	return &dynamodb.PutItemOutput{}, nil
}

// write is one prepared item of a transaction.
type write struct {
	table *table
	key   string
	item  map[string]types.AttributeValue
	del   bool
	check bool
}

// TransactWriteItems implements the DynamoDB TransactWriteItems operation.
// Either every item is applied or none is. A failed condition cancels the
// transaction with a reason per item.
func (s *Store) TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	if n := len(params.TransactItems); n == 0 || n > maxTransactionItems {
		return nil, validationError(fmt.Sprintf("transaction must contain between 1 and %d items, got %d", maxTransactionItems, n))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	writes := make([]write, 0, len(params.TransactItems))
	reasons := make([]types.CancellationReason, len(params.TransactItems))
	seen := make(map[string]struct{}, len(params.TransactItems))
	failed := false

	for i, ti := range params.TransactItems {
		w, ok, err := s.prepare(ti)
		if err != nil {
			return nil, err
		}
		id := aws.ToString(tableName(ti)) + "\x00" + w.key
		if _, dup := seen[id]; dup {
			return nil, validationError("Transaction request cannot include multiple operations on one item")
		}
		seen[id] = struct{}{}

		reasons[i] = types.CancellationReason{Code: aws.String("None")}
		if !ok {
			failed = true
			reasons[i] = types.CancellationReason{
				Code:    aws.String("ConditionalCheckFailed"),
				Message: aws.String("The conditional request failed"),
			}
		}
		writes = append(writes, w)
	}

	if failed {
		s.logger.Debug("Transaction cancelled", zap.Int("item_count", len(writes)))
		return nil, &types.TransactionCanceledException{
			Message:             aws.String("Transaction cancelled, please refer cancellation reasons for specific reasons"),
			CancellationReasons: reasons,
		}
	}

	for _, w := range writes {
		switch {
		case w.check:
		case w.del:
			delete(w.table.items, w.key)
		default:
			w.table.items[w.key] = w.item
		}
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

// prepare evaluates the condition of one transaction item and computes the
// item it would store.
func (s *Store) prepare(ti types.TransactWriteItem) (write, bool, error) {
	switch {
	case ti.Put != nil:
		p := ti.Put
		t, key, current, err := s.lookup(p.TableName, p.Item)
		if err != nil {
			return write{}, false, err
		}
		ok, err := evaluate(aws.ToString(p.ConditionExpression), current, p.ExpressionAttributeNames, p.ExpressionAttributeValues)
		if err != nil {
			return write{}, false, validationError(err.Error())
		}
		return write{table: t, key: key, item: copyItem(p.Item)}, ok, nil

	case ti.Update != nil:
		u := ti.Update
		t, key, current, err := s.lookup(u.TableName, u.Key)
		if err != nil {
			return write{}, false, err
		}
		ok, err := evaluate(aws.ToString(u.ConditionExpression), current, u.ExpressionAttributeNames, u.ExpressionAttributeValues)
		if err != nil {
			return write{}, false, validationError(err.Error())
		}
		base := current
		if base == nil {
			base = copyItem(u.Key)
		}
		updated, err := diff.Apply(base, aws.ToString(u.UpdateExpression), u.ExpressionAttributeNames, u.ExpressionAttributeValues)
		if err != nil {
			return write{}, false, validationError(err.Error())
		}
		return write{table: t, key: key, item: updated}, ok, nil

	case ti.Delete != nil:
		d := ti.Delete
		t, key, current, err := s.lookup(d.TableName, d.Key)
		if err != nil {
			return write{}, false, err
		}
		ok, err := evaluate(aws.ToString(d.ConditionExpression), current, d.ExpressionAttributeNames, d.ExpressionAttributeValues)
		if err != nil {
			return write{}, false, validationError(err.Error())
		}
		return write{table: t, key: key, del: true}, ok, nil

	case ti.ConditionCheck != nil:
		c := ti.ConditionCheck
		t, key, current, err := s.lookup(c.TableName, c.Key)
		if err != nil {
			return write{}, false, err
		}
		ok, err := evaluate(aws.ToString(c.ConditionExpression), current, c.ExpressionAttributeNames, c.ExpressionAttributeValues)
		if err != nil {
			return write{}, false, validationError(err.Error())
		}
		return write{table: t, key: key, check: true}, ok, nil
	}
	return write{}, false, validationError("transaction item has no operation")
}

func (s *Store) lookup(name *string, item map[string]types.AttributeValue) (*table, string, map[string]types.AttributeValue, error) {
	t, err := s.table(name)
	if err != nil {
		return nil, "", nil, err
	}
	key, err := t.key(item)
	if err != nil {
		return nil, "", nil, err
	}
	return t, key, t.items[key], nil
}

func (s *Store) table(name *string) (*table, error) {
	t, ok := s.tables[aws.ToString(name)]
	if !ok {
		return nil, &types.ResourceNotFoundException{Message: aws.String("Requested resource not found: " + aws.ToString(name))}
	}
	return t, nil
}

// key renders the key attributes of item as a map key.
func (t *table) key(item map[string]types.AttributeValue) (string, error) {
	pk, err := keyPart(item, t.schema.PartitionKey)
	if err != nil {
		return "", err
	}
	if t.schema.SortKey == "" {
		return pk, nil
	}
	sk, err := keyPart(item, t.schema.SortKey)
	if err != nil {
		return "", err
	}
	return pk + "\x00" + sk, nil
}

func keyPart(item map[string]types.AttributeValue, name string) (string, error) {
	switch v := item[name].(type) {
	case *types.AttributeValueMemberS:
		return "S" + v.Value, nil
	case *types.AttributeValueMemberN:
		return "N" + v.Value, nil
	case *types.AttributeValueMemberB:
		return "B" + string(v.Value), nil
	case nil:
		return "", validationError("missing key attribute " + name)
	default:
		return "", validationError("key attribute " + name + " must be a scalar")
	}
}

func tableName(ti types.TransactWriteItem) *string {
	switch {
	case ti.Put != nil:
		return ti.Put.TableName
	case ti.Update != nil:
		return ti.Update.TableName
	case ti.Delete != nil:
		return ti.Delete.TableName
	case ti.ConditionCheck != nil:
		return ti.ConditionCheck.TableName
	}
	return nil
}

func copyItem(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	if item == nil {
		return nil
	}
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}

func validationError(msg string) error {
	return &smithy.GenericAPIError{Code: "ValidationException", Message: msg, Fault: smithy.FaultClient}
}
