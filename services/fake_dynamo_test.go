package services

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"beyondrounds_server/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"
)

// fakeDynamo is an in-memory DynamoDBAPI good enough for the expression
// subset the services use: single-equality key conditions, attribute_exists
// and attribute_not_exists guards, SET/REMOVE/ADD update clauses, and
// all-or-nothing transactions.
type fakeDynamo struct {
	mu     sync.Mutex
	tables map[string]map[string]map[string]types.AttributeValue

	// putErr, when set for a table, makes every PutItem against it fail.
	putErr map[string]error
}

type tableSchema struct {
	pk string
	sk string
}

var testSchemas = map[string]tableSchema{
	models.UserProfilesTable:     {pk: "userId"},
	models.MatchesTable:          {pk: "matchId"},
	models.GroupsTable:           {pk: "groupId"},
	models.GroupMembershipsTable: {pk: "groupId", sk: "userId"},
	models.NotificationsTable:    {pk: "userId", sk: "notificationId"},
	models.FeedbackTable:         {pk: "groupId", sk: "userId"},
	models.MatchRunsTable:        {pk: "epochId"},
	models.GroupMessagesTable:    {pk: "groupId", sk: "createdAt"},
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{
		tables: map[string]map[string]map[string]types.AttributeValue{},
		putErr: map[string]error{},
	}
}

// seed marshals and stores an item directly, bypassing conditions.
func (f *fakeDynamo) seed(t *testing.T, table string, item interface{}) {
	t.Helper()
	marshaled, err := attributevalue.MarshalMap(item)
	require.NoError(t, err)
	f.mu.Lock()
	defer f.mu.Unlock()
	key, err := f.itemKey(table, marshaled)
	require.NoError(t, err)
	f.table(table)[key] = marshaled
}

func (f *fakeDynamo) count(table string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.table(table))
}

func (f *fakeDynamo) table(name string) map[string]map[string]types.AttributeValue {
	if f.tables[name] == nil {
		f.tables[name] = map[string]map[string]types.AttributeValue{}
	}
	return f.tables[name]
}

func (f *fakeDynamo) itemKey(table string, item map[string]types.AttributeValue) (string, error) {
	schema, ok := testSchemas[table]
	if !ok {
		return "", fmt.Errorf("no schema for table %s", table)
	}
	pk, ok := item[schema.pk]
	if !ok {
		return "", fmt.Errorf("item missing partition key %s", schema.pk)
	}
	key := avString(pk)
	if schema.sk != "" {
		sk, ok := item[schema.sk]
		if !ok {
			return "", fmt.Errorf("item missing sort key %s", schema.sk)
		}
		key += "|" + avString(sk)
	}
	return key, nil
}

func avString(av types.AttributeValue) string {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return v.Value
	case *types.AttributeValueMemberN:
		return v.Value
	case *types.AttributeValueMemberBOOL:
		return strconv.FormatBool(v.Value)
	default:
		return fmt.Sprintf("%v", av)
	}
}

func copyItem(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}

func (f *fakeDynamo) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	table := aws.ToString(params.TableName)
	key, err := f.itemKey(table, params.Key)
	if err != nil {
		return nil, err
	}
	item, ok := f.table(table)[key]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: copyItem(item)}, nil
}

func (f *fakeDynamo) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	table := aws.ToString(params.TableName)
	if err := f.putErr[table]; err != nil {
		return nil, err
	}
	if err := f.putLocked(table, params.Item, params.ConditionExpression); err != nil {
		return nil, err
	}
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) putLocked(table string, item map[string]types.AttributeValue, condition *string) error {
	key, err := f.itemKey(table, item)
	if err != nil {
		return err
	}
	existing := f.table(table)[key]
	if condition != nil {
		if err := evalCondition(*condition, existing, nil, nil); err != nil {
			return err
		}
	}
	f.table(table)[key] = copyItem(item)
	return nil
}

func (f *fakeDynamo) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	table := aws.ToString(params.TableName)
	key, err := f.itemKey(table, params.Key)
	if err != nil {
		return nil, err
	}
	existing := f.table(table)[key]
	if params.ConditionExpression != nil {
		if err := evalCondition(*params.ConditionExpression, existing, params.ExpressionAttributeValues, params.ExpressionAttributeNames); err != nil {
			return nil, err
		}
	}
	item := copyItem(existing)
	for k, v := range params.Key {
		if _, ok := item[k]; !ok {
			item[k] = v
		}
	}
	if err := applyUpdateExpression(item, aws.ToString(params.UpdateExpression), params.ExpressionAttributeValues, params.ExpressionAttributeNames); err != nil {
		return nil, err
	}
	f.table(table)[key] = item
	return &dynamodb.UpdateItemOutput{Attributes: copyItem(item)}, nil
}

func (f *fakeDynamo) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	table := aws.ToString(params.TableName)
	key, err := f.itemKey(table, params.Key)
	if err != nil {
		return nil, err
	}
	delete(f.table(table), key)
	return &dynamodb.DeleteItemOutput{}, nil
}

// Query supports single-equality key conditions. Index queries filter on the
// named attribute the same way.
func (f *fakeDynamo) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	table := aws.ToString(params.TableName)

	attr, placeholder, err := parseEquality(aws.ToString(params.KeyConditionExpression), params.ExpressionAttributeNames)
	if err != nil {
		return nil, err
	}
	want, ok := params.ExpressionAttributeValues[placeholder]
	if !ok {
		return nil, fmt.Errorf("missing value for %s", placeholder)
	}

	var items []map[string]types.AttributeValue
	for _, item := range f.table(table) {
		got, ok := item[attr]
		if ok && avString(got) == avString(want) {
			items = append(items, copyItem(item))
		}
	}

	if schema := testSchemas[table]; schema.sk != "" && params.IndexName == nil {
		sort.Slice(items, func(i, j int) bool {
			return avString(items[i][schema.sk]) < avString(items[j][schema.sk])
		})
		if params.ScanIndexForward != nil && !*params.ScanIndexForward {
			for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
				items[i], items[j] = items[j], items[i]
			}
		}
	}
	if params.Limit != nil && int(*params.Limit) < len(items) {
		items = items[:*params.Limit]
	}
	return &dynamodb.QueryOutput{Items: items}, nil
}

func (f *fakeDynamo) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	table := aws.ToString(params.TableName)
	var items []map[string]types.AttributeValue
	for _, item := range f.table(table) {
		items = append(items, copyItem(item))
	}
	return &dynamodb.ScanOutput{Items: items}, nil
}

func (f *fakeDynamo) TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	// First pass checks every condition so the batch stays all-or-nothing.
	reasons := make([]types.CancellationReason, len(params.TransactItems))
	failed := false
	for i, entry := range params.TransactItems {
		reasons[i] = types.CancellationReason{Code: aws.String("None")}
		if entry.Put == nil {
			return nil, fmt.Errorf("unsupported transact item at index %d", i)
		}
		table := aws.ToString(entry.Put.TableName)
		if err := f.putErr[table]; err != nil {
			return nil, err
		}
		key, err := f.itemKey(table, entry.Put.Item)
		if err != nil {
			return nil, err
		}
		if entry.Put.ConditionExpression != nil {
			existing := f.table(table)[key]
			if err := evalCondition(*entry.Put.ConditionExpression, existing, entry.Put.ExpressionAttributeValues, entry.Put.ExpressionAttributeNames); err != nil {
				reasons[i] = types.CancellationReason{Code: aws.String("ConditionalCheckFailed")}
				failed = true
			}
		}
	}
	if failed {
		return nil, &types.TransactionCanceledException{CancellationReasons: reasons}
	}
	for _, entry := range params.TransactItems {
		table := aws.ToString(entry.Put.TableName)
		key, err := f.itemKey(table, entry.Put.Item)
		if err != nil {
			return nil, err
		}
		f.table(table)[key] = copyItem(entry.Put.Item)
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

// evalCondition handles the three condition shapes the services use.
func evalCondition(expr string, existing map[string]types.AttributeValue, vals map[string]types.AttributeValue, names map[string]string) error {
	expr = strings.TrimSpace(expr)
	switch {
	case strings.HasPrefix(expr, "attribute_not_exists("):
		path := strings.TrimSuffix(strings.TrimPrefix(expr, "attribute_not_exists("), ")")
		if existing != nil && lookupPath(existing, path, names) != nil {
			return &types.ConditionalCheckFailedException{}
		}
		return nil
	case strings.HasPrefix(expr, "attribute_exists("):
		path := strings.TrimSuffix(strings.TrimPrefix(expr, "attribute_exists("), ")")
		if existing == nil || lookupPath(existing, path, names) == nil {
			return &types.ConditionalCheckFailedException{}
		}
		return nil
	default:
		attr, placeholder, err := parseEquality(expr, names)
		if err != nil {
			return err
		}
		want, ok := vals[placeholder]
		if !ok {
			return fmt.Errorf("missing value for %s", placeholder)
		}
		got, ok := existing[attr]
		if !ok || avString(got) != avString(want) {
			return &types.ConditionalCheckFailedException{}
		}
		return nil
	}
}

// parseEquality parses "attr = :placeholder", resolving #name references.
func parseEquality(expr string, names map[string]string) (string, string, error) {
	parts := strings.SplitN(expr, "=", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("unsupported expression %q", expr)
	}
	attr := resolveName(strings.TrimSpace(parts[0]), names)
	placeholder := strings.TrimSpace(parts[1])
	if !strings.HasPrefix(placeholder, ":") {
		return "", "", fmt.Errorf("unsupported expression %q", expr)
	}
	return attr, placeholder, nil
}

// lookupPath resolves a dotted document path against an item, descending
// into nested maps. Returns nil when any segment is absent.
func lookupPath(item map[string]types.AttributeValue, path string, names map[string]string) types.AttributeValue {
	segments := strings.Split(path, ".")
	current := item
	for i, segment := range segments {
		value, ok := current[resolveName(segment, names)]
		if !ok {
			return nil
		}
		if i == len(segments)-1 {
			return value
		}
		nested, ok := value.(*types.AttributeValueMemberM)
		if !ok {
			return nil
		}
		current = nested.Value
	}
	return nil
}

func resolveName(token string, names map[string]string) string {
	if strings.HasPrefix(token, "#") {
		if resolved, ok := names[token]; ok {
			return resolved
		}
	}
	return token
}

// applyUpdateExpression applies SET, REMOVE and ADD clauses in place.
func applyUpdateExpression(item map[string]types.AttributeValue, expr string, vals map[string]types.AttributeValue, names map[string]string) error {
	sections := map[string][]string{}
	current := ""
	for _, tok := range strings.Fields(expr) {
		switch strings.ToUpper(tok) {
		case "SET", "REMOVE", "ADD":
			current = strings.ToUpper(tok)
		default:
			if current == "" {
				return fmt.Errorf("unsupported update expression %q", expr)
			}
			sections[current] = append(sections[current], tok)
		}
	}

	for _, assignment := range strings.Split(strings.Join(sections["SET"], " "), ",") {
		assignment = strings.TrimSpace(assignment)
		if assignment == "" {
			continue
		}
		parts := strings.SplitN(assignment, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("unsupported assignment %q", assignment)
		}
		placeholder := strings.TrimSpace(parts[1])
		value, ok := vals[placeholder]
		if !ok {
			return fmt.Errorf("missing value for %s", placeholder)
		}
		if err := setPath(item, strings.TrimSpace(parts[0]), value, names); err != nil {
			return err
		}
	}

	for _, path := range strings.Split(strings.Join(sections["REMOVE"], " "), ",") {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		delete(item, resolveName(path, names))
	}

	addTokens := sections["ADD"]
	for i := 0; i+1 < len(addTokens); i += 2 {
		attr := resolveName(strings.TrimSuffix(addTokens[i], ","), names)
		value, ok := vals[strings.TrimSuffix(addTokens[i+1], ",")]
		if !ok {
			return fmt.Errorf("missing value for %s", addTokens[i+1])
		}
		delta, err := strconv.ParseFloat(avString(value), 64)
		if err != nil {
			return fmt.Errorf("ADD needs a numeric value: %w", err)
		}
		base := 0.0
		if existing, ok := item[attr]; ok {
			base, _ = strconv.ParseFloat(avString(existing), 64)
		}
		item[attr] = &types.AttributeValueMemberN{Value: strconv.FormatFloat(base+delta, 'f', -1, 64)}
	}
	return nil
}

// setPath writes a value at a one- or two-segment document path.
func setPath(item map[string]types.AttributeValue, path string, value types.AttributeValue, names map[string]string) error {
	segments := strings.Split(path, ".")
	switch len(segments) {
	case 1:
		item[resolveName(segments[0], names)] = value
		return nil
	case 2:
		parent := resolveName(segments[0], names)
		child := resolveName(segments[1], names)
		nested, ok := item[parent].(*types.AttributeValueMemberM)
		if !ok {
			nested = &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{}}
		}
		updated := make(map[string]types.AttributeValue, len(nested.Value)+1)
		for k, v := range nested.Value {
			updated[k] = v
		}
		updated[child] = value
		item[parent] = &types.AttributeValueMemberM{Value: updated}
		return nil
	default:
		return fmt.Errorf("unsupported document path %q", path)
	}
}
