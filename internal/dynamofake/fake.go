// Package dynamofake is an in-memory stand-in for the DynamoDB calls used by
// the document store. Tables are keyed by a single string hash key.
package dynamofake

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type table struct {
	hashKey string
	items   map[string]map[string]types.AttributeValue
}

// Client implements the GetItem, PutItem, DeleteItem, Scan, BatchWriteItem,
// CreateTable, DeleteTable and DescribeTable calls.
type Client struct {
	mu     sync.Mutex
	tables map[string]*table

	// PageSize limits Scan pages. Zero returns everything in one page.
	PageSize int

	// Unprocessed is the number of batch write requests to bounce back as
	// UnprocessedItems before accepting them.
	Unprocessed int

	// Calls counts calls by operation name.
	Calls map[string]int
}

// New returns a client with the given tables already created, each keyed by "Key".
func New(tables ...string) *Client {
	c := &Client{
		tables: make(map[string]*table),
		Calls:  make(map[string]int),
	}
	for _, name := range tables {
		c.tables[name] = &table{hashKey: "Key", items: make(map[string]map[string]types.AttributeValue)}
	}
	return c
}

// Items returns a copy of every item in name, or nil when the table is missing.
func (c *Client) Items(name string) map[string]map[string]types.AttributeValue {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tables[name]
	if !ok {
		return nil
	}
	out := make(map[string]map[string]types.AttributeValue, len(t.items))
	for k, v := range t.items {
		out[k] = copyItem(v)
	}
	return out
}

func (c *Client) table(name *string) (*table, error) {
	t, ok := c.tables[aws.ToString(name)]
	if !ok {
		return nil, &types.ResourceNotFoundException{Message: aws.String("Requested resource not found: " + aws.ToString(name))}
	}
	return t, nil
}

func (t *table) keyOf(key map[string]types.AttributeValue) (string, error) {
	v, ok := key[t.hashKey].(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("ValidationException: missing string key attribute %q", t.hashKey)
	}
	return v.Value, nil
}

func copyItem(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}

func (c *Client) GetItem(_ context.Context, params *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls["GetItem"]++
	t, err := c.table(params.TableName)
	if err != nil {
		return nil, err
	}
	k, err := t.keyOf(params.Key)
	if err != nil {
		return nil, err
	}
	item, ok := t.items[k]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: copyItem(item)}, nil
}

func (c *Client) PutItem(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls["PutItem"]++
	t, err := c.table(params.TableName)
	if err != nil {
		return nil, err
	}
	k, err := t.keyOf(params.Item)
	if err != nil {
		return nil, err
	}
	t.items[k] = copyItem(params.Item)
	return &dynamodb.PutItemOutput{}, nil
}

func (c *Client) DeleteItem(_ context.Context, params *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls["DeleteItem"]++
	t, err := c.table(params.TableName)
	if err != nil {
		return nil, err
	}
	k, err := t.keyOf(params.Key)
	if err != nil {
		return nil, err
	}
	delete(t.items, k)
	return &dynamodb.DeleteItemOutput{}, nil
}

// Scan returns items in key order, paginated by PageSize.
func (c *Client) Scan(_ context.Context, params *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls["Scan"]++
	t, err := c.table(params.TableName)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(t.items))
	for k := range t.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	start := 0
	if params.ExclusiveStartKey != nil {
		after, err := t.keyOf(params.ExclusiveStartKey)
		if err != nil {
			return nil, err
		}
		start = sort.SearchStrings(keys, after)
		if start < len(keys) && keys[start] == after {
			start++
		}
	}
	end := len(keys)
	if c.PageSize > 0 && start+c.PageSize < end {
		end = start + c.PageSize
	}

	out := &dynamodb.ScanOutput{}
	for _, k := range keys[start:end] {
		out.Items = append(out.Items, copyItem(t.items[k]))
	}
	out.Count = int32(len(out.Items))
	if end < len(keys) {
		out.LastEvaluatedKey = map[string]types.AttributeValue{
			t.hashKey: &types.AttributeValueMemberS{Value: keys[end-1]},
		}
	}
	return out, nil
}

func (c *Client) BatchWriteItem(_ context.Context, params *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls["BatchWriteItem"]++
	out := &dynamodb.BatchWriteItemOutput{UnprocessedItems: map[string][]types.WriteRequest{}}
	for name, requests := range params.RequestItems {
		t, err := c.table(aws.String(name))
		if err != nil {
			return nil, err
		}
		for _, req := range requests {
			if c.Unprocessed > 0 {
				c.Unprocessed--
				out.UnprocessedItems[name] = append(out.UnprocessedItems[name], req)
				continue
			}
			switch {
			case req.DeleteRequest != nil:
				k, err := t.keyOf(req.DeleteRequest.Key)
				if err != nil {
					return nil, err
				}
				delete(t.items, k)
			case req.PutRequest != nil:
				k, err := t.keyOf(req.PutRequest.Item)
				if err != nil {
					return nil, err
				}
				t.items[k] = copyItem(req.PutRequest.Item)
			}
		}
	}
	return out, nil
}

func (c *Client) CreateTable(_ context.Context, params *dynamodb.CreateTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls["CreateTable"]++
	name := aws.ToString(params.TableName)
	if _, ok := c.tables[name]; ok {
		return nil, &types.ResourceInUseException{Message: aws.String("Table already exists: " + name)}
	}
	hashKey := ""
	for _, ks := range params.KeySchema {
		if ks.KeyType == types.KeyTypeHash {
			hashKey = aws.ToString(ks.AttributeName)
		}
	}
	if hashKey == "" {
		return nil, fmt.Errorf("ValidationException: no hash key for %s", name)
	}
	c.tables[name] = &table{hashKey: hashKey, items: make(map[string]map[string]types.AttributeValue)}
	return &dynamodb.CreateTableOutput{
		TableDescription: &types.TableDescription{
			TableName:   aws.String(name),
			TableStatus: types.TableStatusCreating,
		},
	}, nil
}

func (c *Client) DeleteTable(_ context.Context, params *dynamodb.DeleteTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteTableOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls["DeleteTable"]++
	if _, err := c.table(params.TableName); err != nil {
		return nil, err
	}
	delete(c.tables, aws.ToString(params.TableName))
	return &dynamodb.DeleteTableOutput{}, nil
}

// DescribeTable reports every existing table as ACTIVE.
func (c *Client) DescribeTable(_ context.Context, params *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls["DescribeTable"]++
	t, err := c.table(params.TableName)
	if err != nil {
		return nil, err
	}
	return &dynamodb.DescribeTableOutput{
		Table: &types.TableDescription{
			TableName:   params.TableName,
			TableStatus: types.TableStatusActive,
			ItemCount:   aws.Int64(int64(len(t.items))),
		},
	}, nil
}
