package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"golang.org/x/sync/errgroup"

	"github.com/jacentio/arkdb/tree"
)

const (
	// batchSize is the BatchWriteItem request limit.
	batchSize = 25

	// clearConcurrency bounds parallel BatchWriteItem calls in Clear.
	clearConcurrency = 4

	// maxBatchAttempts bounds resubmission of unprocessed items.
	maxBatchAttempts = 8
)

// DynamoAPI is the subset of *dynamodb.Client used by Document.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// Document is a Store over a DynamoDB table. Each top-level key is one item
// {Key, Value}; the rest of a path addresses into Value. There is no
// in-memory mirror: every call reads or writes the table.
//
// Add, Subtract, Push and Pull read then write without a transaction, so
// concurrent writers to the same document can lose updates.
type Document struct {
	client DynamoAPI
	table  string
	config Config
	logger *slog.Logger

	// conn is set when the document was obtained from a Conn.
	conn *Conn
}

var (
	_ Store     = (*Document)(nil)
	_ Lifecycle = (*Document)(nil)
)

// NewDocument binds a Store to table.
func NewDocument(client DynamoAPI, table string, config Config) *Document {
	config.validate()
	if table == "" {
		table = config.Collection
	}
	return &Document{
		client: client,
		table:  table,
		config: config,
		logger: config.Logger,
	}
}

// Table returns the DynamoDB table name.
func (d *Document) Table() string {
	return d.table
}

// Uptime returns how long the owning connection has been open, or 0.
func (d *Document) Uptime() time.Duration {
	if d.conn == nil {
		return 0
	}
	return d.conn.Uptime()
}

// Close closes the owning connection, if any.
func (d *Document) Close() error {
	if d.conn == nil {
		return nil
	}
	return d.conn.Close()
}

func (d *Document) check() error {
	if d.conn != nil && d.conn.isClosed() {
		return ErrClosed
	}
	return nil
}

// fetch returns the Value of the document keyed by key.
func (d *Document) fetch(ctx context.Context, key string) (any, bool, error) {
	if err := d.check(); err != nil {
		return nil, false, err
	}
	result, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(d.table),
		Key:            DocumentKey(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, false, fmt.Errorf("get document %q: %w", key, err)
	}
	if result.Item == nil {
		return nil, false, nil
	}
	v, err := UnmarshalValue(result.Item)
	if err != nil {
		return nil, false, fmt.Errorf("unmarshal document %q: %w", key, err)
	}
	return v, true, nil
}

// put inserts or replaces the document keyed by key.
func (d *Document) put(ctx context.Context, key string, value any) error {
	if err := d.check(); err != nil {
		return err
	}
	item, err := MarshalDocument(key, value)
	if err != nil {
		return fmt.Errorf("marshal document %q: %w", key, err)
	}
	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put document %q: %w", key, err)
	}
	d.logger.Debug("put document", "table", d.table, "key", key)
	return nil
}

// remove deletes the document keyed by key.
func (d *Document) remove(ctx context.Context, key string) error {
	if err := d.check(); err != nil {
		return err
	}
	_, err := d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(d.table),
		Key:       DocumentKey(key),
	})
	if err != nil {
		return fmt.Errorf("delete document %q: %w", key, err)
	}
	d.logger.Debug("deleted document", "table", d.table, "key", key)
	return nil
}

func (d *Document) Get(ctx context.Context, key string) (any, error) {
	segs, err := splitKey(key)
	if err != nil {
		return nil, err
	}
	value, found, err := d.fetch(ctx, segs[0])
	if err != nil || !found {
		return nil, err
	}
	if len(segs) == 1 {
		return value, nil
	}
	m, ok := value.(map[string]any)
	if !ok {
		return nil, nil
	}
	v, _ := tree.Get(m, segs[1:])
	return v, nil
}

func (d *Document) Fetch(ctx context.Context, key string) (any, error) {
	return d.Get(ctx, key)
}

func (d *Document) Has(ctx context.Context, key string) (bool, error) {
	segs, err := splitKey(key)
	if err != nil {
		return false, err
	}
	value, found, err := d.fetch(ctx, segs[0])
	if err != nil || !found {
		return false, err
	}
	if len(segs) == 1 {
		return true, nil
	}
	m, ok := value.(map[string]any)
	if !ok {
		return false, nil
	}
	return tree.Has(m, segs[1:]), nil
}

// Set upserts the document for the key's first segment. For nested keys the
// current Value is fetched and, when it is an object, the path is applied on
// top of it so sibling keys survive; a scalar Value is replaced.
func (d *Document) Set(ctx context.Context, key string, value any, _ ...WriteOption) (any, error) {
	segs, err := splitKey(key)
	if err != nil {
		return nil, err
	}
	value, err = normalizeValue(value)
	if err != nil {
		return nil, err
	}
	return d.set(ctx, segs, value)
}

func (d *Document) set(ctx context.Context, segs []string, value any) (any, error) {
	base := map[string]any{}
	if len(segs) > 1 {
		cur, _, err := d.fetch(ctx, segs[0])
		if err != nil {
			return nil, err
		}
		if m, ok := cur.(map[string]any); ok {
			base = m
		}
	}
	root := map[string]any{segs[0]: base}
	echo := tree.Set(root, segs, value)
	if err := d.put(ctx, segs[0], echo); err != nil {
		return nil, err
	}
	return echo, nil
}

// Delete removes a whole document for single-segment keys. For nested keys
// it unsets the path inside an object Value and keeps the document even if
// it becomes empty; a scalar Value deletes the whole document.
func (d *Document) Delete(ctx context.Context, key string, _ ...WriteOption) (bool, error) {
	segs, err := splitKey(key)
	if err != nil {
		return false, err
	}
	value, found, err := d.fetch(ctx, segs[0])
	if err != nil || !found {
		return false, err
	}
	m, ok := value.(map[string]any)
	if len(segs) == 1 || !ok {
		if err := d.remove(ctx, segs[0]); err != nil {
			return false, err
		}
		return true, nil
	}
	if !tree.Unset(m, segs[1:]) {
		return false, nil
	}
	if err := d.put(ctx, segs[0], m); err != nil {
		return false, err
	}
	return true, nil
}

func (d *Document) Add(ctx context.Context, key string, n float64, _ ...WriteOption) (float64, error) {
	return d.arith(ctx, key, n)
}

func (d *Document) Subtract(ctx context.Context, key string, n float64, _ ...WriteOption) (float64, error) {
	return d.arith(ctx, key, -n)
}

func (d *Document) arith(ctx context.Context, key string, delta float64) (float64, error) {
	segs, err := splitKey(key)
	if err != nil {
		return 0, err
	}
	cur, err := d.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	next, err := addTo(cur, delta)
	if err != nil {
		return 0, err
	}
	if _, err := d.set(ctx, segs, next); err != nil {
		return 0, err
	}
	return next, nil
}

func (d *Document) Push(ctx context.Context, key string, el any, _ ...WriteOption) ([]any, error) {
	return d.modifyArray(ctx, key, func(cur any) ([]any, error) {
		return pushTo(cur, el)
	})
}

func (d *Document) Pull(ctx context.Context, key string, el any, _ ...WriteOption) ([]any, error) {
	return d.modifyArray(ctx, key, func(cur any) ([]any, error) {
		return pullFrom(cur, el, d.config.StrictPull)
	})
}

func (d *Document) modifyArray(ctx context.Context, key string, fn func(cur any) ([]any, error)) ([]any, error) {
	segs, err := splitKey(key)
	if err != nil {
		return nil, err
	}
	cur, err := d.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	next, err := fn(cur)
	if err != nil {
		return nil, err
	}
	if _, err := d.set(ctx, segs, next); err != nil {
		return nil, err
	}
	return next, nil
}

// All scans the table and returns every document sorted by key.
func (d *Document) All(ctx context.Context) ([]Entry, error) {
	if err := d.check(); err != nil {
		return nil, err
	}
	entries := []Entry{}
	paginator := dynamodb.NewScanPaginator(d.client, &dynamodb.ScanInput{
		TableName:      aws.String(d.table),
		ConsistentRead: aws.Bool(true),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", d.table, err)
		}
		for _, item := range page.Items {
			key, ok := DocumentKeyOf(item)
			if !ok {
				continue
			}
			v, err := UnmarshalValue(item)
			if err != nil {
				return nil, fmt.Errorf("unmarshal document %q: %w", key, err)
			}
			entries = append(entries, Entry{Key: key, Value: v})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

// Clear deletes every document in the table.
func (d *Document) Clear(ctx context.Context) error {
	keys, err := d.scanKeys(ctx)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(clearConcurrency)
	for start := 0; start < len(keys); start += batchSize {
		end := min(start+batchSize, len(keys))
		chunk := keys[start:end]
		g.Go(func() error {
			return d.deleteBatch(ctx, chunk)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	d.logger.Debug("cleared table", "table", d.table, "documents", len(keys))
	return nil
}

func (d *Document) scanKeys(ctx context.Context) ([]string, error) {
	if err := d.check(); err != nil {
		return nil, err
	}
	var keys []string
	paginator := dynamodb.NewScanPaginator(d.client, &dynamodb.ScanInput{
		TableName:                aws.String(d.table),
		ProjectionExpression:     aws.String("#key"),
		ExpressionAttributeNames: map[string]string{"#key": AttrKey},
		ConsistentRead:           aws.Bool(true),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", d.table, err)
		}
		for _, item := range page.Items {
			if key, ok := DocumentKeyOf(item); ok {
				keys = append(keys, key)
			}
		}
	}
	return keys, nil
}

// deleteBatch deletes up to batchSize documents, resubmitting unprocessed items.
func (d *Document) deleteBatch(ctx context.Context, keys []string) error {
	requests := make([]types.WriteRequest, 0, len(keys))
	for _, key := range keys {
		requests = append(requests, types.WriteRequest{
			DeleteRequest: &types.DeleteRequest{Key: DocumentKey(key)},
		})
	}
	pending := map[string][]types.WriteRequest{d.table: requests}

	for attempt := 0; len(pending[d.table]) > 0; attempt++ {
		if attempt == maxBatchAttempts {
			return fmt.Errorf("batch delete %s: %d items left unprocessed", d.table, len(pending[d.table]))
		}
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * 50 * time.Millisecond):
			}
		}
		result, err := d.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: pending,
		})
		if err != nil {
			return fmt.Errorf("batch delete %s: %w", d.table, err)
		}
		pending = result.UnprocessedItems
	}
	return nil
}

// IsTableMissing reports whether err means the table does not exist.
func IsTableMissing(err error) bool {
	var notFound *types.ResourceNotFoundException
	return errors.As(err, &notFound)
}
