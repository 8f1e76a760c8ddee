package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Scheme prefixes every remote connection URI.
const Scheme = "dynamodb://"

// tableWaitTimeout bounds CreateCollection's wait for the table to become active.
const tableWaitTimeout = 2 * time.Minute

// AdminAPI is the subset of *dynamodb.Client used by Conn.
type AdminAPI interface {
	DynamoAPI
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DeleteTable(ctx context.Context, params *dynamodb.DeleteTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteTableOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// Endpoint is a parsed connection URI:
//
//	dynamodb://[region][?endpoint=URL&profile=NAME&collection=NAME]
type Endpoint struct {
	Region     string
	Endpoint   string
	Profile    string
	Collection string
}

// ParseURI parses a dynamodb:// connection URI.
func ParseURI(uri string) (Endpoint, error) {
	if !strings.HasPrefix(uri, Scheme) {
		return Endpoint{}, fmt.Errorf("%w: %q must start with %s", ErrInvalidConnection, uri, Scheme)
	}
	u, err := url.Parse(uri)
	if err != nil {
		return Endpoint{}, fmt.Errorf("%w: %v", ErrInvalidConnection, err)
	}
	q := u.Query()
	return Endpoint{
		Region:     u.Host,
		Endpoint:   q.Get("endpoint"),
		Profile:    q.Get("profile"),
		Collection: q.Get("collection"),
	}, nil
}

// Conn is an open binding to DynamoDB. Collections obtained from it fail
// with ErrClosed once it is closed.
type Conn struct {
	client      AdminAPI
	config      Config
	logger      *slog.Logger
	connectedAt time.Time

	mu     sync.Mutex
	closed bool
}

var _ Lifecycle = (*Conn)(nil)

// Dial loads AWS configuration for uri and returns a connection.
// Credentials come from the default chain (environment, shared profile, role).
func Dial(ctx context.Context, uri string, config Config) (*Conn, error) {
	ep, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}
	var opts []func(*awsconfig.LoadOptions) error
	if ep.Region != "" {
		opts = append(opts, awsconfig.WithRegion(ep.Region))
	}
	if ep.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(ep.Profile))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	client := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if ep.Endpoint != "" {
			o.BaseEndpoint = aws.String(ep.Endpoint)
		}
	})
	if ep.Collection != "" {
		config.Collection = ep.Collection
	}
	c := NewConn(client, config)
	c.logger.Debug("connected", "region", cfg.Region, "endpoint", ep.Endpoint)
	return c, nil
}

// NewConn wraps an existing client.
func NewConn(client AdminAPI, config Config) *Conn {
	config.validate()
	return &Conn{
		client:      client,
		config:      config,
		logger:      config.Logger,
		connectedAt: time.Now(),
	}
}

// Collection returns the Store for table name, or config.Collection when name is empty.
// The table must exist; see CreateCollection.
func (c *Conn) Collection(name string) *Document {
	d := NewDocument(c.client, name, c.config)
	d.conn = c
	return d
}

// CreateCollection creates table name with the document schema and waits
// until it is active. An existing table is not an error.
func (c *Conn) CreateCollection(ctx context.Context, name string) (*Document, error) {
	if c.isClosed() {
		return nil, ErrClosed
	}
	if name == "" {
		name = c.config.Collection
	}
	_, err := c.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(name),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(AttrKey), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(AttrKey), KeyType: types.KeyTypeHash},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	var inUse *types.ResourceInUseException
	if err != nil && !errors.As(err, &inUse) {
		return nil, fmt.Errorf("create table %s: %w", name, err)
	}

	waiter := dynamodb.NewTableExistsWaiter(c.client)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(name)}, tableWaitTimeout); err != nil {
		return nil, fmt.Errorf("wait for table %s: %w", name, err)
	}
	c.logger.Debug("created collection", "table", name)
	return c.Collection(name), nil
}

// DropCollection deletes table name. A missing table is not an error.
func (c *Conn) DropCollection(ctx context.Context, name string) error {
	if c.isClosed() {
		return ErrClosed
	}
	if name == "" {
		name = c.config.Collection
	}
	_, err := c.client.DeleteTable(ctx, &dynamodb.DeleteTableInput{
		TableName: aws.String(name),
	})
	if err != nil && !IsTableMissing(err) {
		return fmt.Errorf("delete table %s: %w", name, err)
	}
	c.logger.Debug("dropped collection", "table", name)
	return nil
}

// Uptime returns the time since the connection opened, or 0 once closed.
func (c *Conn) Uptime() time.Duration {
	if c.isClosed() {
		return 0
	}
	return time.Since(c.connectedAt)
}

// Close marks the connection closed. It is safe to call more than once.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *Conn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
