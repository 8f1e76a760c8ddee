package store

import (
	"context"
	"fmt"
	"net/url"
	"sort"

	"github.com/jacentio/arkdb/webstorage"
)

// Opener opens a Store for a parsed URI.
type Opener func(ctx context.Context, u *url.URL, config Config) (Store, error)

// Registry maps URI schemes to the backends that open them.
type Registry struct {
	openers map[string]Opener
}

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{openers: make(map[string]Opener)}
}

// DefaultRegistry returns a Registry with every built-in backend:
//
//	data.json, file:data.json, file:///abs/data.json    Local
//	dynamodb://region?endpoint=URL&collection=NAME      Document (closes its Conn on Close)
//	webstorage:ls.db?slot=NAME, webstorage:///abs/ls.db  Browser over webstorage.SQLite
//	memory:?slot=NAME                                   Browser over webstorage.Memory
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("file", openFile)
	r.Register("dynamodb", openDynamo)
	r.Register("webstorage", openWebStorage)
	r.Register("memory", openMemory)
	return r
}

// Register adds or replaces the opener for scheme.
func (r *Registry) Register(scheme string, open Opener) {
	r.openers[scheme] = open
}

// Schemes returns the registered schemes in order.
func (r *Registry) Schemes() []string {
	schemes := make([]string, 0, len(r.openers))
	for s := range r.openers {
		schemes = append(schemes, s)
	}
	sort.Strings(schemes)
	return schemes
}

// Open parses uri and opens the matching backend. A uri without a scheme is
// a file name. The returned Store may implement io.Closer.
func (r *Registry) Open(ctx context.Context, uri string, config Config) (Store, error) {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// Bare names and Windows drive letters are files.
		u = &url.URL{Scheme: "file", Opaque: uri}
	}
	open, ok := r.openers[u.Scheme]
	if !ok {
		return nil, fmt.Errorf("%w: unknown scheme %q", ErrInvalidConnection, u.Scheme)
	}
	return open(ctx, u, config)
}

// Open opens uri with the DefaultRegistry.
func Open(ctx context.Context, uri string, config Config) (Store, error) {
	return DefaultRegistry().Open(ctx, uri, config)
}

func openFile(ctx context.Context, u *url.URL, config Config) (Store, error) {
	name := u.Opaque
	if name == "" {
		name = u.Host + u.Path
	}
	if name != "" {
		config.FileName = name
	}
	return NewLocal(ctx, config)
}

func openDynamo(ctx context.Context, u *url.URL, config Config) (Store, error) {
	c, err := Dial(ctx, u.String(), config)
	if err != nil {
		return nil, err
	}
	return c.Collection(""), nil
}

func openWebStorage(ctx context.Context, u *url.URL, config Config) (Store, error) {
	dbPath := u.Path
	if dbPath == "" {
		dbPath = u.Opaque
	}
	if dbPath == "" {
		return nil, fmt.Errorf("%w: webstorage URI needs a database path", ErrInvalidConnection)
	}
	ls, err := webstorage.OpenSQLite(ctx, dbPath)
	if err != nil {
		return nil, err
	}
	if slot := u.Query().Get("slot"); slot != "" {
		config.Slot = slot
	}
	b, err := NewBrowser(ctx, ls, config)
	if err != nil {
		_ = ls.Close()
		return nil, err
	}
	return b, nil
}

func openMemory(ctx context.Context, u *url.URL, config Config) (Store, error) {
	if slot := u.Query().Get("slot"); slot != "" {
		config.Slot = slot
	}
	return NewBrowser(ctx, webstorage.NewMemory(), config)
}
