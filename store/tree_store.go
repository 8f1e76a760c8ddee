package store

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/jacentio/arkdb/tree"
)

// medium is the durable home of a whole tree: a file or a storage slot.
type medium interface {
	// read returns the stored text and whether the medium exists.
	read(ctx context.Context) ([]byte, bool, error)
	// write replaces the stored text.
	write(ctx context.Context, data []byte) error
	// String names the medium in logs and errors.
	String() string
}

// treeStore keeps one tree in memory and flushes it whole to a medium
// after every mutation. The in-memory tree is the source of truth for reads.
type treeStore struct {
	mu     sync.Mutex
	medium medium
	data   map[string]any
	config Config
	logger *slog.Logger
}

func newTreeStore(ctx context.Context, m medium, config Config) (*treeStore, error) {
	s := &treeStore{
		medium: m,
		config: config,
		logger: config.Logger,
	}
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// load reads the medium into memory, initializing it with {} when it does not exist.
func (s *treeStore) load(ctx context.Context) error {
	raw, exists, err := s.medium.read(ctx)
	if err != nil {
		return fmt.Errorf("read %s: %w", s.medium, err)
	}
	if !exists {
		if err := s.medium.write(ctx, []byte("{}")); err != nil {
			return fmt.Errorf("initialize %s: %w", s.medium, err)
		}
		s.data = map[string]any{}
		s.logger.Debug("initialized medium", "medium", s.medium.String())
		return nil
	}
	data, err := parseTree(raw)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedMedium, s.medium, err)
	}
	s.data = data
	return nil
}

// parseTree decodes a top-level JSON object. Blank input is an empty tree.
func parseTree(raw []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]any{}, nil
	}
	v, err := tree.Decode(raw)
	if err != nil {
		return nil, err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("top-level value is %T, not an object", v)
	}
	return m, nil
}

// flush writes the whole tree. Callers hold s.mu.
func (s *treeStore) flush(ctx context.Context, pretty bool) error {
	b, err := tree.Encode(s.data, pretty)
	if err != nil {
		return fmt.Errorf("encode tree: %w", err)
	}
	if err := s.medium.write(ctx, b); err != nil {
		return fmt.Errorf("flush %s: %w", s.medium, err)
	}
	s.logger.Debug("flushed tree", "medium", s.medium.String(), "bytes", len(b))
	return nil
}

// Flush writes the in-memory tree to the medium, catching up any
// mutation made with WithoutWrite.
func (s *treeStore) Flush(ctx context.Context, opts ...WriteOption) error {
	o := writeOptions(s.config, opts)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flush(ctx, o.Pretty)
}

func (s *treeStore) Get(ctx context.Context, key string) (any, error) {
	segs, err := splitKey(key)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, _ := tree.Get(s.data, segs)
	return tree.Clone(v), nil
}

func (s *treeStore) Fetch(ctx context.Context, key string) (any, error) {
	return s.Get(ctx, key)
}

func (s *treeStore) Has(ctx context.Context, key string) (bool, error) {
	segs, err := splitKey(key)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return tree.Has(s.data, segs), nil
}

func (s *treeStore) Set(ctx context.Context, key string, value any, opts ...WriteOption) (any, error) {
	segs, err := splitKey(key)
	if err != nil {
		return nil, err
	}
	value, err = normalizeValue(value)
	if err != nil {
		return nil, err
	}
	o := writeOptions(s.config, opts)

	s.mu.Lock()
	defer s.mu.Unlock()
	root := tree.Set(s.data, segs, value)
	if o.Write {
		if err := s.flush(ctx, o.Pretty); err != nil {
			return nil, err
		}
	}
	return tree.Clone(root), nil
}

func (s *treeStore) Delete(ctx context.Context, key string, opts ...WriteOption) (bool, error) {
	segs, err := splitKey(key)
	if err != nil {
		return false, err
	}
	o := writeOptions(s.config, opts)

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := tree.Unset(s.data, segs)
	if o.Write {
		if err := s.flush(ctx, o.Pretty); err != nil {
			return false, err
		}
	}
	return removed, nil
}

func (s *treeStore) Add(ctx context.Context, key string, n float64, opts ...WriteOption) (float64, error) {
	return s.arith(ctx, key, n, opts)
}

func (s *treeStore) Subtract(ctx context.Context, key string, n float64, opts ...WriteOption) (float64, error) {
	return s.arith(ctx, key, -n, opts)
}

func (s *treeStore) arith(ctx context.Context, key string, delta float64, opts []WriteOption) (float64, error) {
	segs, err := splitKey(key)
	if err != nil {
		return 0, err
	}
	o := writeOptions(s.config, opts)

	s.mu.Lock()
	defer s.mu.Unlock()
	cur, _ := tree.Get(s.data, segs)
	next, err := addTo(cur, delta)
	if err != nil {
		return 0, err
	}
	tree.Set(s.data, segs, next)
	if o.Write {
		if err := s.flush(ctx, o.Pretty); err != nil {
			return 0, err
		}
	}
	return next, nil
}

func (s *treeStore) Push(ctx context.Context, key string, el any, opts ...WriteOption) ([]any, error) {
	return s.modifyArray(ctx, key, opts, func(cur any) ([]any, error) {
		return pushTo(cur, el)
	})
}

func (s *treeStore) Pull(ctx context.Context, key string, el any, opts ...WriteOption) ([]any, error) {
	return s.modifyArray(ctx, key, opts, func(cur any) ([]any, error) {
		return pullFrom(cur, el, s.config.StrictPull)
	})
}

func (s *treeStore) modifyArray(ctx context.Context, key string, opts []WriteOption, fn func(cur any) ([]any, error)) ([]any, error) {
	segs, err := splitKey(key)
	if err != nil {
		return nil, err
	}
	o := writeOptions(s.config, opts)

	s.mu.Lock()
	defer s.mu.Unlock()
	cur, _ := tree.Get(s.data, segs)
	next, err := fn(cur)
	if err != nil {
		return nil, err
	}
	tree.Set(s.data, segs, next)
	if o.Write {
		if err := s.flush(ctx, o.Pretty); err != nil {
			return nil, err
		}
	}
	return tree.Clone(next).([]any), nil
}

func (s *treeStore) All(ctx context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	entries := make([]Entry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, Entry{Key: k, Value: tree.Clone(s.data[k])})
	}
	return entries, nil
}

func (s *treeStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = map[string]any{}
	return s.flush(ctx, s.config.Pretty)
}
