package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jacentio/arkdb/internal/path"
	"github.com/jacentio/arkdb/tree"
)

// Store is the operation set shared by every backend.
type Store interface {
	// Get returns the value at key, or nil when it is absent or null.
	Get(ctx context.Context, key string) (any, error)

	// Fetch is an alias of Get.
	Fetch(ctx context.Context, key string) (any, error)

	// Has reports whether key exists, even when its value is null.
	Has(ctx context.Context, key string) (bool, error)

	// Set stores value at key and returns the value now held by the key's first segment.
	Set(ctx context.Context, key string, value any, opts ...WriteOption) (any, error)

	// Delete removes key. It returns false when there was nothing to remove.
	Delete(ctx context.Context, key string, opts ...WriteOption) (bool, error)

	// Add increments the number at key, treating an absent key as 0.
	Add(ctx context.Context, key string, n float64, opts ...WriteOption) (float64, error)

	// Subtract decrements the number at key, treating an absent key as 0.
	Subtract(ctx context.Context, key string, n float64, opts ...WriteOption) (float64, error)

	// Push appends el to the array at key, treating an absent key as [].
	Push(ctx context.Context, key string, el any, opts ...WriteOption) ([]any, error)

	// Pull removes every element equal to el from the array at key.
	Pull(ctx context.Context, key string, el any, opts ...WriteOption) ([]any, error)

	// All returns every top-level key with its value, sorted by key.
	All(ctx context.Context) ([]Entry, error)

	// Clear removes everything.
	Clear(ctx context.Context) error
}

// Lifecycle is implemented by backends that own a connection.
type Lifecycle interface {
	Uptime() time.Duration
	Close() error
}

// Entry is one top-level key and its value.
type Entry struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// splitKey wraps path.Split so callers see the key in the error.
func splitKey(key string) ([]string, error) {
	segs, err := path.Split(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", err, key)
	}
	return segs, nil
}

// normalizeValue applies the InvalidValue policy: nil is absent and rejected,
// falsy values such as 0, false and "" are accepted.
func normalizeValue(v any) (any, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: value is nil", ErrInvalidValue)
	}
	n, err := tree.Normalize(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	return n, nil
}

// addTo returns cur + delta. A nil cur counts as 0.
func addTo(cur any, delta float64) (float64, error) {
	if _, err := tree.Normalize(delta); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	if cur == nil {
		return delta, nil
	}
	n, ok := tree.Number(cur)
	if !ok {
		return 0, fmt.Errorf("%w: %T", ErrNotANumber, cur)
	}
	return n + delta, nil
}

// pushTo returns a new array holding cur followed by el. A nil cur counts as [].
func pushTo(cur, el any) ([]any, error) {
	el, err := normalizeValue(el)
	if err != nil {
		return nil, err
	}
	arr, err := asArray(cur)
	if err != nil {
		return nil, err
	}
	out := make([]any, 0, len(arr)+1)
	out = append(out, arr...)
	return append(out, el), nil
}

// pullFrom returns cur without any element structurally equal to el.
func pullFrom(cur, el any, strict bool) ([]any, error) {
	el, err := normalizeValue(el)
	if err != nil {
		return nil, err
	}
	arr, err := asArray(cur)
	if err != nil {
		return nil, err
	}
	out := make([]any, 0, len(arr))
	for _, x := range arr {
		if !tree.Equal(x, el) {
			out = append(out, x)
		}
	}
	if strict && len(out) == len(arr) {
		return nil, ErrNoSuchElement
	}
	return out, nil
}

func asArray(cur any) ([]any, error) {
	if cur == nil {
		return []any{}, nil
	}
	arr, ok := cur.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrNotAnArray, cur)
	}
	return arr, nil
}
