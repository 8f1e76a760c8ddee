package stream

import (
	"context"

	"github.com/jacentio/arkdb/store"
)

// recordingStore remembers the last Set and Delete it received.
type recordingStore struct {
	store.Store
	setKey    string
	setValue  any
	deleteKey string
}

func (r *recordingStore) Set(_ context.Context, key string, value any, _ ...store.WriteOption) (any, error) {
	r.setKey, r.setValue = key, value
	return value, nil
}

func (r *recordingStore) Delete(_ context.Context, key string, _ ...store.WriteOption) (bool, error) {
	r.deleteKey = key
	return true, nil
}
