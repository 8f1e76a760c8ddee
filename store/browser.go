package store

import (
	"context"
	"io"
)

// SlotStorage is host-provided persistent storage addressed by slot name,
// shaped after the browser localStorage API.
type SlotStorage interface {
	// GetItem returns the slot's text and whether the slot exists.
	GetItem(ctx context.Context, key string) (string, bool, error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
}

// Browser is a Store whose tree lives in one named slot of a SlotStorage.
type Browser struct {
	*treeStore
	storage SlotStorage
	slot    string
}

var _ Store = (*Browser)(nil)

// NewBrowser binds a store to config.Slot in storage, initializing the slot
// with {} when empty. A slot that does not hold a JSON object fails with
// ErrMalformedMedium.
func NewBrowser(ctx context.Context, storage SlotStorage, config Config) (*Browser, error) {
	config.validate()
	ts, err := newTreeStore(ctx, &slotMedium{storage: storage, slot: config.Slot}, config)
	if err != nil {
		return nil, err
	}
	return &Browser{treeStore: ts, storage: storage, slot: config.Slot}, nil
}

// Slot returns the slot name.
func (b *Browser) Slot() string {
	return b.slot
}

// Close closes the underlying storage when it is an io.Closer.
func (b *Browser) Close() error {
	if c, ok := b.storage.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

type slotMedium struct {
	storage SlotStorage
	slot    string
}

func (m *slotMedium) String() string { return "slot " + m.slot }

func (m *slotMedium) read(ctx context.Context) ([]byte, bool, error) {
	s, ok, err := m.storage.GetItem(ctx, m.slot)
	if err != nil || !ok {
		return nil, false, err
	}
	return []byte(s), true, nil
}

func (m *slotMedium) write(ctx context.Context, data []byte) error {
	return m.storage.SetItem(ctx, m.slot, string(data))
}
