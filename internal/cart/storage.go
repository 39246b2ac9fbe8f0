package cart

import (
	"context"
	"errors"
	"sync"
)

// ErrSnapshotNotFound is returned by Storage.Load when no snapshot exists under the key.
var ErrSnapshotNotFound = errors.New("cart snapshot not found")

// Storage is the key-value contract used to persist cart snapshots.
type Storage interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
}

// Deleter is implemented by storages that can drop a snapshot. Registry uses
// it to forget carts left empty when they are evicted.
type Deleter interface {
	Delete(ctx context.Context, key string) error
}

// MemoryStorage keeps snapshots in process memory. It is used when no durable
// backend is configured and in tests.
type MemoryStorage struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string][]byte)}
}

func (m *MemoryStorage) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrSnapshotNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *MemoryStorage) Save(_ context.Context, key string, data []byte) error {
	buf := make([]byte, len(data))
	copy(buf, data)
	m.mu.Lock()
	m.data[key] = buf
	m.mu.Unlock()
	return nil
}

func (m *MemoryStorage) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}
