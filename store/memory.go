package store

import (
	"context"
	"sync"

	"github.com/google/btree"
)

type memoryEntry struct {
	key   string
	value string
}

func lessMemoryEntry(a, b memoryEntry) bool {
	return a.key < b.key
}

// MemoryStore keeps everything in an ordered in-memory tree. Data is lost on
// restart. Safe for concurrent use.
type MemoryStore struct {
	mu     sync.RWMutex
	tree   *btree.BTreeG[memoryEntry]
	closed bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tree: btree.NewG(32, lessMemoryEntry),
	}
}

func (m *MemoryStore) Name() string {
	return "memory"
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return "", false, ErrClosed
	}
	e, ok := m.tree.Get(memoryEntry{key: key})
	if !ok {
		return "", false, nil
	}
	return e.value, true, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.tree.ReplaceOrInsert(memoryEntry{key: key, value: value})
	return nil
}

func (m *MemoryStore) Keys(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	keys := make([]string, 0, m.tree.Len())
	m.tree.Ascend(func(e memoryEntry) bool {
		keys = append(keys, e.key)
		return true
	})
	return keys, nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

var _ Backend = (*MemoryStore)(nil)
