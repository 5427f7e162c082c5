package store

import (
	"context"
	"sort"
	"sync"
)

// Memory keeps everything in process memory.
type Memory struct {
	mu       sync.RWMutex
	values   map[string]string
	receipts []*Receipt
}

var (
	_ KV      = (*Memory)(nil)
	_ History = (*Memory)(nil)
)

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *Memory) Put(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *Memory) AddReceipt(_ context.Context, r *Receipt) error {
	cp := *r
	m.mu.Lock()
	defer m.mu.Unlock()
	m.receipts = append(m.receipts, &cp)
	return nil
}

func (m *Memory) ListReceipts(_ context.Context, limit int) ([]*Receipt, error) {
	m.mu.RLock()
	out := make([]*Receipt, 0, len(m.receipts))
	for _, r := range m.receipts {
		cp := *r
		out = append(out, &cp)
	}
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Close is a no-op so Memory can stand in for SQLite.
func (m *Memory) Close() error {
	return nil
}
