package store

import (
	"context"
	"sort"
	"sync"
)

// Memory is an in-process Store used by tests and as the degraded mode when
// no durable backend is available.
type Memory struct {
	mu    sync.RWMutex
	data  map[Collection]map[string][]byte
	quota int64
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		data:  make(map[Collection]map[string][]byte),
		quota: 64 << 20,
	}
}

// Get implements Store.
func (m *Memory) Get(_ context.Context, col Collection, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.data[col][key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

// Put implements Store.
func (m *Memory) Put(_ context.Context, col Collection, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data[col] == nil {
		m.data[col] = make(map[string][]byte)
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	m.data[col][key] = stored
	return nil
}

// Delete implements Store. Deleting a missing key is a no-op.
func (m *Memory) Delete(_ context.Context, col Collection, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data[col], key)
	return nil
}

// Keys implements Store, returning keys in sorted order.
func (m *Memory) Keys(_ context.Context, col Collection) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.data[col]))
	for k := range m.data[col] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Count implements Store.
func (m *Memory) Count(_ context.Context, col Collection) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data[col]), nil
}

// Stats implements Store.
func (m *Memory) Stats(_ context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := Stats{QuotaBytes: m.quota, RecordCounts: make(map[Collection]int)}
	for col, records := range m.data {
		stats.RecordCounts[col] = len(records)
		for key, value := range records {
			stats.UsedBytes += int64(len(key) + len(value))
		}
	}
	return stats, nil
}
