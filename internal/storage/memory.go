package storage

import (
	"errors"
	"sort"
	"sync"
)

// ErrWriteFailed is returned by MemoryBackend when writes are disabled.
var ErrWriteFailed = errors.New("storage: write failed")

// MemoryBackend is an in-process Backend used by tests and the CLI dry runs.
type MemoryBackend struct {
	mu         sync.RWMutex
	items      map[string][]byte
	quota      int64
	failWrites bool
}

// NewMemoryBackend creates an empty backend. A quota of zero or less
// disables the size limit.
func NewMemoryBackend(quota int64) *MemoryBackend {
	return &MemoryBackend{items: make(map[string][]byte), quota: quota}
}

// FailWrites makes every subsequent SetItem and RemoveItem fail.
func (m *MemoryBackend) FailWrites(fail bool) {
	m.mu.Lock()
	m.failWrites = fail
	m.mu.Unlock()
}

func (m *MemoryBackend) GetItem(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *MemoryBackend) SetItem(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites {
		return ErrWriteFailed
	}
	if m.quota > 0 {
		var used int64
		for k, v := range m.items {
			if k != key {
				used += usage(k, v)
			}
		}
		if used+usage(key, value) > m.quota {
			return ErrQuotaExceeded
		}
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	m.items[key] = stored
	return nil
}

func (m *MemoryBackend) RemoveItem(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites {
		return ErrWriteFailed
	}
	delete(m.items, key)
	return nil
}

func (m *MemoryBackend) Keys() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.items))
	for k := range m.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
