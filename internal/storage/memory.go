package storage

import "sync"

// MemoryStore keeps values in a process-local map.
// A positive quota caps the total size of stored values in bytes.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string][]byte
	quota  int
	used   int
}

// NewMemoryStore creates an unbounded in-memory store
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithQuota(0)
}

// NewMemoryStoreWithQuota creates an in-memory store limited to quota bytes
func NewMemoryStoreWithQuota(quota int) *MemoryStore {
	return &MemoryStore{
		values: make(map[string][]byte),
		quota:  quota,
	}
}

// Get returns a copy of the value stored under key
func (m *MemoryStore) Get(key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.values[key]
	if !ok {
		return nil, false, nil
	}
	return clone(v), true, nil
}

// Set stores value under key
func (m *MemoryStore) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setLocked(key, value)
}

// Remove deletes key
func (m *MemoryStore) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(key)
	return nil
}

// Update applies fn while holding the store lock
func (m *MemoryStore) Update(key string, fn UpdateFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var current []byte
	if v, ok := m.values[key]; ok {
		current = clone(v)
	}

	next, err := fn(current)
	if err != nil {
		return err
	}
	if next == nil {
		m.removeLocked(key)
		return nil
	}
	return m.setLocked(key, next)
}

// Keys returns the stored keys
func (m *MemoryStore) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	return keys
}

// Size returns the number of bytes currently stored
func (m *MemoryStore) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.used
}

func (m *MemoryStore) setLocked(key string, value []byte) error {
	used := m.used - len(m.values[key]) + len(value)
	if m.quota > 0 && used > m.quota {
		return ErrQuotaExceeded
	}
	m.values[key] = clone(value)
	m.used = used
	return nil
}

func (m *MemoryStore) removeLocked(key string) {
	if v, ok := m.values[key]; ok {
		m.used -= len(v)
		delete(m.values, key)
	}
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
