package storage

import (
	"errors"
	"sync"
)

// OverflowStore writes to a durable store and falls back to memory when the
// durable side is full. Values held in memory shadow the durable copy until
// a later successful write moves them back.
type OverflowStore struct {
	mu       sync.Mutex
	durable  Store
	overflow *MemoryStore
}

// NewOverflowStore wraps durable with an in-memory overflow
func NewOverflowStore(durable Store) *OverflowStore {
	return &OverflowStore{
		durable:  durable,
		overflow: NewMemoryStore(),
	}
}

// Get prefers the overflow copy
func (o *OverflowStore) Get(key string) ([]byte, bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if v, ok, _ := o.overflow.Get(key); ok {
		return v, true, nil
	}
	return o.durable.Get(key)
}

// Set writes durably, keeping value in memory if the quota is exceeded
func (o *OverflowStore) Set(key string, value []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.setLocked(key, value)
}

// Remove deletes key from both layers
func (o *OverflowStore) Remove(key string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	_ = o.overflow.Remove(key)
	return o.durable.Remove(key)
}

// Update applies fn to the current value of key
func (o *OverflowStore) Update(key string, fn UpdateFunc) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if current, ok, _ := o.overflow.Get(key); ok {
		next, err := fn(current)
		if err != nil {
			return err
		}
		if next == nil {
			_ = o.overflow.Remove(key)
			return o.durable.Remove(key)
		}
		return o.setLocked(key, next)
	}

	var computed []byte
	err := Update(o.durable, key, func(current []byte) ([]byte, error) {
		next, err := fn(current)
		computed = next
		return next, err
	})
	if errors.Is(err, ErrQuotaExceeded) {
		return o.overflow.Set(key, computed)
	}
	return err
}

// Overflowed reports whether key currently lives only in memory
func (o *OverflowStore) Overflowed(key string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	_, ok, _ := o.overflow.Get(key)
	return ok
}

func (o *OverflowStore) setLocked(key string, value []byte) error {
	err := o.durable.Set(key, value)
	if errors.Is(err, ErrQuotaExceeded) {
		return o.overflow.Set(key, value)
	}
	if err != nil {
		return err
	}
	return o.overflow.Remove(key)
}
