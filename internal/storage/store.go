package storage

import (
	"errors"
	"fmt"

	"github.com/GriffinCanCode/constructorio-go/internal/shared/codec"
)

var (
	// ErrQuotaExceeded is returned when a write would exceed the store capacity
	ErrQuotaExceeded = errors.New("storage quota exceeded")
	// ErrClosed is returned by operations on a closed store
	ErrClosed = errors.New("storage closed")
)

// Store is a key/value store holding JSON documents
type Store interface {
	// Get returns the raw JSON stored under key and whether it exists
	Get(key string) ([]byte, bool, error)
	// Set stores raw JSON under key
	Set(key string, value []byte) error
	// Remove deletes key; removing a missing key is not an error
	Remove(key string) error
}

// UpdateFunc receives the current value (nil when absent) and returns the
// next one. Returning a nil slice removes the key.
type UpdateFunc func(current []byte) ([]byte, error)

// Updater is implemented by stores that apply read-modify-write atomically
type Updater interface {
	Update(key string, fn UpdateFunc) error
}

// Marshal encodes v with the shared JSON codec
func Marshal(v interface{}) ([]byte, error) {
	return codec.Marshal(v)
}

// Unmarshal decodes JSON data into v
func Unmarshal(data []byte, v interface{}) error {
	return codec.Unmarshal(data, v)
}

// GetJSON decodes the value stored under key into v
func GetJSON(s Store, key string, v interface{}) (bool, error) {
	data, ok, err := s.Get(key)
	if err != nil || !ok {
		return false, err
	}
	if err := Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

// SetJSON encodes v and stores it under key
func SetJSON(s Store, key string, v interface{}) error {
	data, err := Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return s.Set(key, data)
}

// Update applies fn to key, atomically when s implements Updater.
// Other stores get a plain Get followed by Set or Remove.
func Update(s Store, key string, fn UpdateFunc) error {
	if u, ok := s.(Updater); ok {
		return u.Update(key, fn)
	}

	current, ok, err := s.Get(key)
	if err != nil {
		return err
	}
	if !ok {
		current = nil
	}

	next, err := fn(current)
	if err != nil {
		return err
	}
	if next == nil {
		return s.Remove(key)
	}
	return s.Set(key, next)
}
