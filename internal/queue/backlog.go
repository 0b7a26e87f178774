package queue

import (
	"go.uber.org/zap"

	"github.com/GriffinCanCode/constructorio-go/internal/infrastructure/logging"
	"github.com/GriffinCanCode/constructorio-go/internal/storage"
)

// StorageKey holds the shared backlog in local storage
const StorageKey = "_constructorio_requests"

// Backlog is the persisted list of pending entries. Every RequestQueue bound
// to the same store shares it.
type Backlog struct {
	store  storage.Store
	logger *logging.Logger
}

// NewBacklog binds a backlog to store
func NewBacklog(store storage.Store, logger *logging.Logger) *Backlog {
	return &Backlog{
		store:  store,
		logger: logging.Or(logger),
	}
}

// Get returns the pending entries, or an empty list if the slot is absent
// or unreadable.
func (b *Backlog) Get() []Entry {
	data, ok, err := b.store.Get(StorageKey)
	if err != nil {
		b.logger.Debug("failed to read backlog", zap.Error(err))
		return []Entry{}
	}
	if !ok {
		return []Entry{}
	}
	return decodeEntries(data)
}

// Set replaces the pending entries. An empty list removes the slot.
func (b *Backlog) Set(entries []Entry) error {
	if len(entries) == 0 {
		return b.Remove()
	}

	data, err := encodeEntries(entries)
	if err != nil {
		return err
	}
	return b.store.Set(StorageKey, data)
}

// Remove deletes the slot
func (b *Backlog) Remove() error {
	return b.store.Remove(StorageKey)
}

// Update rewrites the pending entries with fn and returns the new list.
// The rewrite is atomic when the store implements storage.Updater.
func (b *Backlog) Update(fn func([]Entry) []Entry) ([]Entry, error) {
	var next []Entry
	err := storage.Update(b.store, StorageKey, func(current []byte) ([]byte, error) {
		var entries []Entry
		if current != nil {
			entries = decodeEntries(current)
		}

		next = fn(entries)
		if len(next) == 0 {
			return nil, nil
		}
		return encodeEntries(next)
	})
	if err != nil {
		return nil, err
	}
	return next, nil
}

// Append adds entry to the end of the backlog and returns the new length
func (b *Backlog) Append(entry Entry) (int, error) {
	next, err := b.Update(func(entries []Entry) []Entry {
		return append(entries, entry)
	})
	return len(next), err
}

// PopFront removes and returns the oldest entry along with the remaining length
func (b *Backlog) PopFront() (Entry, int, bool) {
	var head Entry
	var found bool

	next, err := b.Update(func(entries []Entry) []Entry {
		if len(entries) == 0 {
			return entries
		}
		head, found = entries[0], true
		return entries[1:]
	})
	if err != nil {
		b.logger.Debug("failed to pop backlog entry", zap.Error(err))
		return Entry{}, 0, false
	}
	return head, len(next), found
}

// Get returns the persisted backlog of store, independent of any queue
func Get(store storage.Store) []Entry {
	return NewBacklog(store, nil).Get()
}
