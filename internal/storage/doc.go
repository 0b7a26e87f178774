/*
Package storage provides the key/value persistence used by the tracking client.

# Overview

Every value is a JSON document addressed by a string key. The package defines
the Store contract consumed by the request queue and the humanity detector,
plus three implementations:

  - MemoryStore: process-local map with an optional byte quota
  - SQLiteStore: durable store backed by a single SQLite table
  - OverflowStore: wraps a durable store and keeps values in memory when the
    durable side reports ErrQuotaExceeded

Stores that can apply a read-modify-write atomically implement Updater. The
request queue relies on it so that several queues sharing one store pop each
backlog entry exactly once.

# Usage

	local, err := storage.OpenSQLite(ctx, "/var/lib/tracker/state.db", 0)
	if err != nil {
		return err
	}
	store := storage.NewOverflowStore(local)

	if err := storage.SetJSON(store, "key", []string{"a", "b"}); err != nil {
		return err
	}
*/
package storage
