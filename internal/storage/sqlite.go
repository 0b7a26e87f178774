package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // CGO-free SQLite

	"github.com/GriffinCanCode/constructorio-go/internal/shared/codec"
)

// SQLiteStore persists values in a single key/value table.
// Writes go through IMMEDIATE transactions, so Update is atomic across
// connections and across processes sharing the file.
type SQLiteStore struct {
	db    *sql.DB
	quota int64
}

// OpenSQLite opens (or creates) the store at path.
// A positive quota caps the total size of stored values in bytes.
func OpenSQLite(ctx context.Context, path string, quota int64) (*SQLiteStore, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := createTables(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db, quota: quota}, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS kv(
	  key        TEXT    PRIMARY KEY,
	  value      TEXT    NOT NULL CHECK (json_valid(value)),
	  updated_at INTEGER NOT NULL
	);
	`)
	if err != nil {
		return fmt.Errorf("failed to create database tables: %w", err)
	}
	return nil
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Get returns the value stored under key
func (s *SQLiteStore) Get(key string) ([]byte, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return []byte(value), true, nil
}

// Set stores value under key
func (s *SQLiteStore) Set(key string, value []byte) error {
	return s.Update(key, func([]byte) ([]byte, error) {
		return value, nil
	})
}

// Remove deletes key
func (s *SQLiteStore) Remove(key string) error {
	if _, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	return nil
}

// Update applies fn inside a single write transaction
func (s *SQLiteStore) Update(key string, fn UpdateFunc) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	var current []byte
	var value string
	err = tx.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		_ = tx.Rollback()
		return fmt.Errorf("failed to read %s: %w", key, err)
	default:
		current = []byte(value)
	}

	next, err := fn(current)
	if err != nil {
		_ = tx.Rollback()
		return err
	}

	if next == nil {
		if _, err := tx.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to remove %s: %w", key, err)
		}
		return s.commit(tx)
	}

	if !codec.Valid(next) {
		_ = tx.Rollback()
		return fmt.Errorf("refusing to write %s: value is not valid JSON", key)
	}

	if s.quota > 0 {
		var used int64
		err := tx.QueryRow(`SELECT COALESCE(SUM(length(value)), 0) FROM kv WHERE key <> ?`, key).Scan(&used)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to measure usage: %w", err)
		}
		if used+int64(len(next)) > s.quota {
			_ = tx.Rollback()
			return ErrQuotaExceeded
		}
	}

	_, err = tx.Exec(`INSERT INTO kv(key, value, updated_at) VALUES(?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(next), time.Now().UnixMilli())
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return s.commit(tx)
}

func (s *SQLiteStore) commit(tx *sql.Tx) error {
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
