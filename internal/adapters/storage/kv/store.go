// Package kv is a small key/value table in the local cache database.
package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gymdesk/internal/adapters/storage"
)

// SQLiteStore implements a string key/value store using SQLite.
type SQLiteStore struct {
	db  storage.SQLDB
	now func() time.Time
}

// NewSQLiteStore creates a new kv store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

// Get returns the value for key and whether it exists.
// INVARIANT: Store state is not mutated
func (s *SQLiteStore) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, storage.Classify(err))
	}
	return v, true, nil
}

// Put upserts key.
// POST: Get(key) returns value
func (s *SQLiteStore) Put(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, s.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("put %s: %w", key, storage.Classify(err))
	}
	return nil
}

// CounterKey is where the roll number counter lives.
const CounterKey = "sequence.local_value"

// CounterCache stores an integer counter under one key.
// It satisfies sequence.CounterCache.
type CounterCache struct {
	store *SQLiteStore
	key   string
}

// NewCounterCache binds a counter to key.
func NewCounterCache(store *SQLiteStore, key string) *CounterCache {
	return &CounterCache{store: store, key: key}
}

// Load returns the stored counter and whether one exists.
func (c *CounterCache) Load(ctx context.Context) (int64, bool, error) {
	raw, ok, err := c.store.Get(ctx, c.key)
	if err != nil || !ok {
		return 0, false, err
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("counter %s holds %q: %w", c.key, raw, err)
	}
	return v, true, nil
}

// Store writes the counter.
func (c *CounterCache) Store(ctx context.Context, value int64) error {
	return c.store.Put(ctx, c.key, strconv.FormatInt(value, 10))
}
