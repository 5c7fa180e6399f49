// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/content-engine/pkg/types"
)

// SQLite is a Backend persisted in a SQLite file. Entries are stored as
// JSON; the expiry is kept in its own column for purging.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens or creates the cache database at path.
func OpenSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS cache_entries (
		key TEXT PRIMARY KEY,
		entry TEXT NOT NULL,
		expires_at INTEGER NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_cache_expires ON cache_entries(expires_at)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Close releases the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Get returns the entry stored under key.
func (s *SQLite) Get(ctx context.Context, key string) (types.CacheEntry, bool, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT entry FROM cache_entries WHERE key = ?`, key).Scan(&data)
	if err == sql.ErrNoRows {
		return types.CacheEntry{}, false, nil
	}
	if err != nil {
		return types.CacheEntry{}, false, fmt.Errorf("reading cache entry: %w", err)
	}
	var e types.CacheEntry
	if err := json.Unmarshal([]byte(data), &e); err != nil {
		return types.CacheEntry{}, false, fmt.Errorf("decoding cache entry: %w", err)
	}
	return e, true, nil
}

// Put stores entry, replacing any entry under the same key.
func (s *SQLite) Put(ctx context.Context, entry types.CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO cache_entries (key, entry, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET entry=excluded.entry, expires_at=excluded.expires_at`,
		entry.Key, string(data), entry.ExpiresAt.UnixNano())
	if err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

// Delete removes key.
func (s *SQLite) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ?`, key); err != nil {
		return fmt.Errorf("deleting cache entry: %w", err)
	}
	return nil
}

// Purge removes entries expiring at or before cutoff.
func (s *SQLite) Purge(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE expires_at <= ?`, cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("purging cache: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// Len returns the number of stored entries, expired or not.
func (s *SQLite) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM cache_entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting cache entries: %w", err)
	}
	return n, nil
}
