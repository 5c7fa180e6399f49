// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package audit keeps an append-only trail of publish decisions and their
// QA reports in SQLite, with YAML and JSON export.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/content-engine/pkg/types"
)

// Entry is one recorded pipeline outcome.
type Entry struct {
	ID         string                `json:"id" yaml:"id"`
	RecordedAt time.Time             `json:"recorded_at" yaml:"recorded_at"`
	Query      types.Query           `json:"query" yaml:"query"`
	DocumentID string                `json:"document_id" yaml:"document_id"`
	Cached     bool                  `json:"cached" yaml:"cached"`
	Decision   types.PublishDecision `json:"decision" yaml:"decision"`
}

// ListOptions filters List and the exports.
type ListOptions struct {
	// Since keeps entries recorded at or after this time when non-zero.
	Since time.Time

	// Approved keeps only approved (true) or unapproved (false) decisions.
	Approved *bool

	// Limit caps the number of entries; 0 means no cap.
	Limit int
}

// Store is the SQLite-backed audit trail.
type Store struct {
	db *sql.DB

	// Now defaults to time.Now.
	Now func() time.Time
}

// Open opens or creates the audit database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating audit directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS audit_log (
			id TEXT PRIMARY KEY,
			recorded_at INTEGER NOT NULL,
			document_id TEXT NOT NULL DEFAULT '',
			approved INTEGER NOT NULL DEFAULT 0,
			entry TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_recorded ON audit_log(recorded_at)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_document ON audit_log(document_id)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record appends e. An empty ID or timestamp is filled in.
func (s *Store) Record(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.RecordedAt.IsZero() {
		e.RecordedAt = s.now()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return Entry{}, fmt.Errorf("encoding audit entry: %w", err)
	}
	approved := 0
	if e.Decision.Approved {
		approved = 1
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO audit_log (id, recorded_at, document_id, approved, entry) VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.RecordedAt.UnixNano(), e.DocumentID, approved, string(data))
	if err != nil {
		return Entry{}, fmt.Errorf("writing audit entry: %w", err)
	}
	return e, nil
}

// List returns entries matching opts, oldest first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]Entry, error) {
	query := `SELECT entry FROM audit_log WHERE 1=1`
	var args []any
	if !opts.Since.IsZero() {
		query += ` AND recorded_at >= ?`
		args = append(args, opts.Since.UnixNano())
	}
	if opts.Approved != nil {
		query += ` AND approved = ?`
		if *opts.Approved {
			args = append(args, 1)
		} else {
			args = append(args, 0)
		}
	}
	query += ` ORDER BY recorded_at, id`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing audit entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}
		var e Entry
		if err := json.Unmarshal([]byte(data), &e); err != nil {
			return nil, fmt.Errorf("decoding audit entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
