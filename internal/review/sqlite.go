// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package review

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/content-engine/pkg/types"
)

// SQLite is a Store persisted in a SQLite file. Tickets are stored as JSON
// next to the columns used for filtering and ordering.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens or creates the review database at path.
func OpenSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating review directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS review_tickets (
			id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			submitted_at INTEGER NOT NULL,
			ticket TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_review_status ON review_tickets(status)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating schema: %w", err)
		}
	}
	return &SQLite{db: db}, nil
}

// Close releases the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Save implements Store.
func (s *SQLite) Save(ctx context.Context, t types.ReviewTicket) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encoding ticket: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO review_tickets (id, status, submitted_at, ticket) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET status=excluded.status, ticket=excluded.ticket`,
		t.ID, string(t.Status), t.SubmittedAt.UnixNano(), string(data))
	if err != nil {
		return fmt.Errorf("writing ticket: %w", err)
	}
	return nil
}

// Get implements Store.
func (s *SQLite) Get(ctx context.Context, id string) (types.ReviewTicket, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT ticket FROM review_tickets WHERE id = ?`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return types.ReviewTicket{}, fmt.Errorf("%w: %s", ErrTicketNotFound, id)
	}
	if err != nil {
		return types.ReviewTicket{}, fmt.Errorf("reading ticket: %w", err)
	}
	return decodeTicket(data)
}

// List implements Store.
func (s *SQLite) List(ctx context.Context, status types.ReviewStatus) ([]types.ReviewTicket, error) {
	query := `SELECT ticket FROM review_tickets`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY submitted_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing tickets: %w", err)
	}
	defer rows.Close()

	var out []types.ReviewTicket
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning ticket: %w", err)
		}
		t, err := decodeTicket(data)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func decodeTicket(data string) (types.ReviewTicket, error) {
	var t types.ReviewTicket
	if err := json.Unmarshal([]byte(data), &t); err != nil {
		return types.ReviewTicket{}, fmt.Errorf("decoding ticket: %w", err)
	}
	return t, nil
}
