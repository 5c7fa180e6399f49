// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package corpus persists reference passages in SQLite and serves keyword
// (FTS5) and vector (cosine similarity) search over them. It backs the
// vector and keyword source connectors.
package corpus

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

// Entry is one passage as stored in the corpus and as written in ingest files.
type Entry struct {
	ID          string    `json:"id" yaml:"id"`
	Content     string    `json:"content" yaml:"content"`
	Title       string    `json:"title,omitempty" yaml:"title,omitempty"`
	URL         string    `json:"url,omitempty" yaml:"url,omitempty"`
	Source      string    `json:"source,omitempty" yaml:"source,omitempty"`
	PublishedAt time.Time `json:"published_at,omitempty" yaml:"published_at,omitempty"`
	Authority   float64   `json:"authority,omitempty" yaml:"authority,omitempty"`
	Credibility float64   `json:"credibility,omitempty" yaml:"credibility,omitempty"`
	Embedding   []float32 `json:"-" yaml:"-"`
}

// origin converts the entry's provenance to passage metadata.
func (e Entry) origin() types.Origin {
	return types.Origin{
		Title:       e.Title,
		URL:         e.URL,
		Source:      e.Source,
		PublishedAt: e.PublishedAt,
		Authority:   e.Authority,
		Credibility: e.Credibility,
	}
}

// Store manages the passage corpus SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the corpus database at path and creates the schema
// if it does not exist.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating corpus directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS passages (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			content TEXT NOT NULL,
			title TEXT,
			url TEXT,
			source TEXT,
			published_at TEXT,
			authority REAL,
			credibility REAL,
			embedding TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_passages_source ON passages(source)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table with triggers for sync.
	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='passages_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}
	if ftsExists > 0 {
		return nil
	}

	ftsStatements := []string{
		`CREATE VIRTUAL TABLE passages_fts USING fts5(content, title, content=passages, content_rowid=rowid)`,
		`CREATE TRIGGER passages_ai AFTER INSERT ON passages BEGIN
			INSERT INTO passages_fts(rowid, content, title) VALUES (new.rowid, new.content, new.title);
		END`,
		`CREATE TRIGGER passages_ad AFTER DELETE ON passages BEGIN
			INSERT INTO passages_fts(passages_fts, rowid, content, title) VALUES('delete', old.rowid, old.content, old.title);
		END`,
		`CREATE TRIGGER passages_au AFTER UPDATE ON passages BEGIN
			INSERT INTO passages_fts(passages_fts, rowid, content, title) VALUES('delete', old.rowid, old.content, old.title);
			INSERT INTO passages_fts(rowid, content, title) VALUES (new.rowid, new.content, new.title);
		END`,
	}
	for _, stmt := range ftsStatements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("creating FTS infrastructure: %w", err)
		}
	}
	return nil
}

// Put inserts or replaces entries in one transaction.
func (s *Store) Put(ctx context.Context, entries []Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	// The delete fires the FTS trigger; INSERT OR REPLACE would skip it.
	del, err := tx.PrepareContext(ctx, `DELETE FROM passages WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("preparing delete: %w", err)
	}
	defer del.Close()

	ins, err := tx.PrepareContext(ctx,
		`INSERT INTO passages (id, content, title, url, source, published_at, authority, credibility, embedding)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer ins.Close()

	for _, e := range entries {
		if e.ID == "" {
			return fmt.Errorf("passage has no id")
		}
		if _, err := del.ExecContext(ctx, e.ID); err != nil {
			return fmt.Errorf("replacing passage %s: %w", e.ID, err)
		}

		published := ""
		if !e.PublishedAt.IsZero() {
			published = e.PublishedAt.UTC().Format(time.RFC3339)
		}
		var embedding sql.NullString
		if len(e.Embedding) > 0 {
			data, _ := json.Marshal(e.Embedding)
			embedding = sql.NullString{String: string(data), Valid: true}
		}

		if _, err := ins.ExecContext(ctx,
			e.ID, e.Content, e.Title, e.URL, e.Source, published,
			e.Authority, e.Credibility, embedding,
		); err != nil {
			return fmt.Errorf("inserting passage %s: %w", e.ID, err)
		}
	}

	return tx.Commit()
}

// Count returns the number of stored passages.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM passages`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting passages: %w", err)
	}
	return n, nil
}

// scanEntry reads one row selected with entryColumns.
func scanEntry(rows *sql.Rows) (Entry, error) {
	var (
		e                         Entry
		title, url, src, pub, emb sql.NullString
		authority, credibility    sql.NullFloat64
	)
	if err := rows.Scan(&e.ID, &e.Content, &title, &url, &src, &pub, &authority, &credibility, &emb); err != nil {
		return Entry{}, fmt.Errorf("scanning row: %w", err)
	}
	e.Title = title.String
	e.URL = url.String
	e.Source = src.String
	e.Authority = authority.Float64
	e.Credibility = credibility.Float64
	if pub.Valid && pub.String != "" {
		if t, err := time.Parse(time.RFC3339, pub.String); err == nil {
			e.PublishedAt = t
		}
	}
	if emb.Valid && emb.String != "" {
		json.Unmarshal([]byte(emb.String), &e.Embedding)
	}
	return e, nil
}

const entryColumns = `p.id, p.content, p.title, p.url, p.source, p.published_at, p.authority, p.credibility, p.embedding`
