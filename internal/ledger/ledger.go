// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger keeps a SQLite history of conversion runs: one row per run
// and one row per processed document. It never influences skip decisions,
// which depend only on the presence of .txt outputs.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/textextract/pkg/types"
)

// ErrNoRun is returned by Record before BeginRun.
var ErrNoRun = errors.New("ledger: no run in progress")

// Store manages the ledger database.
type Store struct {
	db    *sql.DB
	runID int64
	now   func() time.Time
}

// Open opens or creates the ledger database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating ledger directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}

	s := &Store{db: db, now: time.Now}
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
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			patterns TEXT NOT NULL,
			skip_converted INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS documents (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id INTEGER NOT NULL REFERENCES runs(id),
			path TEXT NOT NULL,
			outcome TEXT NOT NULL,
			text_bearing INTEGER NOT NULL,
			words INTEGER NOT NULL,
			error TEXT,
			processed_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_path ON documents(path)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_run ON documents(run_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// BeginRun opens a new run; subsequent Record calls attach to it.
func (s *Store) BeginRun(ctx context.Context, patterns []string, skipConverted bool) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (started_at, patterns, skip_converted) VALUES (?, ?, ?)`,
		s.timestamp(), strings.Join(patterns, "\n"), skipConverted,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading run id: %w", err)
	}
	s.runID = id
	return id, nil
}

// FinishRun stamps the current run's end time.
func (s *Store) FinishRun(ctx context.Context) error {
	if s.runID == 0 {
		return ErrNoRun
	}
	_, err := s.db.ExecContext(ctx, `UPDATE runs SET finished_at = ? WHERE id = ?`, s.timestamp(), s.runID)
	if err != nil {
		return fmt.Errorf("finishing run %d: %w", s.runID, err)
	}
	return nil
}

// Record stores one document report under the current run.
func (s *Store) Record(ctx context.Context, r types.Report) error {
	if s.runID == 0 {
		return ErrNoRun
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (run_id, path, outcome, text_bearing, words, error, processed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.runID, r.Path, string(r.Outcome), r.TextBearing, r.Words, r.Error, s.timestamp(),
	)
	if err != nil {
		return fmt.Errorf("recording %s: %w", r.Path, err)
	}
	return nil
}

// Entry is a recorded document report.
type Entry struct {
	RunID       int64     `json:"run_id" yaml:"run_id"`
	ProcessedAt time.Time `json:"processed_at" yaml:"processed_at"`

	types.Report `yaml:",inline"`
}

// Query filters Recent.
type Query struct {
	// Limit caps the number of entries (default 50).
	Limit int
	// Outcome keeps only entries with this outcome when set.
	Outcome types.Outcome
	// Path keeps only entries for this document when set.
	Path string
}

// Recent returns the newest entries first.
func (s *Store) Recent(ctx context.Context, q Query) ([]Entry, error) {
	if q.Limit <= 0 {
		q.Limit = 50
	}

	var where []string
	var args []any
	if q.Outcome != "" {
		where = append(where, "outcome = ?")
		args = append(args, string(q.Outcome))
	}
	if q.Path != "" {
		where = append(where, "path = ?")
		args = append(args, q.Path)
	}

	query := `SELECT run_id, path, outcome, text_bearing, words, COALESCE(error, ''), processed_at FROM documents`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, q.Limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying ledger: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e       Entry
			outcome string
			ts      string
		)
		if err := rows.Scan(&e.RunID, &e.Path, &outcome, &e.TextBearing, &e.Words, &e.Error, &ts); err != nil {
			return nil, fmt.Errorf("scanning ledger row: %w", err)
		}
		e.Outcome = types.Outcome(outcome)
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			e.ProcessedAt = t
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}
