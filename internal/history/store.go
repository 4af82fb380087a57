// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver (pure Go, no CGO)
)

// Config holds SQLite connection parameters.
type Config struct {
	BusyTimeout  time.Duration
	MaxOpenConns int
}

// DefaultConfig returns the settings used by the daemon.
func DefaultConfig() Config {
	return Config{
		BusyTimeout:  time.Second,
		MaxOpenConns: 4,
	}
}

// Store is the SQLite history sink.
type Store struct {
	db *sql.DB
}

// Open opens (and creates) the history database at dbPath.
func Open(dbPath string, cfg Config) (*Store, error) {
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = 1
	}
	// #nosec G301
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("history: create dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)",
		dbPath, cfg.BusyTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("history: open: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxOpenConns)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: ping: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: migrate: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database answers.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS history_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		job_id TEXT NOT NULL DEFAULT '',
		path TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		url TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_history_items_created ON history_items(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// AppendHistoryItem stores item. Busy/locked failures are wrapped with ErrStorageBusy.
func (s *Store) AppendHistoryItem(ctx context.Context, item Item) error {
	if item.Timestamp.IsZero() {
		item.Timestamp = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO history_items (job_id, path, name, type, url, created_at)
	VALUES (?, ?, ?, ?, ?, ?)
	`, item.JobID, item.Path, item.Name, item.Type, item.URL, item.Timestamp.UTC().Format(time.RFC3339Nano))
	if err != nil {
		if IsStorageBusy(err) {
			return fmt.Errorf("%w: %w", ErrStorageBusy, err)
		}
		return fmt.Errorf("append history item: %w", err)
	}
	return nil
}

// List returns the most recent items, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Item, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
	SELECT id, job_id, path, name, type, url, created_at
	FROM history_items
	ORDER BY id DESC
	LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []Item
	for rows.Next() {
		var (
			it Item
			ts string
		)
		if err := rows.Scan(&it.ID, &it.JobID, &it.Path, &it.Name, &it.Type, &it.URL, &ts); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			it.Timestamp = t
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// Count returns the number of stored items.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM history_items`).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return n, err
}
