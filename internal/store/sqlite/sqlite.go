// Package sqlite persists enriched entries as JSON documents in SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	_ "modernc.org/sqlite"
)

var tableName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Open opens (and creates when needed) the database file at path.
func Open(path string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// Writers serialize on one connection.
	db.SetMaxOpenConns(1)

	return db, nil
}

type Store[T any] struct {
	db    *sql.DB
	table string
}

// New prepares table in db and returns a store over it.
func New[T any](ctx context.Context, db *sql.DB, table string) (*Store[T], error) {
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}

	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+table+` (
		id         TEXT PRIMARY KEY,
		payload    TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`)
	if err != nil {
		return nil, fmt.Errorf("create table %s: %w", table, err)
	}

	return &Store[T]{db: db, table: table}, nil
}

func (s *Store[T]) Get(ctx context.Context, id string) (T, bool, error) {
	var (
		zero    T
		payload string
	)
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM `+s.table+` WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("read %s/%s: %w", s.table, id, err)
	}

	var value T
	if err := json.Unmarshal([]byte(payload), &value); err != nil {
		return zero, false, fmt.Errorf("decode %s/%s: %w", s.table, id, err)
	}
	return value, true, nil
}

func (s *Store[T]) Put(ctx context.Context, id string, value T) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", s.table, id, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO `+s.table+` (id, payload, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at
	`, id, string(payload), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("write %s/%s: %w", s.table, id, err)
	}
	return nil
}

func (s *Store[T]) Len() int {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(1) FROM ` + s.table).Scan(&n); err != nil {
		return 0
	}
	return n
}
