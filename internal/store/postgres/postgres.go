// Package postgres persists enriched entries as JSONB documents in PostgreSQL.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var tableName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Connect establishes a connection pool and verifies it.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

type Store[T any] struct {
	pool  *pgxpool.Pool
	table string
}

// New prepares table and returns a store over it.
func New[T any](ctx context.Context, pool *pgxpool.Pool, table string) (*Store[T], error) {
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}

	_, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS `+table+` (
		id         TEXT PRIMARY KEY,
		payload    JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`)
	if err != nil {
		return nil, fmt.Errorf("failed to create table %s: %w", table, err)
	}

	return &Store[T]{pool: pool, table: table}, nil
}

func (s *Store[T]) Get(ctx context.Context, id string) (T, bool, error) {
	var (
		zero    T
		payload []byte
	)
	err := s.pool.QueryRow(ctx, `SELECT payload FROM `+s.table+` WHERE id = $1`, id).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("failed to read %s/%s: %w", s.table, id, err)
	}

	var value T
	if err := json.Unmarshal(payload, &value); err != nil {
		return zero, false, fmt.Errorf("failed to decode %s/%s: %w", s.table, id, err)
	}
	return value, true, nil
}

func (s *Store[T]) Put(ctx context.Context, id string, value T) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s/%s: %w", s.table, id, err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO `+s.table+` (id, payload) VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET payload = EXCLUDED.payload, updated_at = NOW()`,
		id, payload,
	)
	if err != nil {
		return fmt.Errorf("failed to write %s/%s: %w", s.table, id, err)
	}
	return nil
}

func (s *Store[T]) Len() int {
	var n int
	if err := s.pool.QueryRow(context.Background(), `SELECT COUNT(1) FROM `+s.table).Scan(&n); err != nil {
		return 0
	}
	return n
}
