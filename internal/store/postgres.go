package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `CREATE TABLE IF NOT EXISTS collections (
  name       TEXT        PRIMARY KEY,
  body       JSONB       NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// pgxQuerier is the part of *pgxpool.Pool the backend uses.
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresCollections is the PostgreSQL counterpart of SQLCollections.
type PostgresCollections struct {
	pool pgxQuerier
}

func NewPostgresCollections(pool *pgxpool.Pool) *PostgresCollections {
	return &PostgresCollections{pool: pool}
}

// EnsureSchema creates the collections table when it does not exist.
func (p *PostgresCollections) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("postgres schema: %w", err)
	}
	return nil
}

func (p *PostgresCollections) ReadCollection(ctx context.Context, name string) ([]json.RawMessage, error) {
	var body []byte
	err := p.pool.QueryRow(ctx, `SELECT body::text FROM collections WHERE name = $1`, name).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCollectionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres read %s: %w", name, err)
	}
	records, err := decodeArray(body)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return records, nil
}

func (p *PostgresCollections) WriteCollection(ctx context.Context, name string, records []json.RawMessage) error {
	body, err := encodeArray(records)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	_, err = p.pool.Exec(ctx,
		`INSERT INTO collections (name, body, updated_at) VALUES ($1, $2::jsonb, now())
		 ON CONFLICT (name) DO UPDATE SET body = EXCLUDED.body, updated_at = now()`,
		name, string(body))
	if err != nil {
		return fmt.Errorf("postgres write %s: %w", name, err)
	}
	return nil
}
