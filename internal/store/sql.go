package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

const mysqlSchema = `CREATE TABLE IF NOT EXISTS collections (
  name       VARCHAR(64)  NOT NULL PRIMARY KEY,
  body       LONGTEXT     NOT NULL,
  updated_at TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
)`

// SQLCollections stores every collection as one row of the MySQL
// collections table, keyed by collection name.  Replacing the row is a
// single statement so readers never see a partial collection.
type SQLCollections struct {
	db *sql.DB
}

// NewSQLCollections wraps an open MySQL handle (see database.Open).
func NewSQLCollections(db *sql.DB) *SQLCollections {
	return &SQLCollections{db: db}
}

// EnsureSchema creates the collections table when it does not exist.
func (s *SQLCollections) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, mysqlSchema); err != nil {
		return fmt.Errorf("mysql schema: %w", err)
	}
	return nil
}

func (s *SQLCollections) ReadCollection(ctx context.Context, name string) ([]json.RawMessage, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM collections WHERE name = ?`, name).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCollectionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mysql read %s: %w", name, err)
	}
	records, err := decodeArray([]byte(body))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return records, nil
}

func (s *SQLCollections) WriteCollection(ctx context.Context, name string, records []json.RawMessage) error {
	body, err := encodeArray(records)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO collections (name, body) VALUES (?, ?)
		 ON DUPLICATE KEY UPDATE body = VALUES(body)`,
		name, string(body))
	if err != nil {
		return fmt.Errorf("mysql write %s: %w", name, err)
	}
	return nil
}
