package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// PostgresStore persists documents in a single key/jsonb table. It is the
// durable backend for multi-process deployments; the schema is created on
// first use.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore ensures the documents table exists and returns a store.
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS engine_documents (
		key TEXT PRIMARY KEY,
		doc JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`)
	if err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Get(ctx context.Context, key string, out any) error {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT doc FROM engine_documents WHERE key = $1`, key).Scan(&data)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func (s *PostgresStore) Set(ctx context.Context, key string, val any) error {
	data, err := json.Marshal(val)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO engine_documents (key, doc, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET doc = EXCLUDED.doc, updated_at = NOW()`,
		key, data)
	return err
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM engine_documents WHERE key = $1`, key)
	return err
}

func (s *PostgresStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM engine_documents WHERE key LIKE $1 || '%'`, prefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
