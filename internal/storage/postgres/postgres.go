// Package postgres keeps browser namespaces in a single client_storage table.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tumioparbe/web/internal/storage"
)

// Backend is a storage.Backend backed by PostgreSQL
type Backend struct {
	db *sql.DB
}

// New wraps an already migrated database handle.
func New(db *sql.DB) *Backend {
	return &Backend{db: db}
}

// Open connects, migrates and returns a ready backend.
func Open(ctx context.Context, databaseURL string) (*Backend, error) {
	db, err := OpenDB(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return New(db), nil
}

func (b *Backend) Get(ctx context.Context, namespace, key string) ([]byte, error) {
	var value []byte
	err := b.db.QueryRowContext(ctx, `
		SELECT value FROM client_storage
		WHERE namespace = $1 AND key = $2
	`, namespace, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("query client storage: %w", err)
	}
	return value, nil
}

func (b *Backend) Set(ctx context.Context, namespace, key string, value []byte) error {
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO client_storage (namespace, key, value, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (namespace, key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`, namespace, key, value)
	if err != nil {
		return fmt.Errorf("upsert client storage: %w", err)
	}
	return nil
}

func (b *Backend) Delete(ctx context.Context, namespace, key string) error {
	_, err := b.db.ExecContext(ctx, `
		DELETE FROM client_storage WHERE namespace = $1 AND key = $2
	`, namespace, key)
	if err != nil {
		return fmt.Errorf("delete client storage: %w", err)
	}
	return nil
}

// Prune removes entries not written since the cutoff and returns how many went.
func (b *Backend) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := b.db.ExecContext(ctx, `
		DELETE FROM client_storage WHERE updated_at < $1
	`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("prune client storage: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

func (b *Backend) Close() error { return b.db.Close() }
