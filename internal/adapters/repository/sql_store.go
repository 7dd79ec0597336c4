package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/yamclicker/core/internal/infrastructure/logger"
	"github.com/yamclicker/core/internal/ports"
)

// SQLStore implements the KeyValueStore interface on a kv_store table. It
// serves both SQLite and postgres; placeholders are rebound per driver.
type SQLStore struct {
	db     *sqlx.DB
	logger *logger.Logger
}

// NewSQLStore creates a new SQL-backed key-value store
func NewSQLStore(db *sqlx.DB, logger *logger.Logger) ports.KeyValueStore {
	return &SQLStore{db: db, logger: logger.WithComponent("sql_store")}
}

func (r *SQLStore) Get(ctx context.Context, key string) (string, bool, error) {
	start := time.Now()
	query := r.db.Rebind(`SELECT value FROM kv_store WHERE key = ?`)

	var value string
	err := r.db.GetContext(ctx, &value, query, key)
	if errors.Is(err, sql.ErrNoRows) {
		r.logger.LogStorageOperation("get", key, elapsedMillis(start), nil)
		return "", false, nil
	}
	r.logger.LogStorageOperation("get", key, elapsedMillis(start), err)
	if err != nil {
		return "", false, fmt.Errorf("get value: %w", err)
	}

	return value, true, nil
}

func (r *SQLStore) Set(ctx context.Context, key, value string) error {
	start := time.Now()
	query := r.db.Rebind(`
		INSERT INTO kv_store (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`)

	_, err := r.db.ExecContext(ctx, query, key, value)
	r.logger.LogStorageOperation("set", key, elapsedMillis(start), err)
	if err != nil {
		return fmt.Errorf("set value: %w", err)
	}

	return nil
}

func (r *SQLStore) Delete(ctx context.Context, key string) error {
	start := time.Now()
	query := r.db.Rebind(`DELETE FROM kv_store WHERE key = ?`)

	_, err := r.db.ExecContext(ctx, query, key)
	r.logger.LogStorageOperation("delete", key, elapsedMillis(start), err)
	if err != nil {
		return fmt.Errorf("delete value: %w", err)
	}

	return nil
}

func (r *SQLStore) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close is a no-op; the database handle is owned by whoever opened it.
func (r *SQLStore) Close() error {
	return nil
}

func elapsedMillis(start time.Time) float64 {
	return float64(time.Since(start).Nanoseconds()) / 1000000
}
