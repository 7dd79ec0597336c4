package repository

import (
	"context"
	"fmt"

	"github.com/yamclicker/core/internal/infrastructure/config"
	"github.com/yamclicker/core/internal/infrastructure/database"
	"github.com/yamclicker/core/internal/infrastructure/logger"
	"github.com/yamclicker/core/internal/ports"
)

// ownedSQLStore closes the database it was opened with.
type ownedSQLStore struct {
	ports.KeyValueStore
	db *database.DB
}

func (s *ownedSQLStore) Close() error {
	return s.db.Close()
}

// Stats reports the pool of the underlying database.
func (s *ownedSQLStore) Stats() map[string]interface{} {
	return s.db.GetConnectionInfo()
}

// Open builds the key-value store selected by cfg.Driver. SQL drivers are
// migrated before the store is returned.
func Open(ctx context.Context, cfg config.StorageConfig, log *logger.Logger) (ports.KeyValueStore, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return NewMemoryStore(), nil

	case config.DriverFile:
		return NewFileStore(cfg.Path, log)

	case config.DriverSQLite, config.DriverPostgres:
		db, err := database.New(cfg)
		if err != nil {
			return nil, err
		}
		if err := db.MigrateUp(ctx); err != nil {
			db.Close()
			return nil, err
		}
		return &ownedSQLStore{KeyValueStore: NewSQLStore(db.DB, log), db: db}, nil

	case config.DriverRedis:
		return NewRedisStore(ctx, cfg.Redis, cfg.KeyPrefix, log)

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
