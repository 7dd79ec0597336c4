package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yamclicker/core/internal/infrastructure/config"
)

func TestSQLiteMigrations(t *testing.T) {
	ctx := context.Background()
	db, err := NewSQLite(filepath.Join(t.TempDir(), "nested", "yams.db"))
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, config.DriverSQLite, db.Driver())
	require.NoError(t, db.MigrateUp(ctx))
	// up scripts are idempotent
	require.NoError(t, db.MigrateUp(ctx))

	_, err = db.DB.ExecContext(ctx, "INSERT INTO kv_store (key, value) VALUES ('count', '1')")
	require.NoError(t, err)

	require.NoError(t, db.MigrateDown(ctx))
	_, err = db.DB.ExecContext(ctx, "SELECT key FROM kv_store")
	assert.Error(t, err)
}

func TestSQLiteHealth(t *testing.T) {
	db, err := NewSQLite(filepath.Join(t.TempDir(), "yams.db"))
	require.NoError(t, err)
	defer db.Close()

	assert.NoError(t, db.HealthCheck(context.Background()))
	assert.Equal(t, config.DriverSQLite, db.GetConnectionInfo()["driver"])

	_, _, err = db.MigrationVersion(context.Background())
	assert.ErrorIs(t, err, ErrMigrationsUnsupported)
}

func TestNewRejectsNonSQLDriver(t *testing.T) {
	_, err := New(config.StorageConfig{Driver: config.DriverRedis})
	assert.Error(t, err)
}

// Needs a reachable server configured through DB_HOST, DB_USER and friends.
func TestPostgresMigratorReleasesConnection(t *testing.T) {
	if os.Getenv("YAMS_TEST_POSTGRES") == "" {
		t.Skip("set YAMS_TEST_POSTGRES to run against a live postgres")
	}
	ctx := context.Background()

	cfg, err := config.Load("")
	require.NoError(t, err)
	db, err := NewPostgres(cfg.Storage.Database)
	require.NoError(t, err)
	defer db.Close()

	// more rounds than the pool has connections
	for i := 0; i <= cfg.Storage.Database.MaxOpenConns; i++ {
		require.NoError(t, db.MigrateUp(ctx))
		_, dirty, err := db.MigrationVersion(ctx)
		require.NoError(t, err)
		assert.False(t, dirty)
	}

	assert.Zero(t, db.DB.Stats().InUse)
	require.NoError(t, db.HealthCheck(ctx))
}
