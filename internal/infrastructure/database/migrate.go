package database

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/yamclicker/core/internal/infrastructure/config"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// ErrMigrationsUnsupported is returned for migration operations the active
// driver cannot track.
var ErrMigrationsUnsupported = errors.New("migration versioning requires postgres")

// MigrateUp applies every pending migration. Postgres is tracked by
// golang-migrate; SQLite runs the idempotent up scripts directly.
func (db *DB) MigrateUp(ctx context.Context) error {
	if db.driver != config.DriverPostgres {
		return db.execScripts(ctx, ".up.sql", false)
	}

	return db.withMigrator(ctx, func(m *migrate.Migrate) error {
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migrate up: %w", err)
		}
		return nil
	})
}

// MigrateDown reverts every applied migration.
func (db *DB) MigrateDown(ctx context.Context) error {
	if db.driver != config.DriverPostgres {
		return db.execScripts(ctx, ".down.sql", true)
	}

	return db.withMigrator(ctx, func(m *migrate.Migrate) error {
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migrate down: %w", err)
		}
		return nil
	})
}

// MigrationVersion reports the current schema version and dirty flag.
func (db *DB) MigrationVersion(ctx context.Context) (uint, bool, error) {
	if db.driver != config.DriverPostgres {
		return 0, false, ErrMigrationsUnsupported
	}

	var (
		version uint
		dirty   bool
	)
	err := db.withMigrator(ctx, func(m *migrate.Migrate) error {
		var err error
		version, dirty, err = m.Version()
		if err != nil {
			return fmt.Errorf("migration version: %w", err)
		}
		return nil
	})
	return version, dirty, err
}

// withMigrator runs fn on a migrator bound to one dedicated connection from
// the pool. Closing the migrator releases that connection and leaves the
// pool open.
func (db *DB) withMigrator(ctx context.Context, fn func(m *migrate.Migrate) error) error {
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open migration source: %w", err)
	}

	conn, err := db.DB.DB.Conn(ctx)
	if err != nil {
		src.Close()
		return fmt.Errorf("failed to acquire migration connection: %w", err)
	}

	driver, err := postgres.WithConnection(ctx, conn, &postgres.Config{})
	if err != nil {
		src.Close()
		conn.Close()
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		src.Close()
		driver.Close()
		return fmt.Errorf("failed to create migration instance: %w", err)
	}
	defer m.Close()

	return fn(m)
}

func (db *DB) execScripts(ctx context.Context, suffix string, reverse bool) error {
	names, err := fs.Glob(migrationFS, "migrations/*"+suffix)
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(names)
	if reverse {
		sort.Sort(sort.Reverse(sort.StringSlice(names)))
	}

	for _, name := range names {
		script, err := migrationFS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if strings.TrimSpace(string(script)) == "" {
			continue
		}
		if _, err := db.DB.ExecContext(ctx, string(script)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}
	return nil
}
