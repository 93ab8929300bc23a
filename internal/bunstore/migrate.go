package bunstore

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/uptrace/bun"
)

//go:embed migrations
var migrationsFS embed.FS

// Migrate applies every pending migration for the dialect of db. Running it
// on an up to date schema is a no-op.
func Migrate(db *bun.DB) error {
	m, closeFn, err := newMigrator(db)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// SchemaVersion reports the applied migration version and whether the last
// run left the schema dirty.
func SchemaVersion(db *bun.DB) (uint, bool, error) {
	m, closeFn, err := newMigrator(db)
	if err != nil {
		return 0, false, err
	}
	defer closeFn()

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read schema version: %w", err)
	}
	return version, dirty, nil
}

func newMigrator(db *bun.DB) (*migrate.Migrate, func(), error) {
	driverName := Dialect(db)
	source, err := iofs.New(migrationsFS, "migrations/"+driverName)
	if err != nil {
		return nil, nil, fmt.Errorf("create iofs source: %w", err)
	}

	switch driverName {
	case DriverPostgres:
		driver, err := migratepg.WithInstance(db.DB, &migratepg.Config{})
		if err != nil {
			return nil, nil, fmt.Errorf("create postgres driver: %w", err)
		}
		m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
		if err != nil {
			return nil, nil, fmt.Errorf("create migrate instance: %w", err)
		}
		// The postgres driver holds a dedicated connection; closing it
		// leaves the pool open.
		return m, func() { m.Close() }, nil

	default:
		driver, err := migratesqlite.WithInstance(db.DB, &migratesqlite.Config{})
		if err != nil {
			return nil, nil, fmt.Errorf("create sqlite driver: %w", err)
		}
		m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
		if err != nil {
			return nil, nil, fmt.Errorf("create migrate instance: %w", err)
		}
		// Closing the sqlite driver closes the shared pool.
		return m, func() { source.Close() }, nil
	}
}
