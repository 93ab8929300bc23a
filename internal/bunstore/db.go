// Package bunstore implements the persistence contracts over bun, on SQLite
// or PostgreSQL.
package bunstore

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Open connects to dsn with driver and wraps the pool in a bun.DB with the
// matching dialect. SQLite pools are limited to one connection so in-memory
// databases are shared and writers never see SQLITE_BUSY.
func Open(driver, dsn string) (*bun.DB, error) {
	switch driver {
	case DriverSQLite:
		sqldb, err := sql.Open(DriverSQLite, sqliteDSN(dsn))
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		sqldb.SetMaxOpenConns(1)
		if err := sqldb.Ping(); err != nil {
			sqldb.Close()
			return nil, fmt.Errorf("ping sqlite: %w", err)
		}
		return bun.NewDB(sqldb, sqlitedialect.New()), nil

	case DriverPostgres:
		sqldb, err := sql.Open(DriverPostgres, dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := sqldb.Ping(); err != nil {
			sqldb.Close()
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		return bun.NewDB(sqldb, pgdialect.New()), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", driver)
}

// sqliteDSN enables foreign keys and a busy timeout unless the DSN already
// sets them.
func sqliteDSN(dsn string) string {
	params := []string{}
	if !strings.Contains(dsn, "_foreign_keys") && !strings.Contains(dsn, "_fk") {
		params = append(params, "_foreign_keys=1")
	}
	if !strings.Contains(dsn, "_busy_timeout") {
		params = append(params, "_busy_timeout=5000")
	}
	if len(params) == 0 {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(params, "&")
}

// Dialect reports the driver name a bun.DB was opened with.
func Dialect(db *bun.DB) string {
	if db.Dialect().Name() == dialect.PG {
		return DriverPostgres
	}
	return DriverSQLite
}
