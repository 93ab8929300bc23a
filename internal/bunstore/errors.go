package bunstore

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/goliatone/go-finance-tracker/persistence"
)

const pgUniqueViolation = "23505"

// translate maps driver errors onto the persistence sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.ErrNotFound
	}
	if isUniqueViolation(err) {
		return errors.Join(persistence.ErrDuplicate, err)
	}
	return err
}

func isUniqueViolation(err error) bool {
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pgErr *pq.Error
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	// go-repository-bun may flatten the driver error into its message.
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}
