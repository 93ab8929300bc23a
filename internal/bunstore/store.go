package bunstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-finance-tracker/persistence"
)

// Store groups the bun-backed repositories sharing one database.
type Store struct {
	DB           *bun.DB
	Categories   *CategoryRepository
	Transactions *TransactionRepository
	Users        *UserRepository
}

// New builds the repositories over db. Update and delete timestamps come
// from clock; a nil clock uses the wall clock.
func New(db *bun.DB, clock clockwork.Clock) *Store {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Store{
		DB:           db,
		Categories:   NewCategoryRepository(db, clock),
		Transactions: NewTransactionRepository(db, clock),
		Users:        NewUserRepository(db, clock),
	}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.DB.Close()
}

// findByID loads the live row of T with id.
func findByID[T any](ctx context.Context, db bun.IDB, id uuid.UUID) (*T, error) {
	row := new(T)
	err := db.NewSelect().Model(row).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		return nil, translate(err)
	}
	return row, nil
}

// updateColumns writes columns of row and reports ErrNotFound when no live
// row matched its primary key.
func updateColumns(ctx context.Context, db bun.IDB, row any, columns ...string) error {
	res, err := db.NewUpdate().Model(row).Column(columns...).WherePK().Exec(ctx)
	if err != nil {
		return translate(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return persistence.ErrNotFound
	}
	return nil
}
