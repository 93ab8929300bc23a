package bunstore

import (
	"context"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-finance-tracker/model"
	"github.com/goliatone/go-finance-tracker/persistence"
)

// UserRepository implements persistence.UserStore.
type UserRepository struct {
	db    *bun.DB
	clock clockwork.Clock
}

var _ persistence.UserStore = (*UserRepository)(nil)

func NewUserRepository(db *bun.DB, clock clockwork.Clock) *UserRepository {
	return &UserRepository{db: db, clock: clock}
}

func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return findByID[model.User](ctx, r.db, id)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	row := new(model.User)
	err := r.db.NewSelect().Model(row).Where("email = ?", email).Limit(1).Scan(ctx)
	if err != nil {
		return nil, translate(err)
	}
	return row, nil
}

func (r *UserRepository) Create(ctx context.Context, u *model.User) (*model.User, error) {
	row := *u
	row.CreatedAt = row.CreatedAt.UTC()
	row.UpdatedAt = row.UpdatedAt.UTC()
	if _, err := r.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return nil, translate(err)
	}
	return &row, nil
}

func (r *UserRepository) Update(ctx context.Context, id uuid.UUID, changes persistence.UserChanges) (*model.User, error) {
	row, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if changes.Role != nil {
		row.Role = *changes.Role
	}
	if changes.CountryCode != nil {
		row.CountryCode = *changes.CountryCode
	}
	if changes.BaseCurrencyCode != nil {
		row.BaseCurrencyCode = *changes.BaseCurrencyCode
	}
	row.UpdatedAt = r.clock.Now().UTC()

	if err := updateColumns(ctx, r.db, row, "role", "country_code", "base_currency_code", "updated_at"); err != nil {
		return nil, err
	}
	return row, nil
}
