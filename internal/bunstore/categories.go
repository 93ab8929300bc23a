package bunstore

import (
	"context"
	"fmt"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-finance-tracker/model"
	"github.com/goliatone/go-finance-tracker/persistence"
)

// CategoryRepository implements persistence.CategoryStore.
type CategoryRepository struct {
	db    *bun.DB
	repo  repository.Repository[*model.Category]
	clock clockwork.Clock
}

var _ persistence.CategoryStore = (*CategoryRepository)(nil)

func NewCategoryRepository(db *bun.DB, clock clockwork.Clock) *CategoryRepository {
	return &CategoryRepository{
		db: db,
		repo: repository.NewRepository[*model.Category](db, repository.ModelHandlers[*model.Category]{
			NewRecord: func() *model.Category { return &model.Category{} },
			GetID: func(c *model.Category) uuid.UUID {
				if c == nil {
					return uuid.Nil
				}
				return c.ID
			},
			SetID:         func(c *model.Category, id uuid.UUID) { c.ID = id },
			GetIdentifier: func() string { return "id" },
		}),
		clock: clock,
	}
}

func (r *CategoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Category, error) {
	return findByID[model.Category](ctx, r.db, id)
}

// FindMany returns the live categories matching filter ordered by name.
func (r *CategoryRepository) FindMany(ctx context.Context, filter persistence.CategoryFilter) ([]*model.Category, error) {
	rows, _, err := r.repo.List(ctx, categoryCriteria(filter), func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Order("name ASC", "created_at ASC")
	})
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", translate(err))
	}
	if rows == nil {
		rows = []*model.Category{}
	}
	return rows, nil
}

func (r *CategoryRepository) Count(ctx context.Context, filter persistence.CategoryFilter) (int, error) {
	n, err := r.repo.Count(ctx, categoryCriteria(filter))
	if err != nil {
		return 0, fmt.Errorf("count categories: %w", translate(err))
	}
	return n, nil
}

func (r *CategoryRepository) Create(ctx context.Context, c *model.Category) (*model.Category, error) {
	row := *c
	row.CreatedAt = row.CreatedAt.UTC()
	row.UpdatedAt = row.UpdatedAt.UTC()
	if _, err := r.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return nil, translate(err)
	}
	return &row, nil
}

func (r *CategoryRepository) Update(ctx context.Context, id uuid.UUID, changes persistence.CategoryChanges) (*model.Category, error) {
	row, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if changes.Name != nil {
		row.Name = *changes.Name
	}
	if changes.Kind != nil {
		row.Kind = *changes.Kind
	}
	if changes.ClearParent {
		row.ParentID = nil
	} else if changes.ParentID != nil {
		p := *changes.ParentID
		row.ParentID = &p
	}
	row.UpdatedAt = r.clock.Now().UTC()

	if err := updateColumns(ctx, r.db, row, "name", "kind", "parent_id", "updated_at"); err != nil {
		return nil, err
	}
	return row, nil
}

func (r *CategoryRepository) SoftDelete(ctx context.Context, id uuid.UUID) (*model.Category, error) {
	row, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	row.DeletedAt = r.clock.Now().UTC()
	if err := updateColumns(ctx, r.db, row, "deleted_at"); err != nil {
		return nil, err
	}
	return row, nil
}

func categoryCriteria(f persistence.CategoryFilter) repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		if f.OwnerID != uuid.Nil {
			q = q.Where("owner_id = ?", f.OwnerID)
		}
		if f.Kind != "" {
			q = q.Where("kind = ?", f.Kind)
		}
		if f.Name != "" {
			q = q.Where("name = ?", f.Name)
		}
		if f.ExcludeID != uuid.Nil {
			q = q.Where("id <> ?", f.ExcludeID)
		}
		switch f.Parent {
		case persistence.RootOnly:
			q = q.Where("parent_id IS NULL")
		case persistence.ChildOf:
			if f.ParentID == uuid.Nil {
				q = q.Where("parent_id IS NULL")
			} else {
				q = q.Where("parent_id = ?", f.ParentID)
			}
		}
		return q
	}
}
