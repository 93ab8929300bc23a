// Package persistence declares the storage contracts the services depend on.
//
// Implementations are the source of truth. Every read, count and aggregate
// excludes soft-deleted rows; SoftDelete only marks a row. Implementations
// return ErrNotFound when a row is missing or already deleted and
// ErrDuplicate when a unique constraint rejects a write.
package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/goliatone/go-finance-tracker/model"
)

var (
	ErrNotFound  = errors.New("persistence: record not found")
	ErrDuplicate = errors.New("persistence: duplicate record")
)

// ParentMatch selects categories by parent.
type ParentMatch int

const (
	// AnyParent does not filter on parent.
	AnyParent ParentMatch = iota
	// RootOnly matches categories without a parent.
	RootOnly
	// ChildOf matches categories whose parent is CategoryFilter.ParentID.
	ChildOf
)

// CategoryFilter narrows FindMany and Count over categories. Zero values do
// not filter.
type CategoryFilter struct {
	OwnerID   uuid.UUID
	Kind      model.Kind
	Name      string
	Parent    ParentMatch
	ParentID  uuid.UUID
	ExcludeID uuid.UUID
}

// CategoryChanges lists the columns an update writes. Nil fields are left
// untouched. ClearParent wins over ParentID.
type CategoryChanges struct {
	Name        *string
	Kind        *model.Kind
	ParentID    *uuid.UUID
	ClearParent bool
}

// Empty reports whether the update would write nothing.
func (c CategoryChanges) Empty() bool {
	return c.Name == nil && c.Kind == nil && c.ParentID == nil && !c.ClearParent
}

// CategoryStore persists categories.
type CategoryStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Category, error)
	FindMany(ctx context.Context, filter CategoryFilter) ([]*model.Category, error)
	Create(ctx context.Context, c *model.Category) (*model.Category, error)
	Update(ctx context.Context, id uuid.UUID, changes CategoryChanges) (*model.Category, error)
	SoftDelete(ctx context.Context, id uuid.UUID) (*model.Category, error)
	Count(ctx context.Context, filter CategoryFilter) (int, error)
}

// TransactionFilter narrows transaction reads and aggregates. Zero values do
// not filter. DateFrom and DateTo are inclusive.
type TransactionFilter struct {
	OwnerID      uuid.UUID
	CategoryID   uuid.UUID
	Kind         model.Kind
	CurrencyCode string
	DateFrom     *time.Time
	DateTo       *time.Time
}

// Page selects a window of an ordered result. A zero Limit means no limit.
type Page struct {
	Offset int
	Limit  int
}

// TransactionChanges lists the columns an update writes.
type TransactionChanges struct {
	CategoryID   *uuid.UUID
	Kind         *model.Kind
	Amount       *decimal.Decimal
	CurrencyCode *string
	Date         *time.Time
	Description  *string
}

// Empty reports whether the update would write nothing.
func (c TransactionChanges) Empty() bool {
	return c.CategoryID == nil && c.Kind == nil && c.Amount == nil &&
		c.CurrencyCode == nil && c.Date == nil && c.Description == nil
}

// GroupBy names the column an aggregate is grouped by.
type GroupBy string

const (
	GroupByCategory GroupBy = "category"
	GroupByCurrency GroupBy = "currency"
	GroupByMonth    GroupBy = "month"
	GroupByYear     GroupBy = "year"
)

// Valid reports whether g is a supported grouping.
func (g GroupBy) Valid() bool {
	switch g {
	case GroupByCategory, GroupByCurrency, GroupByMonth, GroupByYear:
		return true
	}
	return false
}

// Summary is the result of an ungrouped aggregate. Sum is zero when no rows
// match.
type Summary struct {
	Sum   decimal.Decimal
	Count int
}

// GroupSummary is one group of a grouped aggregate. Only the field matching
// the grouping is set; Period is the first instant of the month or year in
// UTC.
type GroupSummary struct {
	CategoryID   uuid.UUID
	CurrencyCode string
	Period       time.Time
	Summary
}

// TransactionStore persists transactions.
type TransactionStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Transaction, error)
	FindMany(ctx context.Context, filter TransactionFilter, page Page) ([]*model.Transaction, error)
	Create(ctx context.Context, t *model.Transaction) (*model.Transaction, error)
	Update(ctx context.Context, id uuid.UUID, changes TransactionChanges) (*model.Transaction, error)
	SoftDelete(ctx context.Context, id uuid.UUID) (*model.Transaction, error)
	Count(ctx context.Context, filter TransactionFilter) (int, error)
	Aggregate(ctx context.Context, filter TransactionFilter) (Summary, error)
	AggregateBy(ctx context.Context, filter TransactionFilter, groupBy GroupBy) ([]GroupSummary, error)
}

// UserChanges lists the columns a user update writes.
type UserChanges struct {
	Role             *model.Role
	CountryCode      *string
	BaseCurrencyCode *string
}

// UserStore persists users.
type UserStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	Create(ctx context.Context, u *model.User) (*model.User, error)
	Update(ctx context.Context, id uuid.UUID, changes UserChanges) (*model.User, error)
}
