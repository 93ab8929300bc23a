package bunstore

import (
	"context"
	"fmt"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-finance-tracker/model"
	"github.com/goliatone/go-finance-tracker/persistence"
)

// TransactionRepository implements persistence.TransactionStore.
//
// On PostgreSQL aggregates run as a single SUM over the NUMERIC column. SQLite
// keeps amounts as TEXT and its SUM works in floating point, so there the
// matching amounts are loaded and folded with decimal arithmetic.
type TransactionRepository struct {
	db    *bun.DB
	repo  repository.Repository[*model.Transaction]
	clock clockwork.Clock
}

var _ persistence.TransactionStore = (*TransactionRepository)(nil)

func NewTransactionRepository(db *bun.DB, clock clockwork.Clock) *TransactionRepository {
	return &TransactionRepository{
		db: db,
		repo: repository.NewRepository[*model.Transaction](db, repository.ModelHandlers[*model.Transaction]{
			NewRecord: func() *model.Transaction { return &model.Transaction{} },
			GetID: func(t *model.Transaction) uuid.UUID {
				if t == nil {
					return uuid.Nil
				}
				return t.ID
			},
			SetID:         func(t *model.Transaction, id uuid.UUID) { t.ID = id },
			GetIdentifier: func() string { return "id" },
		}),
		clock: clock,
	}
}

func (r *TransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Transaction, error) {
	return findByID[model.Transaction](ctx, r.db, id)
}

// FindMany returns a page of live transactions, newest first.
func (r *TransactionRepository) FindMany(ctx context.Context, filter persistence.TransactionFilter, page persistence.Page) ([]*model.Transaction, error) {
	rows, _, err := r.repo.List(ctx, transactionCriteria(filter), func(q *bun.SelectQuery) *bun.SelectQuery {
		q = q.Order("date DESC", "created_at DESC")
		if page.Offset > 0 {
			q = q.Offset(page.Offset)
		}
		if page.Limit > 0 {
			q = q.Limit(page.Limit)
		}
		return q
	})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", translate(err))
	}
	if rows == nil {
		rows = []*model.Transaction{}
	}
	return rows, nil
}

func (r *TransactionRepository) Count(ctx context.Context, filter persistence.TransactionFilter) (int, error) {
	n, err := r.repo.Count(ctx, transactionCriteria(filter))
	if err != nil {
		return 0, fmt.Errorf("count transactions: %w", translate(err))
	}
	return n, nil
}

func (r *TransactionRepository) Create(ctx context.Context, t *model.Transaction) (*model.Transaction, error) {
	row := *t
	row.Date = row.Date.UTC()
	row.CreatedAt = row.CreatedAt.UTC()
	row.UpdatedAt = row.UpdatedAt.UTC()
	if _, err := r.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return nil, translate(err)
	}
	return &row, nil
}

func (r *TransactionRepository) Update(ctx context.Context, id uuid.UUID, changes persistence.TransactionChanges) (*model.Transaction, error) {
	row, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if changes.CategoryID != nil {
		row.CategoryID = *changes.CategoryID
	}
	if changes.Kind != nil {
		row.Kind = *changes.Kind
	}
	if changes.Amount != nil {
		row.Amount = *changes.Amount
	}
	if changes.CurrencyCode != nil {
		row.CurrencyCode = *changes.CurrencyCode
	}
	if changes.Date != nil {
		row.Date = changes.Date.UTC()
	}
	if changes.Description != nil {
		row.Description = *changes.Description
	}
	row.UpdatedAt = r.clock.Now().UTC()

	err = updateColumns(ctx, r.db, row,
		"category_id", "kind", "amount", "currency_code", "date", "description", "updated_at")
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (r *TransactionRepository) SoftDelete(ctx context.Context, id uuid.UUID) (*model.Transaction, error) {
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

func (r *TransactionRepository) Aggregate(ctx context.Context, filter persistence.TransactionFilter) (persistence.Summary, error) {
	if Dialect(r.db) == DriverPostgres {
		var row aggregateRow
		if err := r.sumQuery(filter).Scan(ctx, &row); err != nil {
			return persistence.Summary{}, fmt.Errorf("aggregate transactions: %w", translate(err))
		}
		return persistence.Summary{Sum: row.Sum, Count: row.Count}, nil
	}

	rows, err := r.amounts(ctx, filter)
	if err != nil {
		return persistence.Summary{}, err
	}
	sum := persistence.Summary{Sum: decimal.Zero}
	for _, t := range rows {
		sum.Sum = sum.Sum.Add(t.Amount)
		sum.Count++
	}
	return sum, nil
}

func (r *TransactionRepository) AggregateBy(ctx context.Context, filter persistence.TransactionFilter, groupBy persistence.GroupBy) ([]persistence.GroupSummary, error) {
	if !groupBy.Valid() {
		return nil, fmt.Errorf("unsupported group by %q", groupBy)
	}

	if Dialect(r.db) == DriverPostgres {
		var rows []aggregateRow
		if err := r.groupedSumQuery(filter, groupBy).Scan(ctx, &rows); err != nil {
			return nil, fmt.Errorf("aggregate transactions by %s: %w", groupBy, translate(err))
		}
		groups := make([]persistence.GroupSummary, 0, len(rows))
		for _, row := range rows {
			groups = append(groups, row.group())
		}
		return groups, nil
	}

	rows, err := r.amounts(ctx, filter)
	if err != nil {
		return nil, err
	}
	return persistence.Fold(rows, groupBy)
}

type aggregateRow struct {
	CategoryID   uuid.UUID       `bun:"category_id"`
	CurrencyCode string          `bun:"currency_code"`
	Period       time.Time       `bun:"period"`
	Sum          decimal.Decimal `bun:"sum"`
	Count        int             `bun:"count"`
}

func (a aggregateRow) group() persistence.GroupSummary {
	g := persistence.GroupSummary{
		CategoryID:   a.CategoryID,
		CurrencyCode: a.CurrencyCode,
		Summary:      persistence.Summary{Sum: a.Sum, Count: a.Count},
	}
	if !a.Period.IsZero() {
		g.Period = time.Date(a.Period.Year(), a.Period.Month(), a.Period.Day(), 0, 0, 0, 0, time.UTC)
	}
	return g
}

func (r *TransactionRepository) sumQuery(filter persistence.TransactionFilter) *bun.SelectQuery {
	return r.db.NewSelect().
		Model((*model.Transaction)(nil)).
		ColumnExpr("COALESCE(SUM(amount), 0) AS sum").
		ColumnExpr("COUNT(*) AS count").
		Apply(transactionCriteria(filter))
}

// groupedSumQuery orders groups the way persistence.Fold does. Periods are
// truncated in UTC.
func (r *TransactionRepository) groupedSumQuery(filter persistence.TransactionFilter, groupBy persistence.GroupBy) *bun.SelectQuery {
	q := r.sumQuery(filter)
	switch groupBy {
	case persistence.GroupByCategory:
		return q.Column("category_id").Group("category_id").Order("category_id ASC")
	case persistence.GroupByCurrency:
		return q.Column("currency_code").Group("currency_code").Order("currency_code ASC")
	case persistence.GroupByMonth:
		q = q.ColumnExpr(`date_trunc('month', "date" AT TIME ZONE 'UTC') AS period`)
	case persistence.GroupByYear:
		q = q.ColumnExpr(`date_trunc('year', "date" AT TIME ZONE 'UTC') AS period`)
	}
	return q.GroupExpr("period").OrderExpr("period ASC")
}

// amounts loads only the columns an aggregate needs.
func (r *TransactionRepository) amounts(ctx context.Context, filter persistence.TransactionFilter) ([]model.Transaction, error) {
	var rows []model.Transaction
	err := r.db.NewSelect().
		Model(&rows).
		Column("category_id", "currency_code", "date", "amount").
		Apply(transactionCriteria(filter)).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("aggregate transactions: %w", translate(err))
	}
	return rows, nil
}

func transactionCriteria(f persistence.TransactionFilter) repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		if f.OwnerID != uuid.Nil {
			q = q.Where("owner_id = ?", f.OwnerID)
		}
		if f.CategoryID != uuid.Nil {
			q = q.Where("category_id = ?", f.CategoryID)
		}
		if f.Kind != "" {
			q = q.Where("kind = ?", f.Kind)
		}
		if f.CurrencyCode != "" {
			q = q.Where("currency_code = ?", f.CurrencyCode)
		}
		if f.DateFrom != nil {
			q = q.Where("date >= ?", f.DateFrom.UTC())
		}
		if f.DateTo != nil {
			q = q.Where("date <= ?", f.DateTo.UTC())
		}
		return q
	}
}
