package transaction

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"

	"github.com/goliatone/go-finance-tracker/apperrors"
	"github.com/goliatone/go-finance-tracker/cache"
	"github.com/goliatone/go-finance-tracker/model"
	"github.com/goliatone/go-finance-tracker/persistence"
	"github.com/goliatone/go-finance-tracker/repositorycache"
)

// Query selects the transactions a statistics request summarizes. Zero
// fields do not filter; an empty GroupBy asks for a single total.
type Query struct {
	Kind         model.Kind          `json:"type"`
	CurrencyCode string              `json:"currencyCode"`
	DateFrom     *time.Time          `json:"dateFrom"`
	DateTo       *time.Time          `json:"dateTo"`
	GroupBy      persistence.GroupBy `json:"groupBy"`
}

// Validate checks the fields on their own. The date range is checked by
// the engine against its clock.
func (q Query) Validate() error {
	return validation.ValidateStruct(&q,
		validation.Field(&q.Kind, validation.In(model.KindIncome, model.KindExpense)),
		validation.Field(&q.CurrencyCode, is.CurrencyCode),
		validation.Field(&q.GroupBy, validation.In(
			persistence.GroupByCategory, persistence.GroupByCurrency,
			persistence.GroupByMonth, persistence.GroupByYear,
		)),
	)
}

func (q Query) filter(owner uuid.UUID) persistence.TransactionFilter {
	return persistence.TransactionFilter{
		OwnerID:      owner,
		Kind:         q.Kind,
		CurrencyCode: q.CurrencyCode,
		DateFrom:     q.DateFrom,
		DateTo:       q.DateTo,
	}
}

func (q Query) params() cache.StatisticsParams {
	return cache.StatisticsParams{
		Kind:         string(q.Kind),
		CurrencyCode: q.CurrencyCode,
		DateFrom:     q.DateFrom,
		DateTo:       q.DateTo,
		GroupBy:      string(q.GroupBy),
	}
}

// Statistics is the result envelope of a statistics request. Amounts are
// decimal strings.
type Statistics struct {
	TotalAmount      string      `json:"totalAmount" msgpack:"totalAmount"`
	TransactionCount int         `json:"transactionCount" msgpack:"transactionCount"`
	GroupedData      []GroupData `json:"groupedData" msgpack:"groupedData"`
	DateRange        DateRange   `json:"dateRange" msgpack:"dateRange"`
}

// GroupData is one bucket of a grouped result.
type GroupData struct {
	Key              string `json:"key" msgpack:"key"`
	TotalAmount      string `json:"totalAmount" msgpack:"totalAmount"`
	TransactionCount int    `json:"transactionCount" msgpack:"transactionCount"`
}

// DateRange echoes the bounds of the query.
type DateRange struct {
	From *time.Time `json:"from" msgpack:"from"`
	To   *time.Time `json:"to" msgpack:"to"`
}

// Engine computes transaction statistics and caches them per owner and
// query.
type Engine struct {
	transactions persistence.TransactionStore
	cache        *repositorycache.Manager
	clock        clockwork.Clock
	logger       *slog.Logger
}

// NewEngine builds an Engine. A nil clock uses the wall clock and a nil
// logger uses slog.Default.
func NewEngine(transactions persistence.TransactionStore, mgr *repositorycache.Manager, clock clockwork.Clock, logger *slog.Logger) *Engine {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		transactions: transactions,
		cache:        mgr,
		clock:        clock,
		logger:       logger.With("component", "statistics_engine"),
	}
}

// Compute returns the statistics of owner's live transactions matching q.
func (e *Engine) Compute(ctx context.Context, owner uuid.UUID, q Query, opts ...repositorycache.ReadOption) (Statistics, error) {
	q = normalize(q)
	if err := apperrors.FromValidation(q.Validate()); err != nil {
		return Statistics{}, err
	}
	if err := checkDateRange(e.clock.Now(), q.DateFrom, q.DateTo); err != nil {
		return Statistics{}, err
	}

	key := cache.StatisticsKey(owner, q.params())
	return repositorycache.GetOrFetch(ctx, e.cache, key, e.cache.TTL().Statistics,
		func(ctx context.Context) (Statistics, error) {
			return e.compute(ctx, owner, q)
		}, opts...)
}

func (e *Engine) compute(ctx context.Context, owner uuid.UUID, q Query) (Statistics, error) {
	result := Statistics{
		GroupedData: []GroupData{},
		DateRange:   DateRange{From: q.DateFrom, To: q.DateTo},
	}

	if q.GroupBy == "" {
		summary, err := e.transactions.Aggregate(ctx, q.filter(owner))
		if err != nil {
			return Statistics{}, fmt.Errorf("aggregate transactions: %w", err)
		}
		result.TotalAmount = model.FormatAmount(summary.Sum)
		result.TransactionCount = summary.Count
		return result, nil
	}

	groups, err := e.transactions.AggregateBy(ctx, q.filter(owner), q.GroupBy)
	if err != nil {
		return Statistics{}, fmt.Errorf("aggregate transactions by %s: %w", q.GroupBy, err)
	}

	total := decimal.Zero
	for _, g := range groups {
		total = total.Add(g.Sum)
		result.TransactionCount += g.Count
		result.GroupedData = append(result.GroupedData, GroupData{
			Key:              groupKey(g, q.GroupBy),
			TotalAmount:      model.FormatAmount(g.Sum),
			TransactionCount: g.Count,
		})
	}
	result.TotalAmount = model.FormatAmount(total)

	e.logger.Debug("statistics computed",
		"owner_id", owner, "group_by", q.GroupBy, "groups", len(groups), "count", result.TransactionCount)
	return result, nil
}

func groupKey(g persistence.GroupSummary, groupBy persistence.GroupBy) string {
	switch groupBy {
	case persistence.GroupByCategory:
		return g.CategoryID.String()
	case persistence.GroupByCurrency:
		return g.CurrencyCode
	case persistence.GroupByMonth:
		return g.Period.UTC().Format("2006-01")
	case persistence.GroupByYear:
		return g.Period.UTC().Format("2006")
	}
	return "unknown"
}

func normalize(q Query) Query {
	if q.DateFrom != nil {
		from := q.DateFrom.UTC()
		q.DateFrom = &from
	}
	if q.DateTo != nil {
		to := q.DateTo.UTC()
		q.DateTo = &to
	}
	return q
}

// checkDateRange rejects inverted ranges and bounds after now.
func checkDateRange(now time.Time, from, to *time.Time) error {
	if from != nil && to != nil && from.After(*to) {
		return apperrors.ErrInvalidDateRange
	}
	if from != nil && from.After(now) {
		return apperrors.ErrInvalidDateRange
	}
	if to != nil && to.After(now) {
		return apperrors.ErrInvalidDateRange
	}
	return nil
}
