package persistence

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/goliatone/go-finance-tracker/model"
)

// Fold groups transactions and sums each group with exact decimal
// arithmetic. Groups are ordered by category id, currency code or period,
// ascending. Stores whose engine cannot sum decimals exactly aggregate
// through Fold.
func Fold(rows []model.Transaction, groupBy GroupBy) ([]GroupSummary, error) {
	if !groupBy.Valid() {
		return nil, fmt.Errorf("unsupported group by %q", groupBy)
	}

	type groupKey struct {
		category uuid.UUID
		currency string
		period   time.Time
	}

	index := make(map[groupKey]int)
	var groups []GroupSummary
	for _, t := range rows {
		var k groupKey
		switch groupBy {
		case GroupByCategory:
			k.category = t.CategoryID
		case GroupByCurrency:
			k.currency = t.CurrencyCode
		case GroupByMonth:
			d := t.Date.UTC()
			k.period = time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
		case GroupByYear:
			k.period = time.Date(t.Date.UTC().Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
		}

		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, GroupSummary{
				CategoryID:   k.category,
				CurrencyCode: k.currency,
				Period:       k.period,
				Summary:      Summary{Sum: decimal.Zero},
			})
		}
		groups[i].Sum = groups[i].Sum.Add(t.Amount)
		groups[i].Count++
	}

	sort.Slice(groups, func(i, j int) bool {
		a, b := groups[i], groups[j]
		switch groupBy {
		case GroupByCategory:
			return a.CategoryID.String() < b.CategoryID.String()
		case GroupByCurrency:
			return a.CurrencyCode < b.CurrencyCode
		default:
			return a.Period.Before(b.Period)
		}
	})

	if groups == nil {
		groups = []GroupSummary{}
	}
	return groups, nil
}
