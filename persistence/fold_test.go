package persistence

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/goliatone/go-finance-tracker/model"
)

func tx(category uuid.UUID, currency, amount string, date time.Time) model.Transaction {
	return model.Transaction{
		ID:           uuid.New(),
		CategoryID:   category,
		CurrencyCode: currency,
		Amount:       decimal.RequireFromString(amount),
		Date:         date,
	}
}

func TestFold(t *testing.T) {
	food := uuid.MustParse("00000000-0000-4000-8000-000000000001")
	rent := uuid.MustParse("00000000-0000-4000-8000-000000000002")

	jan := time.Date(2024, 1, 31, 23, 30, 0, 0, time.UTC)
	// 2024-02-01 01:00 in UTC+3 is still January in UTC.
	lateJan := time.Date(2024, 2, 1, 1, 0, 0, 0, time.FixedZone("UTC+3", 3*3600))
	feb := time.Date(2024, 2, 10, 12, 0, 0, 0, time.UTC)
	nextYear := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	rows := []model.Transaction{
		tx(rent, "USD", "900.00", feb),
		tx(food, "USD", "30.00", jan),
		tx(food, "EUR", "70.50", lateJan),
		tx(food, "USD", "0.10", nextYear),
	}

	tests := []struct {
		name    string
		groupBy GroupBy
		check   func(t *testing.T, groups []GroupSummary)
	}{
		{
			name:    "category",
			groupBy: GroupByCategory,
			check: func(t *testing.T, groups []GroupSummary) {
				if len(groups) != 2 {
					t.Fatalf("expected 2 groups, got %d", len(groups))
				}
				if groups[0].CategoryID != food || groups[0].Sum.String() != "100.6" || groups[0].Count != 3 {
					t.Errorf("unexpected food group: %+v", groups[0])
				}
				if groups[1].CategoryID != rent || groups[1].Count != 1 {
					t.Errorf("unexpected rent group: %+v", groups[1])
				}
			},
		},
		{
			name:    "currency",
			groupBy: GroupByCurrency,
			check: func(t *testing.T, groups []GroupSummary) {
				if len(groups) != 2 || groups[0].CurrencyCode != "EUR" || groups[1].CurrencyCode != "USD" {
					t.Fatalf("unexpected groups: %+v", groups)
				}
				if groups[1].Count != 3 {
					t.Errorf("expected 3 USD rows, got %d", groups[1].Count)
				}
			},
		},
		{
			name:    "month in UTC",
			groupBy: GroupByMonth,
			check: func(t *testing.T, groups []GroupSummary) {
				if len(groups) != 3 {
					t.Fatalf("expected 3 months, got %d: %+v", len(groups), groups)
				}
				if groups[0].Period.Format("2006-01") != "2024-01" || groups[0].Count != 2 {
					t.Errorf("unexpected first month: %+v", groups[0])
				}
				if groups[2].Period.Format("2006-01") != "2025-03" {
					t.Errorf("unexpected last month: %+v", groups[2])
				}
			},
		},
		{
			name:    "year",
			groupBy: GroupByYear,
			check: func(t *testing.T, groups []GroupSummary) {
				if len(groups) != 2 || groups[0].Count != 3 || groups[1].Count != 1 {
					t.Fatalf("unexpected groups: %+v", groups)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			groups, err := Fold(rows, tt.groupBy)
			if err != nil {
				t.Fatalf("Fold: %v", err)
			}
			tt.check(t, groups)

			total := decimal.Zero
			count := 0
			for _, g := range groups {
				total = total.Add(g.Sum)
				count += g.Count
			}
			if !total.Equal(decimal.RequireFromString("1000.60")) || count != 4 {
				t.Errorf("groups do not add up: %s / %d", total, count)
			}
		})
	}
}

func TestFold_EmptyAndInvalid(t *testing.T) {
	groups, err := Fold(nil, GroupByMonth)
	if err != nil {
		t.Fatalf("Fold: %v", err)
	}
	if groups == nil || len(groups) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", groups)
	}

	if _, err := Fold(nil, GroupBy("week")); err == nil {
		t.Error("expected error for unknown grouping")
	}
}
