package cache

import (
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-finance-tracker/model"
)

var (
	ownerID    = uuid.MustParse("6f1c2d8e-2b7a-4c1e-9a55-0f6f0d2b1a01")
	categoryID = uuid.MustParse("0b7b3c1a-91d4-4f0e-8c44-5f3a2e1d9c02")
)

func TestKeys(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"all categories", CategoryListKey(ownerID, ""), "categories:all:" + ownerID.String()},
		{"income categories", CategoryListKey(ownerID, model.KindIncome), "categories:all:" + ownerID.String() + ":INCOME"},
		{"expense categories", CategoryListKey(ownerID, model.KindExpense), "categories:all:" + ownerID.String() + ":EXPENSE"},
		{"category by id", CategoryKey(categoryID), "categories:id:" + categoryID.String()},
		{"user profile", UserProfileKey(ownerID), "users:profile:" + ownerID.String()},
		{"user email", UserEmailKey("ana@example.com"), "users:email:ana@example.com"},
		{"stats pattern", StatisticsPattern(ownerID), "transactions:stats:" + ownerID.String() + ":*"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestCategoryListKeys(t *testing.T) {
	keys := CategoryListKeys(ownerID)
	want := []string{
		CategoryListKey(ownerID, ""),
		CategoryListKey(ownerID, model.KindIncome),
		CategoryListKey(ownerID, model.KindExpense),
	}

	if len(keys) != len(want) {
		t.Fatalf("expected %d keys, got %d", len(want), len(keys))
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("key %d: got %q, want %q", i, keys[i], want[i])
		}
	}
}

func TestStatisticsKey_Shape(t *testing.T) {
	key := StatisticsKey(ownerID, StatisticsParams{GroupBy: "category"})

	re := regexp.MustCompile(`^transactions:stats:` + ownerID.String() + `:[0-9a-f]{16}$`)
	if !re.MatchString(key) {
		t.Errorf("unexpected statistics key %q", key)
	}

	if !CompilePattern(StatisticsPattern(ownerID)).Match(key) {
		t.Error("statistics pattern does not match statistics key")
	}

	other := uuid.New()
	if CompilePattern(StatisticsPattern(other)).Match(key) {
		t.Error("another owner's pattern matched the key")
	}
}

func TestStatisticsDigest_Stable(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	fromOtherZone := from.In(time.FixedZone("UTC+2", 2*3600))

	a := StatisticsDigest(StatisticsParams{Kind: "EXPENSE", DateFrom: &from, GroupBy: "month"})
	b := StatisticsDigest(StatisticsParams{GroupBy: "month", DateFrom: &fromOtherZone, Kind: "EXPENSE"})

	if a != b {
		t.Errorf("equal queries produced different digests: %s vs %s", a, b)
	}
}

func TestStatisticsDigest_DistinguishesFields(t *testing.T) {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	nextMs := day.Add(time.Millisecond)

	params := []StatisticsParams{
		{},
		{Kind: "INCOME"},
		{Kind: "EXPENSE"},
		{CurrencyCode: "USD"},
		{GroupBy: "category"},
		{GroupBy: "currency"},
		{DateFrom: &day},
		{DateTo: &day},
		{DateFrom: &nextMs},
	}

	seen := make(map[string]int)
	for i, p := range params {
		d := StatisticsDigest(p)
		if j, ok := seen[d]; ok {
			t.Errorf("params %d and %d share digest %s", j, i, d)
		}
		seen[d] = i
	}
}

func TestStatisticsDigest_SubMillisecondIgnored(t *testing.T) {
	a := time.Date(2024, 3, 1, 10, 0, 0, 1000, time.UTC)
	b := time.Date(2024, 3, 1, 10, 0, 0, 2000, time.UTC)

	if StatisticsDigest(StatisticsParams{DateTo: &a}) != StatisticsDigest(StatisticsParams{DateTo: &b}) {
		t.Error("expected digest to normalize to millisecond precision")
	}
}
