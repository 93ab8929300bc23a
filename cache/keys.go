package cache

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"github.com/goliatone/go-finance-tracker/model"
)

// KeySeparator defines the delimiter used between cache key segments.
const KeySeparator = ":"

const (
	categoriesNS   = "categories"
	usersNS        = "users"
	transactionsNS = "transactions"
)

// digestTimeLayout is ISO-8601 in UTC with millisecond precision.
const digestTimeLayout = "2006-01-02T15:04:05.000Z"

func join(parts ...string) string {
	return strings.Join(parts, KeySeparator)
}

// CategoryListKey returns the key of a user's category list. An empty kind
// selects the unfiltered list.
func CategoryListKey(owner uuid.UUID, kind model.Kind) string {
	if kind == "" {
		return join(categoriesNS, "all", owner.String())
	}
	return join(categoriesNS, "all", owner.String(), string(kind))
}

// CategoryListKeys returns every list variant for owner: unfiltered, then
// one per kind.
func CategoryListKeys(owner uuid.UUID) []string {
	keys := make([]string, 0, len(model.Kinds)+1)
	keys = append(keys, CategoryListKey(owner, ""))
	for _, k := range model.Kinds {
		keys = append(keys, CategoryListKey(owner, k))
	}
	return keys
}

// CategoryKey returns the key of a single category view.
func CategoryKey(id uuid.UUID) string {
	return join(categoriesNS, "id", id.String())
}

// UserProfileKey returns the key of a user profile.
func UserProfileKey(owner uuid.UUID) string {
	return join(usersNS, "profile", owner.String())
}

// UserEmailKey returns the key of a user looked up by email.
func UserEmailKey(email string) string {
	return join(usersNS, "email", email)
}

// StatisticsParams is the normalized statistics query that feeds the digest.
// Empty strings and nil times are absent.
type StatisticsParams struct {
	Kind         string
	CurrencyCode string
	DateFrom     *time.Time
	DateTo       *time.Time
	GroupBy      string
}

// StatisticsKey returns the key of a statistics result.
func StatisticsKey(owner uuid.UUID, params StatisticsParams) string {
	return join(transactionsNS, "stats", owner.String(), StatisticsDigest(params))
}

// StatisticsPattern matches every statistics key of owner.
func StatisticsPattern(owner uuid.UUID) string {
	return EscapePattern(join(transactionsNS, "stats", owner.String())+KeySeparator) + "*"
}

// StatisticsDigest hashes the canonical JSON form of params. Every field is
// always present, absent ones as null, and keys are sorted, so equal queries
// produce equal digests regardless of how they were built.
func StatisticsDigest(params StatisticsParams) string {
	doc := map[string]any{
		"currencyCode": optionalString(params.CurrencyCode),
		"dateFrom":     optionalTime(params.DateFrom),
		"dateTo":       optionalTime(params.DateTo),
		"groupBy":      optionalString(params.GroupBy),
		"type":         optionalString(params.Kind),
	}

	// encoding/json writes map keys in sorted order.
	raw, err := json.Marshal(doc)
	if err != nil {
		// Only strings and nil reach Marshal.
		panic(err)
	}

	return fmt.Sprintf("%016x", xxhash.Sum64(raw))
}

func optionalString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func optionalTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(digestTimeLayout)
}
