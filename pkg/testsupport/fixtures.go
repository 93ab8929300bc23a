package testsupport

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/goliatone/go-finance-tracker/model"
)

// LoadFixture loads test data from a fixture file.
// The path is relative to the test package directory.
func LoadFixture(t *testing.T, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to load fixture from %s: %v", path, err)
	}

	return data
}

// LoadFixtureJSON loads JSON test data from a fixture file and unmarshals it.
// The path is relative to the test package directory.
func LoadFixtureJSON(t *testing.T, path string, dest any) {
	t.Helper()

	data := LoadFixture(t, path)
	if err := json.Unmarshal(data, dest); err != nil {
		t.Fatalf("failed to unmarshal JSON fixture from %s: %v", path, err)
	}
}

// FixturePath constructs a path to a fixture file relative to the testdata directory.
func FixturePath(filename string) string {
	return filepath.Join("testdata", filename)
}

// Seed is a fixture describing one user's ledger. Categories refer to
// their parent by name; transactions refer to their category by name.
type Seed struct {
	Owner      uuid.UUID `json:"owner"`
	Categories []struct {
		Name   string     `json:"name"`
		Kind   model.Kind `json:"type"`
		Parent string     `json:"parent"`
	} `json:"categories"`
	Transactions []struct {
		Category     string     `json:"category"`
		Kind         model.Kind `json:"type"`
		Amount       string     `json:"amount"`
		CurrencyCode string     `json:"currencyCode"`
		Date         time.Time  `json:"date"`
		Description  string     `json:"description"`
	} `json:"transactions"`
}

// LoadSeed reads a Seed fixture and inserts it into db. It returns the ids
// of the created categories by name. Parents must precede their children.
func LoadSeed(t *testing.T, db *MemoryDB, path string) (Seed, map[string]uuid.UUID) {
	t.Helper()

	var seed Seed
	LoadFixtureJSON(t, path, &seed)

	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ids := make(map[string]uuid.UUID, len(seed.Categories))
	for _, c := range seed.Categories {
		row := model.Category{
			ID:        uuid.New(),
			OwnerID:   seed.Owner,
			Name:      c.Name,
			Kind:      c.Kind,
			CreatedAt: created,
			UpdatedAt: created,
		}
		if c.Parent != "" {
			parent, ok := ids[c.Parent]
			if !ok {
				t.Fatalf("seed %s: parent %q of %q not defined before it", path, c.Parent, c.Name)
			}
			row.ParentID = &parent
		}
		db.Categories.Insert(row)
		ids[c.Name] = row.ID
	}

	for _, tx := range seed.Transactions {
		category, ok := ids[tx.Category]
		if !ok {
			t.Fatalf("seed %s: unknown category %q", path, tx.Category)
		}
		amount, err := decimal.NewFromString(tx.Amount)
		if err != nil {
			t.Fatalf("seed %s: bad amount %q: %v", path, tx.Amount, err)
		}
		db.Transactions.Insert(model.Transaction{
			ID:           uuid.New(),
			OwnerID:      seed.Owner,
			CategoryID:   category,
			Kind:         tx.Kind,
			Amount:       amount,
			CurrencyCode: tx.CurrencyCode,
			Date:         tx.Date,
			Description:  tx.Description,
			CreatedAt:    created,
			UpdatedAt:    created,
		})
	}

	return seed, ids
}
