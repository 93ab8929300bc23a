package category

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-finance-tracker/apperrors"
	"github.com/goliatone/go-finance-tracker/cache"
	"github.com/goliatone/go-finance-tracker/internal/cacheinfra"
	"github.com/goliatone/go-finance-tracker/model"
	"github.com/goliatone/go-finance-tracker/pkg/testsupport"
	"github.com/goliatone/go-finance-tracker/repositorycache"
)

type fixture struct {
	db      *testsupport.MemoryDB
	store   cache.Store
	clock   *clockwork.FakeClock
	service *Service
	owner   uuid.UUID
}

func newFixture(t *testing.T, store cache.Store) *fixture {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	if store == nil {
		store = cacheinfra.NewMemoryStore(clock)
	}
	db := testsupport.NewMemoryDB(clock.Now)
	mgr := testsupport.NewCacheManager(store, clock)
	return &fixture{
		db:      db,
		store:   store,
		clock:   clock,
		service: NewService(db.Categories, db.Transactions, mgr, WithClock(clock), WithLogger(testsupport.DiscardLogger())),
		owner:   uuid.New(),
	}
}

func (f *fixture) create(t *testing.T, name string, kind model.Kind, parent *uuid.UUID) View {
	t.Helper()
	v, err := f.service.Create(context.Background(), f.owner, CreateInput{Name: name, Kind: kind, ParentID: parent})
	if err != nil {
		t.Fatalf("create %s: %v", name, err)
	}
	return v
}

func (f *fixture) cached(t *testing.T, key string) bool {
	t.Helper()
	_, ok, err := f.store.Get(context.Background(), cache.DefaultConfig().KeyPrefix+key)
	if err != nil {
		t.Fatalf("store get %s: %v", key, err)
	}
	return ok
}

func TestService_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	food := f.create(t, "  Food  ", model.KindExpense, nil)
	if food.Name != "Food" {
		t.Errorf("expected trimmed name, got %q", food.Name)
	}
	if !food.CreatedAt.Equal(f.clock.Now()) {
		t.Errorf("expected creation time from clock, got %v", food.CreatedAt)
	}
	if food.Subcategories == nil || len(food.Subcategories) != 0 {
		t.Errorf("expected empty subcategories, got %#v", food.Subcategories)
	}

	veg := f.create(t, "Vegetables", model.KindExpense, &food.ID)
	if veg.Parent == nil || veg.Parent.ID != food.ID {
		t.Fatalf("expected parent summary, got %+v", veg.Parent)
	}

	got, err := f.service.Get(ctx, f.owner, food.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Subcategories) != 1 || got.Subcategories[0].ID != veg.ID {
		t.Errorf("expected Vegetables as subcategory, got %+v", got.Subcategories)
	}
	if got.Parent != nil {
		t.Errorf("root must not have a parent, got %+v", got.Parent)
	}
}

func TestService_CreateRejectsInvalidInput(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	long := make([]rune, maxNameLength+1)
	for i := range long {
		long[i] = 'x'
	}

	tests := []struct {
		name  string
		input CreateInput
		field string
	}{
		{name: "blank name", input: CreateInput{Name: "   ", Kind: model.KindExpense}, field: "name"},
		{name: "long name", input: CreateInput{Name: string(long), Kind: model.KindExpense}, field: "name"},
		{name: "missing kind", input: CreateInput{Name: "Food"}, field: "type"},
		{name: "unknown kind", input: CreateInput{Name: "Food", Kind: "TRANSFER"}, field: "type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.Create(ctx, f.owner, tt.input)
			assertCode(t, err, apperrors.CodeValidation)

			var appErr *apperrors.Error
			if !errors.As(err, &appErr) {
				t.Fatalf("expected *apperrors.Error, got %T", err)
			}
			if _, ok := appErr.Details[tt.field]; !ok {
				t.Errorf("expected detail for %q, got %v", tt.field, appErr.Details)
			}
		})
	}
}

func TestService_List(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	food := f.create(t, "Food", model.KindExpense, nil)
	f.create(t, "Vegetables", model.KindExpense, &food.ID)
	f.create(t, "Fruit", model.KindExpense, &food.ID)
	f.create(t, "Salary", model.KindIncome, nil)

	all, err := f.service.List(ctx, f.owner, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 roots, got %d", len(all))
	}
	if all[0].Name != "Food" || len(all[0].Subcategories) != 2 {
		t.Errorf("unexpected first root %+v", all[0])
	}
	if all[0].Subcategories[0].Name != "Fruit" {
		t.Errorf("expected subcategories ordered by name, got %+v", all[0].Subcategories)
	}

	income, err := f.service.List(ctx, f.owner, model.KindIncome)
	if err != nil {
		t.Fatalf("List income: %v", err)
	}
	if len(income) != 1 || income[0].Name != "Salary" {
		t.Errorf("unexpected income list %+v", income)
	}

	other, err := f.service.List(ctx, uuid.New(), "")
	if err != nil {
		t.Fatalf("List other owner: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("expected no categories for another owner, got %d", len(other))
	}

	_, err = f.service.List(ctx, f.owner, "TRANSFER")
	assertCode(t, err, apperrors.CodeValidation)
}

func TestService_ListServedFromCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.create(t, "Food", model.KindExpense, nil)

	if _, err := f.service.List(ctx, f.owner, ""); err != nil {
		t.Fatal(err)
	}
	before := f.db.Categories.Calls()

	if _, err := f.service.List(ctx, f.owner, ""); err != nil {
		t.Fatal(err)
	}
	if after := f.db.Categories.Calls(); after != before {
		t.Errorf("expected cached list, store saw %d extra calls", after-before)
	}

	if _, err := f.service.List(ctx, f.owner, "", repositorycache.Bypass()); err != nil {
		t.Fatal(err)
	}
	if f.db.Categories.Calls() == before {
		t.Error("bypass must read through to the store")
	}
}

func TestService_WritesInvalidateEveryListVariant(t *testing.T) {
	ctx := context.Background()

	writes := []struct {
		name  string
		write func(t *testing.T, f *fixture, food View)
	}{
		{
			name: "create",
			write: func(t *testing.T, f *fixture, food View) {
				f.create(t, "Salary", model.KindIncome, nil)
			},
		},
		{
			name: "update",
			write: func(t *testing.T, f *fixture, food View) {
				if _, err := f.service.Update(ctx, f.owner, food.ID, UpdateInput{Name: ptr("Groceries")}); err != nil {
					t.Fatal(err)
				}
			},
		},
		{
			name: "delete",
			write: func(t *testing.T, f *fixture, food View) {
				if err := f.service.Delete(ctx, f.owner, food.ID); err != nil {
					t.Fatal(err)
				}
			},
		},
	}

	for _, tt := range writes {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			food := f.create(t, "Food", model.KindExpense, nil)

			for _, kind := range []model.Kind{"", model.KindIncome, model.KindExpense} {
				if _, err := f.service.List(ctx, f.owner, kind); err != nil {
					t.Fatal(err)
				}
			}
			if _, err := f.service.Get(ctx, f.owner, food.ID); err != nil {
				t.Fatal(err)
			}
			for _, key := range cache.CategoryListKeys(f.owner) {
				if !f.cached(t, key) {
					t.Fatalf("expected %s to be warm", key)
				}
			}

			tt.write(t, f, food)

			for _, key := range cache.CategoryListKeys(f.owner) {
				if f.cached(t, key) {
					t.Errorf("%s survived the write", key)
				}
			}
			if f.cached(t, cache.CategoryKey(food.ID)) {
				t.Errorf("category view survived the write")
			}
		})
	}
}

func TestService_ParentViewRefreshedAfterChildMoves(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	food := f.create(t, "Food", model.KindExpense, nil)
	veg := f.create(t, "Vegetables", model.KindExpense, &food.ID)

	got, err := f.service.Get(ctx, f.owner, food.ID)
	if err != nil || len(got.Subcategories) != 1 {
		t.Fatalf("expected one subcategory, got %+v (%v)", got.Subcategories, err)
	}

	updated, err := f.service.Update(ctx, f.owner, veg.ID, UpdateInput{Parent: ClearParent()})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.ParentID != nil || updated.Parent != nil {
		t.Errorf("expected Vegetables to become a root, got %+v", updated)
	}

	got, err = f.service.Get(ctx, f.owner, food.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Subcategories) != 0 {
		t.Errorf("stale parent view: %+v", got.Subcategories)
	}
}

func TestService_ChildViewRefreshedAfterParentRename(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	food := f.create(t, "Food", model.KindExpense, nil)
	veg := f.create(t, "Vegetables", model.KindExpense, &food.ID)

	got, err := f.service.Get(ctx, f.owner, veg.ID)
	if err != nil || got.Parent == nil || got.Parent.Name != "Food" {
		t.Fatalf("expected parent Food, got %+v (%v)", got.Parent, err)
	}

	f.clock.Advance(time.Minute)
	if _, err := f.service.Update(ctx, f.owner, food.ID, UpdateInput{Name: ptr("Meals")}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if f.cached(t, cache.CategoryKey(veg.ID)) {
		t.Error("child view survived the parent update")
	}

	got, err = f.service.Get(ctx, f.owner, veg.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Parent == nil || got.Parent.Name != "Meals" || !got.Parent.UpdatedAt.Equal(f.clock.Now()) {
		t.Errorf("stale parent summary: %+v", got.Parent)
	}
}

func TestService_CachedViewRendersLikeFreshOne(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("zone unavailable: %v", err)
	}
	prev := time.Local
	time.Local = loc
	t.Cleanup(func() { time.Local = prev })

	ctx := context.Background()
	f := newFixture(t, nil)
	food := f.create(t, "Food", model.KindExpense, nil)
	veg := f.create(t, "Vegetables", model.KindExpense, &food.ID)

	miss, err := f.service.Get(ctx, f.owner, veg.ID)
	if err != nil {
		t.Fatal(err)
	}
	hit, err := f.service.Get(ctx, f.owner, veg.ID)
	if err != nil {
		t.Fatal(err)
	}

	missJSON, _ := json.Marshal(miss)
	hitJSON, _ := json.Marshal(hit)
	if string(missJSON) != string(hitJSON) {
		t.Errorf("cache hit differs from miss:\nmiss %s\nhit  %s", missJSON, hitJSON)
	}
	if hit.CreatedAt.Location() != time.UTC {
		t.Errorf("expected UTC timestamps, got %v", hit.CreatedAt.Location())
	}
}

func TestService_UpdateCircularReference(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	food := f.create(t, "Food", model.KindExpense, nil)
	veg := f.create(t, "Vegetables", model.KindExpense, &food.ID)

	_, err := f.service.Update(ctx, f.owner, food.ID, UpdateInput{Parent: SetParent(veg.ID)})
	assertCode(t, err, apperrors.CodeCircularReference)
	if apperrors.KindOf(err) != apperrors.KindBadRequest {
		t.Errorf("expected bad request, got %s", apperrors.KindOf(err))
	}

	stored, err := f.db.Categories.FindByID(ctx, food.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.HasParent() {
		t.Errorf("rejected update must not be applied, parent is %v", stored.ParentID)
	}
}

func TestService_UpdateNoFields(t *testing.T) {
	f := newFixture(t, nil)
	food := f.create(t, "Food", model.KindExpense, nil)

	_, err := f.service.Update(context.Background(), f.owner, food.ID, UpdateInput{})
	assertCode(t, err, apperrors.CodeNoFieldsToUpdate)
}

func TestService_UpdateStampsTime(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	food := f.create(t, "Food", model.KindExpense, nil)

	f.clock.Advance(time.Hour)
	got, err := f.service.Update(ctx, f.owner, food.ID, UpdateInput{Name: ptr(" Groceries ")})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Name != "Groceries" {
		t.Errorf("expected trimmed name, got %q", got.Name)
	}
	if !got.UpdatedAt.Equal(f.clock.Now()) {
		t.Errorf("expected updatedAt %v, got %v", f.clock.Now(), got.UpdatedAt)
	}
}

func TestService_DeleteBlockedByTransactions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	rent := f.create(t, "Rent", model.KindExpense, nil)
	f.db.Transactions.Insert(model.Transaction{
		ID: uuid.New(), OwnerID: f.owner, CategoryID: rent.ID, Kind: model.KindExpense,
		CurrencyCode: "USD", Date: f.clock.Now(),
	})

	err := f.service.Delete(ctx, f.owner, rent.ID)
	assertCode(t, err, apperrors.CodeCategoryHasTransactions)
	if apperrors.KindOf(err) != apperrors.KindConflict {
		t.Errorf("expected conflict, got %s", apperrors.KindOf(err))
	}

	if _, err := f.service.Get(ctx, f.owner, rent.ID); err != nil {
		t.Errorf("category must survive a refused delete: %v", err)
	}
}

func TestService_DeleteThenRecreate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	food := f.create(t, "Food", model.KindExpense, nil)
	veg := f.create(t, "Vegetables", model.KindExpense, &food.ID)

	assertCode(t, f.service.Delete(ctx, f.owner, food.ID), apperrors.CodeCategoryHasSubcategories)

	if err := f.service.Delete(ctx, f.owner, veg.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	_, err := f.service.Get(ctx, f.owner, veg.ID)
	assertCode(t, err, apperrors.CodeCategoryNotFound)

	assertCode(t, f.service.Delete(ctx, f.owner, veg.ID), apperrors.CodeCategoryNotFound)

	again := f.create(t, "Vegetables", model.KindExpense, &food.ID)
	if again.ID == veg.ID {
		t.Error("recreated category must get a new id")
	}
}

func TestService_GetChecksOwnerOnCacheHit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	food := f.create(t, "Food", model.KindExpense, nil)

	if _, err := f.service.Get(ctx, f.owner, food.ID); err != nil {
		t.Fatal(err)
	}
	if !f.cached(t, cache.CategoryKey(food.ID)) {
		t.Fatal("expected view to be cached")
	}

	_, err := f.service.Get(ctx, uuid.New(), food.ID)
	assertCode(t, err, apperrors.CodeCategoryNotFound)
}

func TestService_ConcurrentCreatesYieldOneWinner(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	const racers = 16
	var wins, conflicts atomic.Int32
	var g errgroup.Group
	for i := 0; i < racers; i++ {
		g.Go(func() error {
			_, err := f.service.Create(ctx, f.owner, CreateInput{Name: "Food", Kind: model.KindExpense})
			switch {
			case err == nil:
				wins.Add(1)
			case apperrors.IsCode(err, apperrors.CodeCategoryAlreadyExists):
				conflicts.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if wins.Load() != 1 || conflicts.Load() != racers-1 {
		t.Errorf("expected 1 win and %d conflicts, got %d and %d", racers-1, wins.Load(), conflicts.Load())
	}
}

func TestService_BehavesTheSameWithoutCache(t *testing.T) {
	ctx := context.Background()
	failing := &testsupport.FailingStore{}

	for name, store := range map[string]cache.Store{"healthy": nil, "failing": failing} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, store)

			food := f.create(t, "Food", model.KindExpense, nil)
			veg := f.create(t, "Vegetables", model.KindExpense, &food.ID)

			list, err := f.service.List(ctx, f.owner, model.KindExpense)
			if err != nil || len(list) != 1 || len(list[0].Subcategories) != 1 {
				t.Fatalf("unexpected list %+v (%v)", list, err)
			}

			_, err = f.service.Update(ctx, f.owner, food.ID, UpdateInput{Parent: SetParent(veg.ID)})
			assertCode(t, err, apperrors.CodeCircularReference)

			if _, err := f.service.Update(ctx, f.owner, veg.ID, UpdateInput{Name: ptr("Greens")}); err != nil {
				t.Fatalf("Update: %v", err)
			}

			got, err := f.service.Get(ctx, f.owner, food.ID)
			if err != nil || len(got.Subcategories) != 1 || got.Subcategories[0].Name != "Greens" {
				t.Fatalf("unexpected view %+v (%v)", got, err)
			}

			if err := f.service.Delete(ctx, f.owner, veg.ID); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			list, err = f.service.List(ctx, f.owner, "")
			if err != nil || len(list) != 1 || len(list[0].Subcategories) != 0 {
				t.Fatalf("unexpected list after delete %+v (%v)", list, err)
			}
		})
	}

	if failing.Calls() == 0 {
		t.Error("expected the failing store to be exercised")
	}
}
