package di

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-finance-tracker/apperrors"
	"github.com/goliatone/go-finance-tracker/cache"
	"github.com/goliatone/go-finance-tracker/category"
	"github.com/goliatone/go-finance-tracker/model"
	"github.com/goliatone/go-finance-tracker/persistence"
	"github.com/goliatone/go-finance-tracker/transaction"
	"github.com/goliatone/go-finance-tracker/user"
)

func cachedKey(t *testing.T, c *Container, key string) bool {
	t.Helper()
	_, ok, err := c.CacheStore().Get(context.Background(), c.Config().Cache.KeyPrefix+key)
	if err != nil {
		t.Fatalf("cache get %s: %v", key, err)
	}
	return ok
}

func TestIntegration_StatisticsFollowWrites(t *testing.T) {
	ctx := context.Background()
	c, clock := newTestContainer(t, testConfig())

	profile, err := c.Users().Register(ctx, user.RegisterInput{Email: "owner@example.com", BaseCurrencyCode: "USD"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	owner := profile.ID

	food, err := c.Categories().Create(ctx, owner, category.CreateInput{Name: "Food", Kind: model.KindExpense})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}

	empty, err := c.Transactions().GetStatistics(ctx, owner, transaction.Query{})
	if err != nil {
		t.Fatalf("GetStatistics: %v", err)
	}
	if empty.TotalAmount != "0.00" || empty.TransactionCount != 0 {
		t.Fatalf("expected empty statistics, got %+v", empty)
	}

	tx, err := c.Transactions().Create(ctx, owner, transaction.CreateInput{
		CategoryID:   food.ID,
		Kind:         model.KindExpense,
		Amount:       "100.50",
		CurrencyCode: "usd",
		Date:         clock.Now().Add(-24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}

	stats, err := c.Transactions().GetStatistics(ctx, owner, transaction.Query{})
	if err != nil {
		t.Fatalf("GetStatistics: %v", err)
	}
	if stats.TotalAmount != "100.50" || stats.TransactionCount != 1 {
		t.Errorf("stale statistics after create: %+v", stats)
	}

	grouped, err := c.Transactions().GetStatistics(ctx, owner, transaction.Query{GroupBy: persistence.GroupByCategory})
	if err != nil {
		t.Fatalf("GetStatistics: %v", err)
	}
	if len(grouped.GroupedData) != 1 || grouped.GroupedData[0].Key != food.ID.String() {
		t.Errorf("unexpected groups %+v", grouped.GroupedData)
	}

	if err := c.Transactions().Delete(ctx, owner, tx.ID); err != nil {
		t.Fatalf("delete transaction: %v", err)
	}
	stats, err = c.Transactions().GetStatistics(ctx, owner, transaction.Query{})
	if err != nil {
		t.Fatalf("GetStatistics: %v", err)
	}
	if stats.TotalAmount != "0.00" || stats.TransactionCount != 0 {
		t.Errorf("stale statistics after delete: %+v", stats)
	}
}

func TestIntegration_CategoryHierarchy(t *testing.T) {
	ctx := context.Background()
	c, clock := newTestContainer(t, testConfig())
	owner := uuid.New()

	food, err := c.Categories().Create(ctx, owner, category.CreateInput{Name: "Food", Kind: model.KindExpense})
	if err != nil {
		t.Fatal(err)
	}
	veg, err := c.Categories().Create(ctx, owner, category.CreateInput{Name: "Vegetables", Kind: model.KindExpense, ParentID: &food.ID})
	if err != nil {
		t.Fatal(err)
	}

	_, err = c.Categories().Update(ctx, owner, food.ID, category.UpdateInput{Parent: category.SetParent(veg.ID)})
	if !apperrors.IsCode(err, apperrors.CodeCircularReference) {
		t.Errorf("expected circular reference, got %v", err)
	}

	_, err = c.Categories().Create(ctx, owner, category.CreateInput{Name: "Vegetables", Kind: model.KindExpense, ParentID: &food.ID})
	if !apperrors.IsCode(err, apperrors.CodeCategoryAlreadyExists) {
		t.Errorf("expected duplicate sibling, got %v", err)
	}

	list, err := c.Categories().List(ctx, owner, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || len(list[0].Subcategories) != 1 {
		t.Fatalf("expected one root with one child, got %+v", list)
	}
	if !cachedKey(t, c, cache.CategoryListKey(owner, "")) {
		t.Error("expected the list to be cached")
	}

	if _, err := c.Transactions().Create(ctx, owner, transaction.CreateInput{
		CategoryID:   veg.ID,
		Kind:         model.KindExpense,
		Amount:       "4.20",
		CurrencyCode: "EUR",
		Date:         clock.Now(),
	}); err != nil {
		t.Fatal(err)
	}

	if err := c.Categories().Delete(ctx, owner, food.ID); !apperrors.IsCode(err, apperrors.CodeCategoryHasSubcategories) {
		t.Errorf("expected subcategory guard, got %v", err)
	}
	if err := c.Categories().Delete(ctx, owner, veg.ID); !apperrors.IsCode(err, apperrors.CodeCategoryHasTransactions) {
		t.Errorf("expected transaction guard, got %v", err)
	}

	_, err = c.Transactions().Create(ctx, owner, transaction.CreateInput{
		CategoryID:   veg.ID,
		Kind:         model.KindIncome,
		Amount:       "1",
		CurrencyCode: "EUR",
		Date:         clock.Now(),
	})
	if !apperrors.IsCode(err, apperrors.CodeInvalidTransactionCat) {
		t.Errorf("expected kind mismatch, got %v", err)
	}

	name := "Greens"
	if _, err := c.Categories().Update(ctx, owner, veg.ID, category.UpdateInput{Name: &name}); err != nil {
		t.Fatal(err)
	}
	if cachedKey(t, c, cache.CategoryListKey(owner, "")) {
		t.Error("expected the rename to drop the cached list")
	}
	parent, err := c.Categories().Get(ctx, owner, food.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(parent.Subcategories) != 1 || parent.Subcategories[0].Name != "Greens" {
		t.Errorf("parent view not refreshed: %+v", parent.Subcategories)
	}
}

func TestIntegration_Users(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestContainer(t, testConfig())

	p, err := c.Users().Register(ctx, user.RegisterInput{Email: "Ada@Example.com"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Users().Register(ctx, user.RegisterInput{Email: "ada@example.com"}); !apperrors.IsCode(err, apperrors.CodeEmailAlreadyExists) {
		t.Errorf("expected email conflict from the unique index, got %v", err)
	}

	if _, err := c.Users().GetProfile(ctx, p.ID); err != nil {
		t.Fatal(err)
	}
	if !cachedKey(t, c, cache.UserProfileKey(p.ID)) {
		t.Error("expected the profile to be cached")
	}

	if _, err := c.Users().UpdateRole(ctx, p.ID, model.RoleAdmin); err != nil {
		t.Fatal(err)
	}
	got, err := c.Users().GetByEmail(ctx, "ada@example.com")
	if err != nil || got.Role != model.RoleAdmin {
		t.Errorf("expected admin role, got %+v (%v)", got, err)
	}
}
