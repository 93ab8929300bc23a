package bunstore

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-finance-tracker/model"
)

func TestCategoryRepository_IdentifierIsID(t *testing.T) {
	ctx := context.Background()
	db, err := Open(DriverSQLite, "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	t.Cleanup(func() { db.Close() })

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := NewCategoryRepository(db, clockwork.NewFakeClockAt(now))

	var ids []uuid.UUID
	for i := 0; i < 2; i++ {
		c, err := repo.Create(ctx, &model.Category{
			ID:        uuid.New(),
			OwnerID:   uuid.New(),
			Name:      "Food",
			Kind:      model.KindExpense,
			CreatedAt: now,
			UpdatedAt: now,
		})
		require.NoError(t, err)
		ids = append(ids, c.ID)
	}

	for _, id := range ids {
		got, err := repo.repo.GetByIdentifier(ctx, id.String())
		require.NoError(t, err)
		assert.Equal(t, id, got.ID)
	}
}
