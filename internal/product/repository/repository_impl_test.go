package repository

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/comanda/internal/product/domain"
	"github.com/smallbiznis/comanda/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecrementStock(t *testing.T) {
	db := testutil.OpenDB(t, &domain.Product{})
	repo := Provide()
	ctx := context.Background()
	now := time.Now().UTC()

	seed := []domain.Product{
		{ID: 1, Name: "Arepa", Price: decimal.NewFromInt(3), Stock: domain.UntrackedStock, Available: true},
		{ID: 2, Name: "Malta", Price: decimal.NewFromInt(1), Stock: 5, Available: true},
		{ID: 3, Name: "Tequeño", Price: decimal.NewFromInt(2), Stock: 2, Available: true},
	}
	for i := range seed {
		seed[i].CreatedAt, seed[i].UpdatedAt = now, now
		require.NoError(t, repo.Create(ctx, db, &seed[i]))
	}

	require.NoError(t, repo.DecrementStock(ctx, db, 1, 4))
	require.NoError(t, repo.DecrementStock(ctx, db, 2, 3))
	require.NoError(t, repo.DecrementStock(ctx, db, 3, 5))

	items, err := repo.FindByIDs(ctx, db, []int64{1, 2, 3})
	require.NoError(t, err)
	byID := map[int64]domain.Product{}
	for _, item := range items {
		byID[item.ID] = item
	}

	assert.Equal(t, domain.UntrackedStock, byID[1].Stock)
	assert.True(t, byID[1].Available)
	assert.Equal(t, 2, byID[2].Stock)
	assert.True(t, byID[2].Available)
	assert.Equal(t, 0, byID[3].Stock)
	assert.False(t, byID[3].Available)
}
