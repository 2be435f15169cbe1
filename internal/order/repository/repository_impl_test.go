package repository

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/comanda/internal/order/domain"
	"github.com/smallbiznis/comanda/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOrder(t *testing.T, id, tableID int64, status domain.Status, createdAt time.Time) *domain.Order {
	t.Helper()
	items, err := domain.EncodeItems([]domain.Item{{ProductID: 7, Name: "Arepa", Quantity: 2}})
	require.NoError(t, err)
	return &domain.Order{
		ID:          id,
		TableID:     tableID,
		TableNumber: "01",
		Items:       items,
		Status:      status,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

func TestInsertAndFind(t *testing.T) {
	db := testutil.OpenDB(t, &domain.Order{})
	repo := Provide()
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Insert(ctx, db, newOrder(t, 1, 10, domain.StatusPending, now)))

	got, err := repo.FindByID(ctx, db, 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(10), got.TableID)
	assert.Nil(t, got.ZoneID)

	items, err := got.DecodeItems()
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)

	missing, err := repo.FindByID(ctx, db, 99)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUpdateNoteSkipsReadyOrders(t *testing.T) {
	db := testutil.OpenDB(t, &domain.Order{})
	repo := Provide()
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Insert(ctx, db, newOrder(t, 1, 10, domain.StatusPending, now)))
	require.NoError(t, repo.Insert(ctx, db, newOrder(t, 2, 10, domain.StatusReady, now.Add(time.Minute))))
	require.NoError(t, repo.Insert(ctx, db, newOrder(t, 3, 11, domain.StatusPending, now)))

	require.NoError(t, repo.UpdateNoteForOpen(ctx, db, 10, "sin cebolla", now))

	items, err := repo.ListByTable(ctx, db, 10)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "sin cebolla", items[0].Note)
	assert.Equal(t, "", items[1].Note)

	other, err := repo.FindByID(ctx, db, 3)
	require.NoError(t, err)
	assert.Equal(t, "", other.Note)
}

func TestUpdateStatusAndDelete(t *testing.T) {
	db := testutil.OpenDB(t, &domain.Order{})
	repo := Provide()
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Insert(ctx, db, newOrder(t, 1, 10, domain.StatusPending, now)))
	require.NoError(t, repo.UpdateStatus(ctx, db, 1, domain.StatusReady, &now, now))

	got, err := repo.FindByID(ctx, db, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReady, got.Status)
	require.NotNil(t, got.DispatchedAt)

	assert.ErrorIs(t, repo.UpdateStatus(ctx, db, 42, domain.StatusReady, nil, now), domain.ErrNotFound)

	require.NoError(t, repo.DeleteByTable(ctx, db, 10))
	all, err := repo.ListAll(ctx, db)
	require.NoError(t, err)
	assert.Empty(t, all)
}
