package service

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/comanda/internal/clock"
	"github.com/smallbiznis/comanda/internal/product/domain"
	"github.com/smallbiznis/comanda/internal/product/repository"
	"github.com/smallbiznis/comanda/internal/testutil"
	zonedomain "github.com/smallbiznis/comanda/internal/zone/domain"
	zonerepository "github.com/smallbiznis/comanda/internal/zone/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupService(t *testing.T) domain.Service {
	t.Helper()
	db := testutil.OpenDB(t, &domain.Product{}, &zonedomain.Zone{})
	return New(Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    testutil.Node(t),
		Clock:    clock.NewFakeClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)),
		Repo:     repository.Provide(),
		ZoneRepo: zonerepository.Provide(),
	})
}

func intPtr(v int) *int { return &v }

func TestCreateDefaultsToUntrackedStock(t *testing.T) {
	svc := setupService(t)

	resp, err := svc.Create(context.Background(), domain.CreateRequest{Name: " Arepa ", Price: "3.5"})
	require.NoError(t, err)
	assert.Equal(t, "Arepa", resp.Name)
	assert.Equal(t, "3.50", resp.Price.StringFixed(2))
	assert.Equal(t, domain.UntrackedStock, resp.Stock)
	assert.False(t, resp.Tracked)
	assert.True(t, resp.Available)
}

func TestCreateValidatesInput(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.CreateRequest{Name: "", Price: "1"})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = svc.Create(ctx, domain.CreateRequest{Name: "x", Price: "-1"})
	assert.ErrorIs(t, err, domain.ErrInvalidPrice)

	_, err = svc.Create(ctx, domain.CreateRequest{Name: "x", Price: "1", Stock: intPtr(-2)})
	assert.ErrorIs(t, err, domain.ErrInvalidStock)

	zone := "123"
	_, err = svc.Create(ctx, domain.CreateRequest{Name: "x", Price: "1", ZoneID: &zone})
	assert.ErrorIs(t, err, domain.ErrInvalidZone)
}

func TestSetStockTracksAvailability(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.CreateRequest{Name: "Malta", Price: "1", Stock: intPtr(2), MinStock: 1})
	require.NoError(t, err)

	resp, err := svc.SetStock(ctx, domain.StockRequest{ID: created.ID, Delta: intPtr(-5)})
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Stock)
	assert.False(t, resp.Available)
	assert.True(t, resp.LowStock)

	resp, err = svc.SetStock(ctx, domain.StockRequest{ID: created.ID, Stock: intPtr(10)})
	require.NoError(t, err)
	assert.Equal(t, 10, resp.Stock)
	assert.True(t, resp.Available)

	_, err = svc.SetStock(ctx, domain.StockRequest{ID: created.ID})
	assert.ErrorIs(t, err, domain.ErrInvalidStock)
}

func TestResolveLoadsProductsWithoutStockCheck(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	malta, err := svc.Create(ctx, domain.CreateRequest{Name: "Malta", Price: "1", Stock: intPtr(2)})
	require.NoError(t, err)
	arepa, err := svc.Create(ctx, domain.CreateRequest{Name: "Arepa", Price: "3"})
	require.NoError(t, err)

	items, err := svc.Resolve(ctx, []domain.CartRequestLine{
		{ProductID: malta.ID, Quantity: 1},
		{ProductID: arepa.ID, Quantity: 40},
		{ProductID: malta.ID, Quantity: 4},
	})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, 2, items[0].Stock)

	_, err = svc.Resolve(ctx, []domain.CartRequestLine{{ProductID: malta.ID, Quantity: -1}})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = svc.Resolve(ctx, []domain.CartRequestLine{{ProductID: "999", Quantity: 1}})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
