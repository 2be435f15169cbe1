package service

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/comanda/internal/clock"
	"github.com/smallbiznis/comanda/internal/config"
	"github.com/smallbiznis/comanda/internal/license/domain"
	"github.com/smallbiznis/comanda/internal/license/repository"
	"github.com/smallbiznis/comanda/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupService(t *testing.T) (domain.Service, *clock.FakeClock) {
	t.Helper()
	db := testutil.OpenDB(t, &domain.License{})
	clk := clock.NewFakeClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	return New(Params{
		DB:     db,
		Log:    zap.NewNop(),
		GenID:  testutil.Node(t),
		Clock:  clk,
		Repo:   repository.Provide(),
		POSCfg: config.NewStaticPOSConfigHolder(config.DefaultPOSConfig()),
	}), clk
}

func TestStatusWithoutLicense(t *testing.T) {
	svc, _ := setupService(t)

	resp, err := svc.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.StateNone, resp.State)

	active, err := svc.IsActive(context.Background())
	require.NoError(t, err)
	assert.False(t, active)
}

func TestActivateTimedPlanExpires(t *testing.T) {
	svc, clk := setupService(t)
	ctx := context.Background()

	resp, err := svc.Activate(ctx, domain.ActivateRequest{Key: "gastro-trial-7"})
	require.NoError(t, err)
	assert.Equal(t, domain.StateActive, resp.State)
	assert.Equal(t, 7, resp.DaysLeft)
	assert.Equal(t, "GASTRO-TRIAL-7", resp.Plan)

	clk.Advance(6*24*time.Hour + time.Hour)
	status, err := svc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, status.DaysLeft)

	clk.Advance(24 * time.Hour)
	active, err := svc.IsActive(ctx)
	require.NoError(t, err)
	assert.False(t, active)
}

func TestActivateLifetimeReplacesCurrent(t *testing.T) {
	svc, clk := setupService(t)
	ctx := context.Background()

	_, err := svc.Activate(ctx, domain.ActivateRequest{Key: "GASTRO-TRIAL-7"})
	require.NoError(t, err)
	clk.Advance(time.Minute)
	_, err = svc.Activate(ctx, domain.ActivateRequest{Key: "GASTRO-FULL-LIFETIME"})
	require.NoError(t, err)

	clk.Advance(10 * 365 * 24 * time.Hour)
	status, err := svc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.StateActive, status.State)
	assert.True(t, status.Lifetime)
	assert.Equal(t, -1, status.DaysLeft)
}

func TestActivateRejectsUnknownKey(t *testing.T) {
	svc, _ := setupService(t)
	_, err := svc.Activate(context.Background(), domain.ActivateRequest{Key: "FREE"})
	assert.ErrorIs(t, err, domain.ErrInvalidKey)
}
