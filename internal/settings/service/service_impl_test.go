package service

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/comanda/internal/clock"
	"github.com/smallbiznis/comanda/internal/config"
	"github.com/smallbiznis/comanda/internal/settings/domain"
	"github.com/smallbiznis/comanda/internal/settings/repository"
	"github.com/smallbiznis/comanda/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupService(t *testing.T) domain.Service {
	t.Helper()
	db := testutil.OpenDB(t, &domain.Settings{})
	return New(Params{
		DB:     db,
		Log:    zap.NewNop(),
		Clock:  clock.NewFakeClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)),
		Repo:   repository.Provide(),
		POSCfg: config.NewStaticPOSConfigHolder(config.DefaultPOSConfig()),
	})
}

func strPtr(v string) *string { return &v }
func boolPtr(v bool) *bool     { return &v }

func TestRatesFallBackToDefaults(t *testing.T) {
	svc := setupService(t)

	rates, err := svc.Rates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "36.5", rates.ExchangeRate.String())
	assert.Equal(t, "0.16", rates.IVA.String())
	assert.Equal(t, "0.03", rates.IGTF.String())
	assert.True(t, rates.IVAEnabled)
	assert.True(t, rates.IGTFEnabled)
}

func TestSeedIsIdempotent(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	require.NoError(t, svc.Seed(ctx))
	_, err := svc.Update(ctx, domain.UpdateRequest{ExchangeRate: strPtr("40")})
	require.NoError(t, err)
	require.NoError(t, svc.Seed(ctx))

	resp, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "40", resp.ExchangeRate.String())
}

func TestUpdatePatchesFields(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	resp, err := svc.Update(ctx, domain.UpdateRequest{IGTFEnabled: boolPtr(false), IVA: strPtr("0.08")})
	require.NoError(t, err)
	assert.False(t, resp.IGTFEnabled)
	assert.True(t, resp.IVAEnabled)
	assert.Equal(t, "0.08", resp.IVA.String())

	rates, err := svc.Rates(ctx)
	require.NoError(t, err)
	assert.False(t, rates.IGTFEnabled)
}

func TestUpdateRejectsInvalidRates(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	_, err := svc.Update(ctx, domain.UpdateRequest{ExchangeRate: strPtr("0")})
	assert.ErrorIs(t, err, domain.ErrInvalidExchangeRate)

	_, err = svc.Update(ctx, domain.UpdateRequest{IVA: strPtr("abc")})
	assert.ErrorIs(t, err, domain.ErrInvalidIVA)

	_, err = svc.Update(ctx, domain.UpdateRequest{IGTF: strPtr("1.2")})
	assert.ErrorIs(t, err, domain.ErrInvalidIGTF)
}
