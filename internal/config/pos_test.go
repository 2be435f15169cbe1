package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPOSConfigIsValid(t *testing.T) {
	require.NoError(t, validatePOSConfig(DefaultPOSConfig()))
}

func TestFindLicenseIsCaseInsensitive(t *testing.T) {
	cfg := DefaultPOSConfig()

	plan, ok := cfg.FindLicense("  gastro-pro-30 ")
	require.True(t, ok)
	assert.Equal(t, 30, plan.Days)

	plan, ok = cfg.FindLicense("GASTRO-FULL-LIFETIME")
	require.True(t, ok)
	assert.True(t, plan.Lifetime)

	_, ok = cfg.FindLicense("NOPE")
	assert.False(t, ok)
}

func TestCanBill(t *testing.T) {
	cfg := DefaultPOSConfig()
	assert.True(t, cfg.CanBill("cashier"))
	assert.True(t, cfg.CanBill("ROOT"))
	assert.False(t, cfg.CanBill("waiter"))
}

func TestValidatePOSConfigRejectsBadPlans(t *testing.T) {
	cfg := DefaultPOSConfig()
	cfg.Licenses = append(cfg.Licenses, LicensePlan{Key: "gastro-pro-30", Days: 30})
	assert.Error(t, validatePOSConfig(cfg))

	cfg = DefaultPOSConfig()
	cfg.Licenses = []LicensePlan{{Key: "X", Days: 0}}
	assert.Error(t, validatePOSConfig(cfg))

	cfg = DefaultPOSConfig()
	cfg.BillingRoles = nil
	assert.Error(t, validatePOSConfig(cfg))
}
