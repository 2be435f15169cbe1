package observability

import (
	"testing"

	"github.com/smallbiznis/comanda/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("OTEL_ENABLED", "")
	t.Setenv("DEPLOYMENT_ENV", "")
	t.Setenv("LOG_SAMPLING", "")

	cfg := LoadConfig(config.Config{
		AppName:     "",
		Environment: "production",
		AppVersion:  "1.2.3",
		NodeID:      3,
		Fleet:       config.FleetConfig{TerminalID: " caja-1 ", StoreName: "Centro"},
	})

	assert.Equal(t, "comanda", cfg.ServiceName)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.OtelEnabled)
	assert.False(t, cfg.LogSampling)
	assert.Equal(t, int64(3), cfg.NodeID)
	assert.Equal(t, "caja-1", cfg.TerminalID)
	assert.Equal(t, "Centro", cfg.StoreName)
	assert.Equal(t, "3", provideTracingConfig(cfg).InstanceID)
	assert.False(t, cfg.Debug())
}

func TestDebugInDevEnvironments(t *testing.T) {
	assert.True(t, Config{Environment: "development", LogLevel: "info"}.Debug())
	assert.True(t, Config{Environment: "production", LogLevel: "DEBUG"}.Debug())
}
