package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "campaigns.db", cfg.Store.DatabaseURL)
	assert.Equal(t, []float64{0.25, 0.50, 0.75}, cfg.Engine.CheckpointFractions)
	assert.Equal(t, 0.8, cfg.Engine.EscalationThreshold)
	assert.Equal(t, 1.0, cfg.Engine.DefaultUrgency)
	assert.Equal(t, 30, cfg.Engine.CheckIntervalSecs)
	assert.Equal(t, "email", cfg.Engine.Channel)
	assert.Equal(t, "log", cfg.Dispatch.Mode)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CAMPAIGN_STORE_DRIVER", "postgres")
	t.Setenv("CAMPAIGN_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_ConfigFile(t *testing.T) {
	t.Chdir(t.TempDir())

	yaml := []byte("engine:\n  escalation_threshold: 0.6\n  checkpoint_fractions: [0.5]\nserver:\n  port: 9000\n")
	require.NoError(t, os.WriteFile("config.yaml", yaml, 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 0.6, cfg.Engine.EscalationThreshold)
	assert.Equal(t, []float64{0.5}, cfg.Engine.CheckpointFractions)
	assert.Equal(t, 9000, cfg.Server.Port)
}

func TestInitLogger_InvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "shouting"})
	assert.Error(t, err)
}
