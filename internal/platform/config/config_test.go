package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, time.Hour, cfg.RefreshDeadline)
	assert.Equal(t, 24*time.Hour, cfg.StaleAfter)
	assert.Equal(t, "raw-records", cfg.KafkaTopic)
	assert.Equal(t, 39.3, cfg.Bounds.North)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("VENUEGRAPH_ADDR", ":9090")
	t.Setenv("VENUEGRAPH_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadRejectsBadWorkerCount(t *testing.T) {
	t.Setenv("VENUEGRAPH_VALIDATE_WORKERS", "0")

	_, err := Load()
	require.Error(t, err)
}
