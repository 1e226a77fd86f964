package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	// Act
	cfg, err := LoadConfig()

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 1000, cfg.CacheMaxEntries)
	assert.Equal(t, int64(10<<20), cfg.CacheMaxSizeBytes)
	assert.Equal(t, 5*time.Minute, cfg.CacheDefaultTTL)
	assert.Equal(t, 3, cfg.RetryAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.RetryDelay)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	// Arrange
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("CACHE_MAX_ENTRIES", "50")
	t.Setenv("CACHE_DEFAULT_TTL", "30s")
	t.Setenv("RETRY_DELAY", "100ms")

	// Act
	cfg, err := LoadConfig()

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 50, cfg.CacheMaxEntries)
	assert.Equal(t, 30*time.Second, cfg.CacheDefaultTTL)
	assert.Equal(t, 100*time.Millisecond, cfg.RetryDelay)
	assert.True(t, cfg.IsProduction())
}

func TestLoadConfig_InvalidValuesFallBackToDefaults(t *testing.T) {
	t.Setenv("CACHE_MAX_ENTRIES", "not-a-number")
	t.Setenv("PROBE_INTERVAL", "soon")

	cfg, err := LoadConfig()

	require.NoError(t, err)
	assert.Equal(t, 1000, cfg.CacheMaxEntries)
	assert.Equal(t, 30*time.Second, cfg.ProbeInterval)
}

func TestConfig_ValidateRejectsBadValues(t *testing.T) {
	t.Setenv("ENVIRONMENT", "staging")

	_, err := LoadConfig()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "environment")
}
