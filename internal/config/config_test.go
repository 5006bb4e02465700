package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "https://api.nasa.gov/neo/rest/v1", cfg.NASA.BaseURL)
	assert.Equal(t, 6*time.Hour, cfg.NASA.CacheTTL)
	assert.Equal(t, 7, cfg.Workers.SyncDaysAhead)
	assert.True(t, cfg.Workers.NEOEnabled)
	assert.False(t, cfg.RateLimit.PerIP)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("NASA_API_KEY", "test-key")
	t.Setenv("NASA_CACHE_TTL", "30m")
	t.Setenv("SYNC_DAYS_AHEAD", "3")
	t.Setenv("NEO_WORKER_ENABLED", "false")
	t.Setenv("RATE_LIMIT_PER_IP", "true")

	cfg := Load()

	assert.Equal(t, "9090", cfg.App.Port)
	assert.Equal(t, "test-key", cfg.NASA.APIKey)
	assert.Equal(t, 30*time.Minute, cfg.NASA.CacheTTL)
	assert.Equal(t, 3, cfg.Workers.SyncDaysAhead)
	assert.False(t, cfg.Workers.NEOEnabled)
	assert.True(t, cfg.RateLimit.PerIP)
}
