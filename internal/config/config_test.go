package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = []string{
	"LOG_LEVEL", "LOG_PRETTY", "PORT", "DEV_MODE", "CURRENCY",
	"ENTITY_STORE_URL", "ENTITY_STORE_TIMEOUT", "ENTITY_STORE_WATCH",
	"ENTITY_STORE_PORT", "ENTITY_STORE_DB", "CACHE_SWEEP_SCHEDULE",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.LogPretty)
	assert.Equal(t, 8001, cfg.Port)
	assert.Equal(t, "USD", cfg.Currency)
	assert.Equal(t, "http://localhost:8080", cfg.EntityStore.URL)
	assert.Equal(t, 10*time.Second, cfg.EntityStore.Timeout)
	assert.False(t, cfg.EntityStore.Watch)
	assert.Equal(t, 8080, cfg.EntityStore.Port)
	assert.True(t, filepath.IsAbs(cfg.EntityStore.DBPath))
	assert.Equal(t, "@every 1m", cfg.CacheSweepSchedule)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	clearEnv(t)
	t.Setenv("PORT", "9001")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_PRETTY", "true")
	t.Setenv("CURRENCY", "eur")
	t.Setenv("ENTITY_STORE_URL", "https://store.internal/api/")
	t.Setenv("ENTITY_STORE_TIMEOUT", "3")
	t.Setenv("ENTITY_STORE_WATCH", "1")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9001, cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.LogPretty)
	assert.Equal(t, "EUR", cfg.Currency)
	assert.Equal(t, "https://store.internal/api", cfg.EntityStore.URL)
	assert.Equal(t, 3*time.Second, cfg.EntityStore.Timeout)
	assert.True(t, cfg.EntityStore.Watch)
}

func TestLoad_RejectsMalformedValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"ENTITY_STORE_URL", "localhost:8080"},
		{"ENTITY_STORE_URL", "ftp://store"},
		{"CURRENCY", "DOLLARS"},
		{"PORT", "70000"},
		{"ENTITY_STORE_PORT", "-1"},
		{"ENTITY_STORE_TIMEOUT", "-5s"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Chdir(t.TempDir())
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	t.Setenv("SOME_TIMEOUT", "1m30s")
	assert.Equal(t, 90*time.Second, getEnvAsDuration("SOME_TIMEOUT", time.Second))

	t.Setenv("SOME_TIMEOUT", "garbage")
	assert.Equal(t, time.Second, getEnvAsDuration("SOME_TIMEOUT", time.Second))
}
