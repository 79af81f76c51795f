package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"PORT", "REMOTE_URL", "REMOTE_API_KEY", "SYNC_INTERVAL_MINUTES", "SYNC_DEBOUNCE_MS", "INITIAL_SYNC_TIMEOUT_SECONDS"} {
		os.Unsetenv(key)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 5*time.Minute, cfg.SyncInterval)
	assert.Equal(t, 500*time.Millisecond, cfg.SyncDebounce)
	assert.Equal(t, 10*time.Second, cfg.InitialSyncWait)
	assert.False(t, cfg.SyncEnabled())
}

func TestLoadFromEnvironment(t *testing.T) {
	clearEnv(t)
	os.Setenv("PORT", "9090")
	os.Setenv("REMOTE_URL", "https://backend.example.com")
	os.Setenv("SYNC_DEBOUNCE_MS", "250")
	defer clearEnv(t)

	cfg := Load()
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.SyncDebounce)
	assert.True(t, cfg.SyncEnabled())
}

func TestInvalidDurationFallsBack(t *testing.T) {
	clearEnv(t)
	os.Setenv("SYNC_INTERVAL_MINUTES", "soon")
	defer clearEnv(t)

	cfg := Load()
	assert.Equal(t, 5*time.Minute, cfg.SyncInterval)
}
