package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Port string

	// Remote backend. Empty RemoteURL disables sync entirely: the app
	// runs as a purely offline tracker.
	RemoteURL    string
	RemoteAPIKey string

	SyncInterval    time.Duration // periodic safety-net sync
	SyncDebounce    time.Duration // coalescing window after local writes
	InitialSyncWait time.Duration // bound on the first post-login sync
}

// Load loads configuration from the environment, with a .env file if present.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading it.")
	}

	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		RemoteURL:       os.Getenv("REMOTE_URL"),
		RemoteAPIKey:    os.Getenv("REMOTE_API_KEY"),
		SyncInterval:    getDuration("SYNC_INTERVAL_MINUTES", 5) * time.Minute,
		SyncDebounce:    getDuration("SYNC_DEBOUNCE_MS", 500) * time.Millisecond,
		InitialSyncWait: getDuration("INITIAL_SYNC_TIMEOUT_SECONDS", 10) * time.Second,
	}

	if cfg.RemoteURL != "" && cfg.RemoteAPIKey == "" {
		log.Println("Warning: REMOTE_URL set without REMOTE_API_KEY")
	}

	return cfg
}

// SyncEnabled reports whether a remote backend is configured.
func (c *Config) SyncEnabled() bool {
	return c.RemoteURL != ""
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getDuration(key string, fallback int64) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return time.Duration(fallback)
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n <= 0 {
		log.Printf("Warning: invalid %s=%q, using default %d", key, value, fallback)
		return time.Duration(fallback)
	}
	return time.Duration(n)
}
