// Package config provides centralized configuration for the storyverse server
// and CLI. Values come from the environment, optionally seeded from .env files.
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Storage drivers.
const (
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

// Config holds all configuration values.
type Config struct {
	// Port is the HTTP server listen port.
	Port string `envconfig:"PORT" default:"8080"`

	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogEncoding string `envconfig:"LOG_ENCODING" default:"json"`

	// StorageDriver selects the collection storage: sqlite, redis or memory.
	StorageDriver string `envconfig:"STORAGE_DRIVER" default:"sqlite"`
	DBPath        string `envconfig:"DB_PATH" default:"storyverse.db"`
	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	RedisPrefix   string `envconfig:"REDIS_PREFIX" default:"storyverse:"`
	// StorageQuotaBytes caps one stored collection. Zero disables the cap.
	StorageQuotaBytes int `envconfig:"STORAGE_QUOTA_BYTES" default:"5242880"`

	// BackendURL is the generation backend origin. Empty runs against a stub.
	BackendURL     string        `envconfig:"BACKEND_URL"`
	BackendToken   string        `envconfig:"BACKEND_TOKEN"`
	BackendTimeout time.Duration `envconfig:"BACKEND_TIMEOUT" default:"120s"`
	UploadTimeout  time.Duration `envconfig:"UPLOAD_TIMEOUT" default:"10m"`

	HistoryLimit    int `envconfig:"HISTORY_LIMIT" default:"50"`
	RecentLimit     int `envconfig:"RECENT_LIMIT" default:"10"`
	PreviewMaxRunes int `envconfig:"PREVIEW_MAX_RUNES" default:"2000"`
	// PreviewAllowPrivate lets previews reach loopback and private addresses.
	PreviewAllowPrivate bool `envconfig:"PREVIEW_ALLOW_PRIVATE" default:"false"`

	// CORSOrigin is the allowed CORS origin.
	CORSOrigin string `envconfig:"CORS_ORIGIN" default:"*"`
}

// Load seeds the environment from .env.local and .env (real variables win),
// then reads the configuration.
func Load() (Config, error) {
	loadEnvFile(".env.local")
	loadEnvFile(".env")

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects inconsistent settings.
func (c Config) Validate() error {
	switch c.StorageDriver {
	case DriverSQLite, DriverRedis, DriverMemory:
	default:
		return fmt.Errorf("STORAGE_DRIVER %q: want sqlite, redis or memory", c.StorageDriver)
	}
	if c.HistoryLimit <= 0 || c.RecentLimit <= 0 {
		return fmt.Errorf("HISTORY_LIMIT and RECENT_LIMIT must be positive")
	}
	if c.StorageQuotaBytes < 0 {
		return fmt.Errorf("STORAGE_QUOTA_BYTES must not be negative")
	}
	return nil
}

// UseStubBackend reports whether no backend is configured.
func (c Config) UseStubBackend() bool {
	return c.BackendURL == ""
}

// loadEnvFile loads KEY=VALUE pairs from path without overriding variables
// that are already set. A missing file is ignored.
func loadEnvFile(path string) {
	_ = godotenv.Load(path)
}
