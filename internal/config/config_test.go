package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var envKeys = []string{
	"PORT", "LOG_LEVEL", "LOG_ENCODING", "STORAGE_DRIVER", "DB_PATH",
	"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "REDIS_PREFIX", "STORAGE_QUOTA_BYTES",
	"BACKEND_URL", "BACKEND_TOKEN", "BACKEND_TIMEOUT", "UPLOAD_TIMEOUT",
	"HISTORY_LIMIT", "RECENT_LIMIT", "PREVIEW_MAX_RUNES", "PREVIEW_ALLOW_PRIVATE", "CORS_ORIGIN",
}

// clearEnv unsets every config key for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	saved := make(map[string]string)
	for _, k := range envKeys {
		if v, ok := os.LookupEnv(k); ok {
			saved[k] = v
		}
		os.Unsetenv(k)
	}
	t.Cleanup(func() {
		for _, k := range envKeys {
			if v, ok := saved[k]; ok {
				os.Setenv(k, v)
			} else {
				os.Unsetenv(k)
			}
		}
	})
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadEnvFile_Syntax(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	writeFile(t, path, `# storage
STORAGE_DRIVER=redis
REDIS_PREFIX="story verse:"
CORS_ORIGIN='http://localhost:3000'

export LOG_LEVEL=debug
`)

	loadEnvFile(path)

	tests := []struct {
		key  string
		want string
	}{
		{"STORAGE_DRIVER", "redis"},
		{"REDIS_PREFIX", "story verse:"},
		{"CORS_ORIGIN", "http://localhost:3000"},
		{"LOG_LEVEL", "debug"},
	}
	for _, tt := range tests {
		if got := os.Getenv(tt.key); got != tt.want {
			t.Errorf("%s = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestLoadEnvFile_RealEnvWins(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	writeFile(t, path, "BACKEND_URL=http://from-file\n")
	os.Setenv("BACKEND_URL", "http://from-env")

	loadEnvFile(path)

	if got := os.Getenv("BACKEND_URL"); got != "http://from-env" {
		t.Errorf("BACKEND_URL = %q, want the exported value", got)
	}
}

func TestLoadEnvFile_MissingFileIgnored(t *testing.T) {
	clearEnv(t)
	loadEnvFile(filepath.Join(t.TempDir(), "absent.env"))
	if _, ok := os.LookupEnv("PORT"); ok {
		t.Error("PORT set by a missing file")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want %q", cfg.Port, "8080")
	}
	if cfg.StorageDriver != DriverSQLite {
		t.Errorf("StorageDriver = %q, want %q", cfg.StorageDriver, DriverSQLite)
	}
	if cfg.StorageQuotaBytes != 5<<20 {
		t.Errorf("StorageQuotaBytes = %d, want 5 MiB", cfg.StorageQuotaBytes)
	}
	if cfg.BackendTimeout != 120*time.Second {
		t.Errorf("BackendTimeout = %v, want 120s", cfg.BackendTimeout)
	}
	if cfg.HistoryLimit != 50 || cfg.RecentLimit != 10 {
		t.Errorf("limits = (%d, %d), want (50, 10)", cfg.HistoryLimit, cfg.RecentLimit)
	}
	if !cfg.UseStubBackend() {
		t.Error("UseStubBackend() = false, want true without BACKEND_URL")
	}
	if cfg.PreviewAllowPrivate {
		t.Error("PreviewAllowPrivate = true, want false by default")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	os.Setenv("STORAGE_DRIVER", "redis")
	os.Setenv("BACKEND_URL", "http://localhost:8000")
	os.Setenv("BACKEND_TIMEOUT", "30s")
	os.Setenv("HISTORY_LIMIT", "20")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.StorageDriver != DriverRedis {
		t.Errorf("StorageDriver = %q, want %q", cfg.StorageDriver, DriverRedis)
	}
	if cfg.BackendURL != "http://localhost:8000" || cfg.UseStubBackend() {
		t.Errorf("BackendURL = %q, want the configured origin", cfg.BackendURL)
	}
	if cfg.BackendTimeout != 30*time.Second {
		t.Errorf("BackendTimeout = %v, want 30s", cfg.BackendTimeout)
	}
	if cfg.HistoryLimit != 20 {
		t.Errorf("HistoryLimit = %d, want 20", cfg.HistoryLimit)
	}
}

func TestLoad_LocalFileBeatsDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)
	writeFile(t, filepath.Join(dir, ".env.local"), "PORT=9999\n")
	writeFile(t, filepath.Join(dir, ".env"), "PORT=7777\nRECENT_LIMIT=5\n")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9999" {
		t.Errorf("Port = %q, want %q from .env.local", cfg.Port, "9999")
	}
	if cfg.RecentLimit != 5 {
		t.Errorf("RecentLimit = %d, want 5 from .env", cfg.RecentLimit)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"unknown driver", "STORAGE_DRIVER", "mongo"},
		{"bad duration", "BACKEND_TIMEOUT", "soon"},
		{"bad int", "HISTORY_LIMIT", "abc"},
		{"zero limit", "RECENT_LIMIT", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Chdir(t.TempDir())
			os.Setenv(tt.key, tt.val)

			if _, err := Load(); err == nil {
				t.Errorf("Load with %s=%q: expected error", tt.key, tt.val)
			}
		})
	}
}
