package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func missingDotenv(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "absent.env")
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(missingDotenv(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 3000 {
		t.Fatalf("expected default port 3000, got %d", cfg.Port)
	}
	if cfg.StoreDriver != "mongo" {
		t.Fatalf("expected mongo driver, got %q", cfg.StoreDriver)
	}
	if cfg.CacheTTL != 5*time.Minute || cfg.ShutdownTimeout != 10*time.Second {
		t.Fatalf("unexpected durations: %v %v", cfg.CacheTTL, cfg.ShutdownTimeout)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
		t.Fatalf("unexpected cors origins: %v", cfg.CORSOrigins)
	}
	if cfg.RedisEnabled() {
		t.Fatal("redis should be disabled without REDIS_ADDR")
	}
	if cfg.RedisPoolSize != 10 || cfg.EventsMaxLen != 10000 {
		t.Fatalf("unexpected redis defaults: pool %d, max len %d", cfg.RedisPoolSize, cfg.EventsMaxLen)
	}
	if cfg.Addr() != ":3000" {
		t.Fatalf("unexpected addr %q", cfg.Addr())
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("CACHE_TTL", "30s")
	t.Setenv("CORS_ORIGINS", "http://a.test,http://b.test")

	cfg, err := Load(missingDotenv(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 8080 || cfg.StoreDriver != "postgres" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if !cfg.RedisEnabled() || cfg.CacheTTL != 30*time.Second {
		t.Fatalf("unexpected redis config: %+v", cfg)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "http://b.test" {
		t.Fatalf("unexpected cors origins: %v", cfg.CORSOrigins)
	}
}

func TestLoadDotenvDoesNotOverrideEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("MONGODB_DATABASE=fromfile\nLOG_LEVEL=debug\n"), 0o600); err != nil {
		t.Fatalf("write dotenv: %v", err)
	}
	t.Setenv("LOG_LEVEL", "warn")
	// Register MONGODB_DATABASE for cleanup so the file's value does not leak.
	t.Setenv("MONGODB_DATABASE", "")
	os.Unsetenv("MONGODB_DATABASE")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.MongoDatabase != "fromfile" {
		t.Fatalf("expected database from file, got %q", cfg.MongoDatabase)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("expected environment to win, got %q", cfg.LogLevel)
	}
}

func TestLoadError(t *testing.T) {
	t.Setenv("PORT", "not-an-int")

	_, err := Load(missingDotenv(t))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

func TestLoadRejectsOutOfRangePort(t *testing.T) {
	t.Setenv("PORT", "70000")

	if _, err := Load(missingDotenv(t)); err == nil {
		t.Fatal("expected error for port out of range")
	}
}
