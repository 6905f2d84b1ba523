package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"CONFIG_FILE", "PORT", "REDIS_ADDR", "SQLITE_PATH", "ALLOW_LEGACY_JOIN", "PING_INTERVAL_SECONDS"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "3000" {
		t.Errorf("expected default port 3000, got %q", cfg.Port)
	}
	if cfg.Addr() != ":3000" {
		t.Errorf("expected addr :3000, got %q", cfg.Addr())
	}
	if !cfg.AllowLegacyJoin {
		t.Error("expected legacy join enabled by default")
	}
	if cfg.PingInterval != 30*time.Second {
		t.Errorf("expected 30s ping interval, got %v", cfg.PingInterval)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("ALLOW_LEGACY_JOIN", "false")
	t.Setenv("PING_INTERVAL_SECONDS", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("expected port 9090, got %q", cfg.Port)
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Errorf("expected redis addr localhost:6379, got %q", cfg.RedisAddr)
	}
	if cfg.AllowLegacyJoin {
		t.Error("expected legacy join disabled")
	}
	if cfg.PingInterval != 5*time.Second {
		t.Errorf("expected 5s ping interval, got %v", cfg.PingInterval)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("port: \"8088\"\nsqlite_path: /tmp/users.db\nping_interval_seconds: 10\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8088" {
		t.Errorf("expected port 8088, got %q", cfg.Port)
	}
	if cfg.SQLitePath != "/tmp/users.db" {
		t.Errorf("expected sqlite path /tmp/users.db, got %q", cfg.SQLitePath)
	}
	if cfg.PingInterval != 10*time.Second {
		t.Errorf("expected 10s ping interval, got %v", cfg.PingInterval)
	}
}

func TestEnvWinsOverFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("port: \"8088\"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "7070")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "7070" {
		t.Errorf("expected env port 7070 to win, got %q", cfg.Port)
	}
}

func TestLoadBadFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
