package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mirrorsync/internal/config"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
[remote]
base_url = "https://backend.example.com"
api_key = "key-123"
`)

	cfg, resolved, found, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !found || resolved != path {
		t.Fatalf("expected config at %s to be found, got %s (%v)", path, resolved, found)
	}
	if cfg.Sync.MaxAttempts != 3 {
		t.Fatalf("expected default max_attempts 3, got %d", cfg.Sync.MaxAttempts)
	}
	if cfg.Remote.Bucket != "submission" {
		t.Fatalf("expected default bucket, got %q", cfg.Remote.Bucket)
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
	if !filepath.IsAbs(cfg.Paths.DataDir) {
		t.Fatalf("expected expanded data dir, got %q", cfg.Paths.DataDir)
	}
}

func TestLoadRejectsMissingRemote(t *testing.T) {
	path := writeConfig(t, `
[remote]
base_url = ""
`)

	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected validation error for missing base_url")
	}
}

func TestLoadRejectsBadURL(t *testing.T) {
	path := writeConfig(t, `
[remote]
base_url = "ftp://backend.example.com"
api_key = "key"
`)

	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected validation error for non-http base_url")
	}
}

func TestLoadRejectsInvalidSyncSettings(t *testing.T) {
	path := writeConfig(t, `
[remote]
base_url = "https://backend.example.com"
api_key = "key"

[sync]
max_attempts = 0
`)

	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected validation error for zero max_attempts")
	}
}

func TestLoadNormalizesLoggingValues(t *testing.T) {
	path := writeConfig(t, `
[remote]
base_url = "https://backend.example.com"
api_key = "key"

[logging]
format = " JSON "
level = "DEBUG"
`)

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("expected normalized logging values, got %+v", cfg.Logging)
	}
}

func TestDerivedPaths(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.DataDir = "/tmp/mirrorsync-test"

	if got := cfg.QueueDatabasePath(); got != "/tmp/mirrorsync-test/uploads.db" {
		t.Fatalf("unexpected database path: %q", got)
	}
	if got := cfg.SocketPath(); got != "/tmp/mirrorsync-test/mirrorsyncd.sock" {
		t.Fatalf("unexpected socket path: %q", got)
	}
	if got := cfg.LockPath(); got != "/tmp/mirrorsync-test/mirrorsyncd.lock" {
		t.Fatalf("unexpected lock path: %q", got)
	}
}

func TestCreateSampleProducesLoadableConfig(t *testing.T) {
	target := filepath.Join(t.TempDir(), "sample", "config.toml")
	if err := config.CreateSample(target); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}

	raw, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(raw), "base_url") {
		t.Fatal("expected sample config to document base_url")
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s, err=%v", dir, err)
		}
	}
}
