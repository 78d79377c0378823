package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "api:\n  enabled: true\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Log.Level != "info" {
		t.Errorf("log level = %q, want info", cfg.Log.Level)
	}
	if cfg.Database.Path != "./growflow.sqlite" {
		t.Errorf("db path = %q", cfg.Database.Path)
	}
	if cfg.API.Port != 8099 {
		t.Errorf("api port = %d, want 8099", cfg.API.Port)
	}
	if cfg.Watering.MaxVolumeML != 10000 || cfg.Watering.DefaultVolumeML != 500 {
		t.Errorf("watering defaults = %+v", cfg.Watering)
	}
	if cfg.Scheduler.UpdateInterval.Duration() != 5*time.Minute {
		t.Errorf("update interval = %v", cfg.Scheduler.UpdateInterval.Duration())
	}
	if cfg.Readings.TTL.Duration() != 30*time.Minute {
		t.Errorf("readings ttl = %v", cfg.Readings.TTL.Duration())
	}
	if cfg.Ledger.RetentionDays != 90 {
		t.Errorf("retention = %d, want 90", cfg.Ledger.RetentionDays)
	}
	if cfg.Script != "" {
		t.Errorf("script = %q, want empty (hooks disabled)", cfg.Script)
	}
}

func TestLoadEnvExpansion(t *testing.T) {
	t.Setenv("GROWFLOW_DB", "/data/grow.sqlite")

	cfg, err := Load(writeConfig(t, `
database:
  path: ${GROWFLOW_DB}
api:
  host: ${GROWFLOW_API_HOST:127.0.0.1}
scheduler:
  update_interval: 90s
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Database.Path != "/data/grow.sqlite" {
		t.Errorf("db path = %q", cfg.Database.Path)
	}
	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("api host = %q, want fallback 127.0.0.1", cfg.API.Host)
	}
	if cfg.Scheduler.UpdateInterval.Duration() != 90*time.Second {
		t.Errorf("update interval = %v, want 90s", cfg.Scheduler.UpdateInterval.Duration())
	}
}

func TestLoadBadDuration(t *testing.T) {
	if _, err := Load(writeConfig(t, "shutdown_timeout: soon\n")); err == nil {
		t.Fatal("expected error for unparseable duration")
	}
}
