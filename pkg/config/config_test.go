package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  address: "127.0.0.1"
  port: 9000
storage:
  db_path: "/var/lib/chatledger"
  max_journal_size: "2GB"
logging:
  level: "debug"
maintenance:
  enabled: true
  cron: "*/5 * * * *"
  purge_deleted_after: "10m"
  rate_per_sec: 50
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr() != "127.0.0.1:9000" {
		t.Fatalf("unexpected addr: %s", cfg.Addr())
	}
	if cfg.Storage.DBPath != "/var/lib/chatledger" {
		t.Fatalf("unexpected db path: %s", cfg.Storage.DBPath)
	}
	if n, err := cfg.MaxJournalBytes(); err != nil || n != 2_000_000_000 {
		t.Fatalf("unexpected journal cap: %d err=%v", n, err)
	}
	if cfg.PurgeDeletedAfterDuration() != 10*time.Minute {
		t.Fatalf("unexpected purge window: %s", cfg.PurgeDeletedAfterDuration())
	}
	if !cfg.Maintenance.Enabled || cfg.Maintenance.RatePerSec != 50 {
		t.Fatalf("maintenance config lost: %+v", cfg.Maintenance)
	}
}

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr() != ":7421" {
		t.Fatalf("default addr should be :7421, got %s", cfg.Addr())
	}
	if cfg.Storage.DBPath != "./data" {
		t.Fatalf("default db path should be ./data, got %s", cfg.Storage.DBPath)
	}
	if n, err := cfg.MaxJournalBytes(); err != nil || n != 0 {
		t.Fatalf("default journal cap should be unlimited, got %d err=%v", n, err)
	}
	if cfg.PurgeDeletedAfterDuration() != 5*time.Minute {
		t.Fatalf("default purge window should be 5m, got %s", cfg.PurgeDeletedAfterDuration())
	}
}

func TestAddrWithExplicitHostPort(t *testing.T) {
	cfg := &Config{}
	cfg.Server.Address = "0.0.0.0:8080"
	if cfg.Addr() != "0.0.0.0:8080" {
		t.Fatalf("full host:port should pass through, got %s", cfg.Addr())
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CHATLEDGER_ADDR", "10.0.0.1")
	t.Setenv("CHATLEDGER_PORT", "8123")
	t.Setenv("CHATLEDGER_DB_PATH", "/tmp/cl")
	t.Setenv("CHATLEDGER_LOG_LEVEL", "warn")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr() != "10.0.0.1:8123" {
		t.Fatalf("env overrides not applied: %s", cfg.Addr())
	}
	if cfg.Storage.DBPath != "/tmp/cl" || cfg.Logging.Level != "warn" {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	if _, err := Load(writeConfig(t, "maintenance:\n  purge_deleted_after: \"soon\"\n")); err == nil {
		t.Fatalf("unparsable purge window should be rejected")
	}
	if _, err := Load(writeConfig(t, "storage:\n  max_journal_size: \"lots\"\n")); err == nil {
		t.Fatalf("unparsable journal cap should be rejected")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("missing explicit config file should be rejected")
	}
}
