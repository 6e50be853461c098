package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Server.Addr != ":9090" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Errorf("driver = %q", cfg.Storage.Driver)
	}
	if cfg.Webhook.Timeout() != 10*time.Second {
		t.Errorf("webhook timeout = %v", cfg.Webhook.Timeout())
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "triage.yaml")
	data := `
server:
  addr: ":8080"
storage:
  driver: memory
defaults:
  expiring_soon_window_ms: 1800000
log_level: debug
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Storage.Driver != "memory" {
		t.Errorf("driver = %q", cfg.Storage.Driver)
	}
	if cfg.Defaults.ExpiringSoonWindow() != 30*time.Minute {
		t.Errorf("expiring soon window = %v", cfg.Defaults.ExpiringSoonWindow())
	}
	// Unset keys keep their defaults.
	if cfg.Storage.Path != "./data/triage.db" {
		t.Errorf("path = %q", cfg.Storage.Path)
	}
	if cfg.Auth.AdminUser != "admin" {
		t.Errorf("admin user = %q", cfg.Auth.AdminUser)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
