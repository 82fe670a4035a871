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
	path := writeConfig(t, `
backend:
  base_url: http://api.local
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8087 {
		t.Errorf("Port = %d, want default 8087", cfg.Server.Port)
	}
	if cfg.Backend.RPCTimeout != 30*time.Second {
		t.Errorf("RPCTimeout = %v, want 30s", cfg.Backend.RPCTimeout)
	}
	if cfg.Backend.RESTTimeout != 10*time.Second {
		t.Errorf("RESTTimeout = %v, want 10s", cfg.Backend.RESTTimeout)
	}
	if cfg.Storage.Driver != "memory" {
		t.Errorf("Driver = %s, want memory", cfg.Storage.Driver)
	}
	if cfg.Telemetry.DeniedWindow != 10*time.Second || cfg.Telemetry.AppErrorWindow != 10*time.Second {
		t.Errorf("telemetry windows = %+v, want 10s each", cfg.Telemetry)
	}
	if cfg.Flush.Interval != 30*time.Second {
		t.Errorf("Flush.Interval = %v, want 30s", cfg.Flush.Interval)
	}
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("REVO_BACKEND_URL", "http://api.example.com")
	t.Setenv("REVO_TENANT", "org-42")

	path := writeConfig(t, `
backend:
  base_url: ${REVO_BACKEND_URL}
  tenant_id: ${REVO_TENANT}
storage:
  driver: redis
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Backend.BaseURL != "http://api.example.com" {
		t.Errorf("BaseURL = %s", cfg.Backend.BaseURL)
	}
	if cfg.Backend.TenantID != "org-42" {
		t.Errorf("TenantID = %s", cfg.Backend.TenantID)
	}
	if cfg.Storage.Driver != "redis" {
		t.Errorf("Driver = %s, want redis", cfg.Storage.Driver)
	}
}

func TestLoadRequiresBaseURL(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
`)

	if _, err := Load(path); err == nil {
		t.Fatal("Load without backend.base_url should fail")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Fatal("Load of missing file should fail")
	}
}
