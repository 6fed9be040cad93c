package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "docket.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Storage.Backend != BackendSQLite {
		t.Errorf("backend = %q", cfg.Storage.Backend)
	}
	if got := cfg.StoragePath(); got != filepath.Join("data", "docket.db") {
		t.Errorf("StoragePath = %q", got)
	}
	if got := cfg.CasesPath(); got != filepath.Join("data", "cases.json") {
		t.Errorf("CasesPath = %q", got)
	}
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":8088"
auth:
  jwt_secret: s3cret
storage:
  backend: file
data_dir: /var/lib/docket
log_level: debug
matrix:
  columns:
    - Sign Retainer Agreement
    - Send Demand Letter
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":8088" || cfg.Auth.JWTSecret != "s3cret" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Storage.Key != "docket.tasks" {
		t.Errorf("default key lost: %q", cfg.Storage.Key)
	}
	if got := cfg.StoragePath(); got != filepath.Join("/var/lib/docket", "tasks.json") {
		t.Errorf("StoragePath = %q", got)
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Errorf("SlogLevel = %v", cfg.SlogLevel())
	}
	if len(cfg.Matrix.Columns) != 2 {
		t.Errorf("columns = %v", cfg.Matrix.Columns)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := map[string]string{
		"bad backend": "storage:\n  backend: postgres\n",
		"bad level":   "log_level: chatty\n",
		"bad yaml":    "server: [\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, body)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil || !strings.Contains(err.Error(), "read config") {
		t.Errorf("missing file err = %v", err)
	}
}
