package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteAndLoadDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stockmaster.yaml")
	if err := WriteDefaultConfig(path); err != nil {
		t.Fatalf("WriteDefaultConfig: %v", err)
	}
	cfg, err := LoadYAMLConfig(path)
	if err != nil {
		t.Fatalf("LoadYAMLConfig: %v", err)
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("port = %d, want 3000", cfg.Server.Port)
	}
	if cfg.Backend.Retries != 2 || cfg.Backend.Backoff != "500ms" {
		t.Errorf("backend = %+v", cfg.Backend)
	}
	if cfg.Database.MaxRows != 1000 || cfg.Database.Driver != "mysql" {
		t.Errorf("database = %+v", cfg.Database)
	}
}

func TestLoadYAMLConfigExpandsEnv(t *testing.T) {
	t.Setenv("SM_TEST_DSN", "user:secret@tcp(db:3306)/inventory")
	path := filepath.Join(t.TempDir(), "stockmaster.yaml")
	content := `
database:
  driver: mysql
  dsn: ${SM_TEST_DSN}
backend:
  models: [m1, m2]
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadYAMLConfig(path)
	if err != nil {
		t.Fatalf("LoadYAMLConfig: %v", err)
	}
	if cfg.Database.DSN != "user:secret@tcp(db:3306)/inventory" {
		t.Errorf("dsn = %q", cfg.Database.DSN)
	}
	if len(cfg.Backend.Models) != 2 || cfg.Backend.Models[0] != "m1" {
		t.Errorf("models = %v", cfg.Backend.Models)
	}
	// Keys absent from the file keep their defaults.
	if cfg.Server.Port != 3000 {
		t.Errorf("port = %d, want default", cfg.Server.Port)
	}
}

func TestLoadYAMLConfigMissingFile(t *testing.T) {
	if _, err := LoadYAMLConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
