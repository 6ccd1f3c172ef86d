package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoader_Layering(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	writeConfig(t, filepath.Join(home, UserConfigDir, UserConfigFile), `
model:
  timeout: 45s
  temperature: 0.7
`)

	project := t.TempDir()
	writeConfig(t, filepath.Join(project, ProjectConfigFile), `
model:
  temperature: 0.1
`)
	nested := filepath.Join(project, "docs", "specs")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	cfg, err := NewLoader(nil).FromDir(nested).Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Model.Timeout != 45*time.Second {
		t.Errorf("expected user timeout 45s, got %v", cfg.Model.Timeout)
	}
	if cfg.Model.Temperature != 0.1 {
		t.Errorf("expected project temperature to win, got %v", cfg.Model.Temperature)
	}
	if cfg.Workspace != project {
		t.Errorf("expected workspace %s, got %s", project, cfg.Workspace)
	}
}

func TestLoader_ExplicitPath(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	dir := t.TempDir()
	explicit := filepath.Join(dir, "ci.yaml")
	writeConfig(t, explicit, "workspace: /srv/qa\nstorage:\n  path: ws.db\n")

	cfg, err := NewLoader(nil).FromDir(dir).Load(explicit)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.StoragePath() != filepath.Join("/srv/qa", "ws.db") {
		t.Errorf("unexpected storage path %s", cfg.StoragePath())
	}

	if _, err := NewLoader(nil).Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing explicit config")
	}
}

func TestLoader_InvalidProjectConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	dir := t.TempDir()
	writeConfig(t, filepath.Join(dir, ProjectConfigFile), "storage:\n  backend: postgres\n")

	if _, err := NewLoader(nil).FromDir(dir).Load(""); err == nil {
		t.Error("expected validation error")
	}
}

func TestLoader_EnsureUserConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path, err := NewLoader(nil).EnsureUserConfig()
	if err != nil {
		t.Fatalf("EnsureUserConfig() error = %v", err)
	}
	if path != filepath.Join(home, UserConfigDir, UserConfigFile) {
		t.Errorf("unexpected path %s", path)
	}
	if _, err := LoadFromFile(path); err != nil {
		t.Errorf("created config does not load: %v", err)
	}

	// Second call leaves the file alone.
	writeConfig(t, path, "model:\n  max_attempts: 2\n")
	if _, err := NewLoader(nil).EnsureUserConfig(); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Model.MaxAttempts != 2 {
		t.Errorf("existing user config was overwritten")
	}
}
