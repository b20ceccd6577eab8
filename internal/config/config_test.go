package config

import (
	"os"
	"path/filepath"
	"testing"

	"queenwatch/internal/detector"
	"queenwatch/internal/engine"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.EnginePath != engine.DefaultEngine {
		t.Errorf("EnginePath = %q", cfg.EnginePath)
	}
	if cfg.DetectorOptions() != detector.DefaultOptions() {
		t.Errorf("DetectorOptions = %+v", cfg.DetectorOptions())
	}
	if cfg.Workers != 2 || cfg.APIPort != 8080 || cfg.APIHost != "localhost" {
		t.Errorf("unexpected defaults %+v", cfg)
	}
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("QUEENWATCH_ENGINE_PATH", "/opt/engines/sf")
	t.Setenv("QUEENWATCH_DEPTH", "20")
	t.Setenv("QUEENWATCH_PLAYER", "Anonymous")
	t.Setenv("QUEENWATCH_DEV", "true")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.EnginePath != "/opt/engines/sf" || cfg.Depth != 20 || cfg.Player != "Anonymous" || !cfg.Dev {
		t.Errorf("env not applied: %+v", cfg)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queenwatch.yaml")
	content := "depth: 12\nthreshold: 150\nworkers: 4\nstorage_path: runs.db\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	// environment wins over the file
	t.Setenv("QUEENWATCH_WORKERS", "8")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Depth != 12 || cfg.Threshold != 150 || cfg.StoragePath != "runs.db" {
		t.Errorf("file not applied: %+v", cfg)
	}
	if cfg.Workers != 8 {
		t.Errorf("Workers = %d, want 8", cfg.Workers)
	}
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("invalid depth", func(t *testing.T) {
		t.Setenv("QUEENWATCH_DEPTH", "0")
		if _, err := Load(""); err == nil {
			t.Error("expected validation error")
		}
	})

	t.Run("invalid port", func(t *testing.T) {
		t.Setenv("QUEENWATCH_API_PORT", "70000")
		if _, err := Load(""); err == nil {
			t.Error("expected validation error")
		}
	})
}
