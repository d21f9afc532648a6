package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Name != "jsonsmoke" {
		t.Errorf("expected Name=jsonsmoke, got %s", cfg.Name)
	}
	if cfg.Backend.Name != "cybergodev" {
		t.Errorf("expected Backend=cybergodev, got %s", cfg.Backend.Name)
	}
	if cfg.Generator.Weights["object"] != 1 {
		t.Errorf("expected object weight 1, got %d", cfg.Generator.Weights["object"])
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	t.Setenv("JSONSMOKE_BACKEND", "")
	t.Setenv("JSONSMOKE_SIZE", "")

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Backend.Name = "stdlib"
	cfg.Generator.Size = 42
	cfg.Generator.Weights["float"] = 3

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Backend.Name != "stdlib" {
		t.Errorf("expected Backend=stdlib, got %s", loaded.Backend.Name)
	}
	if loaded.Generator.Size != 42 {
		t.Errorf("expected Size=42, got %d", loaded.Generator.Size)
	}
	if loaded.Generator.Weights["float"] != 3 {
		t.Errorf("expected float weight 3, got %d", loaded.Generator.Weights["float"])
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("JSONSMOKE_BACKEND", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Generator.Size != DefaultConfig().Generator.Size {
		t.Errorf("expected default size, got %d", cfg.Generator.Size)
	}
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("generator: [unterminated"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend.Name = "simdjson"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for unknown backend")
	}

	cfg = DefaultConfig()
	cfg.Generator.MaxDepth = cfg.Backend.MaxDepth
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for generator depth at backend limit")
	}

	cfg = DefaultConfig()
	cfg.Batch.Jobs = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for zero jobs")
	}

	cfg = DefaultConfig()
	cfg.History.Path = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for enabled history without path")
	}
	cfg.History.Enabled = false
	if err := cfg.Validate(); err != nil {
		t.Errorf("disabled history needs no path: %v", err)
	}
}

func TestConfig_WatchDebounce(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.GetWatchDebounce(); got != 250*time.Millisecond {
		t.Errorf("expected 250ms, got %v", got)
	}
	cfg.Watch.Debounce = "nonsense"
	if got := cfg.GetWatchDebounce(); got != 250*time.Millisecond {
		t.Errorf("expected fallback 250ms, got %v", got)
	}
	cfg.Watch.Debounce = "2s"
	if got := cfg.GetWatchDebounce(); got != 2*time.Second {
		t.Errorf("expected 2s, got %v", got)
	}
}

func TestResolvePath(t *testing.T) {
	if got := ResolvePath("/ws", "out/doc.json"); got != filepath.Join("/ws", "out", "doc.json") {
		t.Errorf("unexpected relative resolution: %s", got)
	}
	if got := ResolvePath("/ws", "/abs/doc.json"); got != "/abs/doc.json" {
		t.Errorf("absolute path should be kept: %s", got)
	}
}

func TestLoggingConfig_IsCategoryEnabled(t *testing.T) {
	lc := LoggingConfig{}
	if !lc.IsCategoryEnabled("codec") {
		t.Error("categories default to enabled")
	}
	lc.Categories = map[string]bool{"codec": false}
	if lc.IsCategoryEnabled("codec") {
		t.Error("codec should be disabled")
	}
	if !lc.IsCategoryEnabled("watch") {
		t.Error("unlisted categories stay enabled")
	}
}
