package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_DefaultWhenMissing(t *testing.T) {
	tmpDir := t.TempDir()
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)
	os.Chdir(tmpDir)
	t.Setenv("HOME", tmpDir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIBaseURL == "" {
		t.Error("default config has no API base URL")
	}
	if !cfg.Typewriter.Enabled {
		t.Error("typewriter disabled by default")
	}
}

func TestSaveToProjectAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)
	os.Chdir(tmpDir)
	t.Setenv("HOME", tmpDir)

	cfg := DefaultConfig()
	cfg.TripID = "trip-77"
	cfg.GapPanel.ShowOnlyCritical = true
	if err := SaveToProject(cfg); err != nil {
		t.Fatalf("SaveToProject: %v", err)
	}

	if _, err := os.Stat(filepath.Join(".tripdeck", "config.json")); err != nil {
		t.Fatalf("project config file not written: %v", err)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.TripID != "trip-77" {
		t.Errorf("TripID = %q, want trip-77", loaded.TripID)
	}
	if !loaded.GapPanel.ShowOnlyCritical {
		t.Error("gap panel preference not round-tripped")
	}
}

func TestLoad_ProjectWinsOverGlobal(t *testing.T) {
	tmpDir := t.TempDir()
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)
	os.Chdir(tmpDir)
	t.Setenv("HOME", tmpDir)

	global := DefaultConfig()
	global.TripID = "global-trip"
	if err := SaveToGlobal(global); err != nil {
		t.Fatalf("SaveToGlobal: %v", err)
	}

	project := DefaultConfig()
	project.TripID = "project-trip"
	if err := SaveToProject(project); err != nil {
		t.Fatalf("SaveToProject: %v", err)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.TripID != "project-trip" {
		t.Errorf("TripID = %q, want the project config to win", loaded.TripID)
	}
}

func TestLoadFrom(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "custom.json")
	if err := os.WriteFile(path, []byte(`{"api_base_url":"http://example.test/api","trip_id":"t9"}`), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.APIBaseURL != "http://example.test/api" || cfg.TripID != "t9" {
		t.Errorf("loaded = %+v", cfg)
	}

	if _, err := LoadFrom(filepath.Join(tmpDir, "missing.json")); err == nil {
		t.Error("LoadFrom on a missing file succeeded")
	}
}
