package config

import (
	"os"
	"path/filepath"
	"testing"
)

func setupHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func TestLoadMissingFileYieldsEmptyConfig(t *testing.T) {
	setupHome(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ServerURL != "" || cfg.APIKey != "" || cfg.Offline || cfg.Retry {
		t.Errorf("expected zero config, got %+v", cfg)
	}
	if got := cfg.EffectiveServerURL(); got != defaultServerURL {
		t.Errorf("effective url: got %q, want %q", got, defaultServerURL)
	}
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	home := setupHome(t)

	want := &Config{ServerURL: "https://directory.example.com", APIKey: "k1", Retry: true}
	if err := Save(want); err != nil {
		t.Fatalf("save: %v", err)
	}

	if _, err := os.Stat(filepath.Join(home, ".config", "roster", "config.json")); err != nil {
		t.Fatalf("config file: %v", err)
	}

	got, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if *got != *want {
		t.Errorf("round trip: got %+v, want %+v", got, want)
	}
	if got.EffectiveServerURL() != "https://directory.example.com" {
		t.Errorf("effective url: %q", got.EffectiveServerURL())
	}
}

func TestDeviceIDIsStable(t *testing.T) {
	setupHome(t)

	first, err := GetDeviceID()
	if err != nil {
		t.Fatalf("first device id: %v", err)
	}
	if len(first) != 16 {
		t.Errorf("device id length: got %d, want 16 hex chars", len(first))
	}

	second, err := GetDeviceID()
	if err != nil {
		t.Fatalf("second device id: %v", err)
	}
	if second != first {
		t.Errorf("device id changed between calls: %q vs %q", first, second)
	}
}
