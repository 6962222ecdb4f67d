// Package config stores global roster settings at ~/.config/roster.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const defaultServerURL = "http://localhost:8080"

// Config is the global roster config stored at ~/.config/roster/config.json.
type Config struct {
	ServerURL string `json:"server_url,omitempty"`
	APIKey    string `json:"api_key,omitempty"`
	// Offline forces every connectivity check to report offline.
	Offline bool `json:"offline,omitempty"`
	// Retry enables the exponential-backoff wrapper around remote calls.
	Retry bool `json:"retry,omitempty"`
}

// EffectiveServerURL returns the configured server URL or the default.
func (c *Config) EffectiveServerURL() string {
	if c.ServerURL != "" {
		return c.ServerURL
	}
	return defaultServerURL
}

// ConfigDir returns ~/.config/roster, creating it if necessary.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	dir := filepath.Join(home, ".config", "roster")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}
	return dir, nil
}

// Load reads the global config. A missing file yields an empty config.
func Load() (*Config, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, "config.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the global config.
func Save(cfg *Config) error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// GetDeviceID returns the stable per-install device id, generating and
// persisting one on first use.
func GetDeviceID() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, "device_id")

	if data, err := os.ReadFile(path); err == nil && len(data) > 0 {
		return string(data), nil
	}

	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate device id: %w", err)
	}
	id := hex.EncodeToString(buf)

	if err := os.WriteFile(path, []byte(id), 0644); err != nil {
		return "", fmt.Errorf("persist device id: %w", err)
	}
	return id, nil
}
