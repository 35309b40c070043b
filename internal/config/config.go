package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Config represents the user's configuration
type Config struct {
	APIBaseURL string `json:"api_base_url"`
	UserID     string `json:"user_id"`
	TripID     string `json:"trip_id,omitempty"`
	Language   string `json:"language,omitempty"` // "en" or "zh"

	// RequestTimeoutSeconds bounds the routing-service call. 0 keeps the
	// original unbounded behavior.
	RequestTimeoutSeconds int `json:"request_timeout_seconds,omitempty"`

	Typewriter TypewriterConfig `json:"typewriter"`
	GapPanel   GapPanelConfig   `json:"gap_panel"`
}

// TypewriterConfig tunes the progressive answer reveal
type TypewriterConfig struct {
	Enabled bool `json:"enabled"`
}

// GapPanelConfig seeds the gap panel's display preferences
type GapPanelConfig struct {
	Collapsed        bool     `json:"collapsed,omitempty"`
	ShowOnlyCritical bool     `json:"show_only_critical,omitempty"`
	FilterTypes      []string `json:"filter_types,omitempty"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		APIBaseURL: "http://localhost:8787/api",
		Language:   "en",
		Typewriter: TypewriterConfig{Enabled: true},
	}
}

// globalConfigDir returns the global config directory path (~/.tripdeck)
func globalConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".tripdeck"), nil
}

// globalConfigPath returns the global config file path (~/.tripdeck/config.json)
func globalConfigPath() (string, error) {
	dir, err := globalConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// projectConfigPath returns the project-level config path (.tripdeck/config.json in cwd)
func projectConfigPath() string {
	return filepath.Join(".tripdeck", "config.json")
}

// Exists checks if a config file exists (project or global)
func Exists() bool {
	if _, err := os.Stat(projectConfigPath()); err == nil {
		return true
	}
	path, err := globalConfigPath()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// Load reads the config from disk, checking project config first, then global
func Load() (*Config, error) {
	projectPath := projectConfigPath()
	if data, err := os.ReadFile(projectPath); err == nil {
		var cfg Config
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
		return &cfg, nil
	}

	globalPath, err := globalConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(globalPath)
	if err != nil {
		if os.IsNotExist(err) {
			// No config exists, return default (don't auto-create)
			return DefaultConfig(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadFrom reads the config from an explicit path, bypassing the
// project/global lookup order.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the config to both project and global locations
func Save(cfg *Config) error {
	if err := SaveToProject(cfg); err != nil {
		// If project save fails (e.g., no write permission), continue to global
		_ = err
	}
	return SaveToGlobal(cfg)
}

// SaveToProject writes the config to the project-level location (.tripdeck/config.json)
func SaveToProject(cfg *Config) error {
	dir := ".tripdeck"
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(projectConfigPath(), data, 0644)
}

// SaveToGlobal writes the config to the global location (~/.tripdeck/config.json)
func SaveToGlobal(cfg *Config) error {
	dir, err := globalConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	path, err := globalConfigPath()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
