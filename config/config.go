// Package config implements the CLI surface, environment/provider routing,
// and persisted state of spec.md §6: flag parsing, config-file load/save
// with atomic replace, and interactive-mode command history.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config is the persisted CLI configuration, loaded from
// `<XDG_CONFIG_HOME or ~/.config>/browser-use/config.json` (spec.md §6).
type Config struct {
	Provider         string   `json:"provider,omitempty"`
	Model            string   `json:"model,omitempty"`
	Headless         bool     `json:"headless,omitempty"`
	WindowWidth      int      `json:"window_width,omitempty"`
	WindowHeight     int      `json:"window_height,omitempty"`
	UserDataDir      string   `json:"user_data_dir,omitempty"`
	ProfileDirectory string   `json:"profile_directory,omitempty"`
	AllowedDomains   []string `json:"allowed_domains,omitempty"`
	ProxyURL         string   `json:"proxy_url,omitempty"`
	NoProxy          []string `json:"no_proxy,omitempty"`
	ProxyUsername    string   `json:"proxy_username,omitempty"`
	ProxyPassword    string   `json:"proxy_password,omitempty"`
	AllowInsecure    bool     `json:"allow_insecure,omitempty"`
	CDPURL           string   `json:"cdp_url,omitempty"`
}

func (c *Config) applyDefaults() {
	if c.WindowWidth <= 0 {
		c.WindowWidth = 1280
	}
	if c.WindowHeight <= 0 {
		c.WindowHeight = 1100
	}
}

// Dir returns the config directory: BROWSER_USE_CONFIG_DIR, else
// `<XDG_CONFIG_HOME or ~/.config>/browser-use` (spec.md §6).
func Dir() string {
	if d := os.Getenv("BROWSER_USE_CONFIG_DIR"); d != "" {
		return d
	}
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			base = filepath.Join(home, ".config")
		}
	}
	return filepath.Join(base, "browser-use")
}

func filePath() string { return filepath.Join(Dir(), "config.json") }

// Load reads the persisted config; an invalid file is backed up to
// `*.backup.<ts>` and replaced with defaults, per spec.md §6 "Persisted
// state". A missing file returns defaults without error.
func Load() (*Config, error) {
	path := filePath()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		cfg := &Config{}
		cfg.applyDefaults()
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		backup := fmt.Sprintf("%s.backup.%d", path, time.Now().Unix())
		_ = os.Rename(path, backup)
		cfg = Config{}
		cfg.applyDefaults()
		return &cfg, nil
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Save atomically writes cfg to disk: write `<path>.tmp`, rename any
// existing file to `<path>.bak`, then rename tmp into place (spec.md §6
// "storage-state JSON at a configured path, atomically replaced").
func Save(cfg *Config) error {
	dir := Dir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("config: mkdir: %w", err)
	}
	path := filePath()
	tmp := path + ".tmp"

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("config: write tmp: %w", err)
	}
	if _, err := os.Stat(path); err == nil {
		if err := os.Rename(path, path+".bak"); err != nil {
			return fmt.Errorf("config: backup existing: %w", err)
		}
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("config: rename tmp: %w", err)
	}
	return nil
}
