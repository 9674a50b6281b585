// Copyright (c) 2025 Driftline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for driftline.
//
// Supports TOML configuration with sensible defaults, environment variable
// overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - DRIFTLINE_CONFIG environment variable
//   - ~/.driftline/config.toml
//   - Built-in defaults
package config

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/driftline/driftline-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete driftline configuration.
type Config struct {
	Version string `toml:"version"`

	// Backend connection
	Backend BackendConfig `toml:"backend"`

	// Social sign-in providers
	Auth AuthConfig `toml:"auth"`

	// Local read cache
	Cache CacheConfig `toml:"cache"`

	// UI configuration
	UI UIConfig `toml:"ui"`
}

// BackendConfig contains the document backend connection settings.
type BackendConfig struct {
	// BaseURL is the backend API endpoint
	BaseURL string `toml:"base_url"`
	// TimeoutSecs is the per-request timeout for non-streaming calls
	TimeoutSecs int `toml:"timeout_secs"`
	// WatchRetrySecs is the delay before a dropped watch stream reconnects
	WatchRetrySecs int `toml:"watch_retry_secs"`
}

// AuthConfig contains authentication settings.
type AuthConfig struct {
	// SessionPath overrides the persisted session file location
	// (empty = ~/.driftline/session.json)
	SessionPath string `toml:"session_path"`
	// DevicePollSecs is the polling interval during device-code sign-in
	DevicePollSecs int `toml:"device_poll_secs"`
}

// CacheConfig contains the local sqlite read-cache settings.
type CacheConfig struct {
	// Enabled toggles the offline read cache
	Enabled bool `toml:"enabled"`
	// Path overrides the cache database location (empty = ~/.driftline/cache.db)
	Path string `toml:"path"`
}

// UIConfig contains UI display settings.
type UIConfig struct {
	// Theme selects the color theme: "dark" or "light"
	Theme string `toml:"theme"`
	// ShowTimestamps toggles per-message clock times in the chat view
	ShowTimestamps bool `toml:"show_timestamps"`
	// DirectoryPageSize caps how many directory entries render per page
	DirectoryPageSize int `toml:"directory_page_size"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the built-in default configuration.
func Default() *Config {
	return &Config{
		Version: "1",
		Backend: BackendConfig{
			BaseURL:        "https://api.driftline.app",
			TimeoutSecs:    30,
			WatchRetrySecs: 3,
		},
		Auth: AuthConfig{
			DevicePollSecs: 2,
		},
		Cache: CacheConfig{
			Enabled: true,
		},
		UI: UIConfig{
			Theme:             "dark",
			ShowTimestamps:    true,
			DirectoryPageSize: 50,
		},
	}
}

// =============================================================================
// PATHS
// =============================================================================

// Dir returns the driftline configuration directory (~/.driftline),
// creating it if needed.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".driftline")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return dir, nil
}

// Path returns the config file path, honoring the DRIFTLINE_CONFIG override.
func Path() (string, error) {
	if p := os.Getenv("DRIFTLINE_CONFIG"); p != "" {
		return p, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// SessionPath returns the persisted session file location.
func (c *Config) SessionPath() (string, error) {
	if c.Auth.SessionPath != "" {
		return c.Auth.SessionPath, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "session.json"), nil
}

// CachePath returns the sqlite read-cache location.
func (c *Config) CachePath() (string, error) {
	if c.Cache.Path != "" {
		return c.Cache.Path, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "cache.db"), nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file, falling back to defaults
// when no file exists. Environment overrides are applied last.
func Load() (*Config, error) {
	path, err := Path()
	if err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return LoadFromPath(path)
		}
	}

	cfg := Default()
	cfg.applyEnvOverrides()
	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file with full validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config file %s: %w", path, err)
	}
	cfg.applyEnvOverrides()
	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides applies DRIFTLINE_* environment variables on top of the
// loaded file. Only connection-level settings are overridable this way.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("DRIFTLINE_BACKEND_URL"); v != "" {
		c.Backend.BaseURL = v
	}
	if v := os.Getenv("DRIFTLINE_TIMEOUT_SECS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			c.Backend.TimeoutSecs = secs
		}
	}
	if v := os.Getenv("DRIFTLINE_CACHE_DISABLED"); v == "1" || v == "true" {
		c.Cache.Enabled = false
	}
}

// fillDefaults fills in any missing values with defaults.
func (c *Config) fillDefaults() {
	d := Default()
	if c.Version == "" {
		c.Version = d.Version
	}
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = d.Backend.BaseURL
	}
	if c.Backend.TimeoutSecs <= 0 {
		c.Backend.TimeoutSecs = d.Backend.TimeoutSecs
	}
	if c.Backend.WatchRetrySecs <= 0 {
		c.Backend.WatchRetrySecs = d.Backend.WatchRetrySecs
	}
	if c.Auth.DevicePollSecs <= 0 {
		c.Auth.DevicePollSecs = d.Auth.DevicePollSecs
	}
	if c.UI.Theme == "" {
		c.UI.Theme = d.UI.Theme
	}
	if c.UI.DirectoryPageSize <= 0 {
		c.UI.DirectoryPageSize = d.UI.DirectoryPageSize
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("backend.base_url %q is not a valid URL", c.Backend.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("backend.base_url scheme %q must be http or https", u.Scheme)
	}
	if c.UI.Theme != "dark" && c.UI.Theme != "light" {
		return fmt.Errorf("ui.theme %q must be \"dark\" or \"light\"", c.UI.Theme)
	}
	return nil
}

// Timeout returns the request timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Backend.TimeoutSecs) * time.Second
}

// WatchRetry returns the watch reconnect delay as a duration.
func (c *Config) WatchRetry() time.Duration {
	return time.Duration(c.Backend.WatchRetrySecs) * time.Second
}

// DevicePoll returns the device-flow polling interval as a duration.
func (c *Config) DevicePoll() time.Duration {
	return time.Duration(c.Auth.DevicePollSecs) * time.Second
}

// Save writes the configuration to the config file atomically.
func (c *Config) Save() error {
	path, err := Path()
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig   *Config
	globalConfigMu sync.Mutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	if globalConfig == nil {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
		}
		globalConfig = cfg
	}
	return globalConfig
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state between test runs.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
}
