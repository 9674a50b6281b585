// Copyright (c) 2025 Driftline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Backend.BaseURL == "" {
		t.Error("default backend URL is empty")
	}
	if cfg.Backend.TimeoutSecs <= 0 {
		t.Error("default timeout must be positive")
	}
	if cfg.UI.Theme != "dark" {
		t.Errorf("default theme = %q, want dark", cfg.UI.Theme)
	}
	if !cfg.Cache.Enabled {
		t.Error("cache should be enabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config fails validation: %v", err)
	}
}

func TestLoadFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	content := `
version = "1"

[backend]
base_url = "http://localhost:9099"
timeout_secs = 5

[ui]
theme = "light"
show_timestamps = false
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.Backend.BaseURL != "http://localhost:9099" {
		t.Errorf("base_url = %q", cfg.Backend.BaseURL)
	}
	if cfg.Backend.TimeoutSecs != 5 {
		t.Errorf("timeout_secs = %d, want 5", cfg.Backend.TimeoutSecs)
	}
	if cfg.UI.Theme != "light" {
		t.Errorf("theme = %q, want light", cfg.UI.Theme)
	}
	if cfg.UI.ShowTimestamps {
		t.Error("show_timestamps should be false")
	}
	// Unset values are filled from defaults.
	if cfg.Backend.WatchRetrySecs <= 0 {
		t.Error("watch_retry_secs not defaulted")
	}
}

func TestLoadFromPathInvalidURL(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	content := `
[backend]
base_url = "notaurl"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	if _, err := LoadFromPath(path); err == nil {
		t.Error("expected invalid URL to be rejected")
	}
}

func TestValidateTheme(t *testing.T) {
	cfg := Default()
	cfg.UI.Theme = "solarized"
	if err := cfg.Validate(); err == nil {
		t.Error("expected unknown theme to be rejected")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DRIFTLINE_BACKEND_URL", "http://127.0.0.1:8100")
	t.Setenv("DRIFTLINE_TIMEOUT_SECS", "7")
	t.Setenv("DRIFTLINE_CACHE_DISABLED", "1")

	cfg := Default()
	cfg.applyEnvOverrides()

	if cfg.Backend.BaseURL != "http://127.0.0.1:8100" {
		t.Errorf("base_url = %q", cfg.Backend.BaseURL)
	}
	if cfg.Backend.TimeoutSecs != 7 {
		t.Errorf("timeout_secs = %d, want 7", cfg.Backend.TimeoutSecs)
	}
	if cfg.Cache.Enabled {
		t.Error("cache should be disabled by env override")
	}
}

func TestEnvOverrideIgnoresBadTimeout(t *testing.T) {
	t.Setenv("DRIFTLINE_TIMEOUT_SECS", "not-a-number")

	cfg := Default()
	want := cfg.Backend.TimeoutSecs
	cfg.applyEnvOverrides()

	if cfg.Backend.TimeoutSecs != want {
		t.Errorf("timeout_secs = %d, want unchanged %d", cfg.Backend.TimeoutSecs, want)
	}
}

func TestDurationHelpers(t *testing.T) {
	cfg := Default()
	cfg.Backend.TimeoutSecs = 12
	cfg.Backend.WatchRetrySecs = 4
	cfg.Auth.DevicePollSecs = 3

	if cfg.Timeout() != 12*time.Second {
		t.Errorf("Timeout() = %v", cfg.Timeout())
	}
	if cfg.WatchRetry() != 4*time.Second {
		t.Errorf("WatchRetry() = %v", cfg.WatchRetry())
	}
	if cfg.DevicePoll() != 3*time.Second {
		t.Errorf("DevicePoll() = %v", cfg.DevicePoll())
	}
}

func TestGlobalSingleton(t *testing.T) {
	ResetGlobalForTesting()
	defer ResetGlobalForTesting()

	custom := Default()
	custom.Backend.BaseURL = "http://localhost:1234"
	SetGlobal(custom)

	if got := Global(); got.Backend.BaseURL != "http://localhost:1234" {
		t.Errorf("Global().Backend.BaseURL = %q", got.Backend.BaseURL)
	}
}
