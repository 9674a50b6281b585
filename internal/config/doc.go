// Copyright (c) 2025 Driftline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for driftline.
//
// Configuration is read from ~/.driftline/config.toml (or the path named by
// DRIFTLINE_CONFIG), merged over built-in defaults, then overridden by
// DRIFTLINE_* environment variables. A thread-safe singleton exposes the
// loaded configuration to the rest of the application.
//
// # Key Types
//
//   - Config: the complete configuration tree
//   - BackendConfig: document backend endpoint and timeouts
//   - AuthConfig: session file location and device-flow polling
//   - CacheConfig: local sqlite read cache
//   - UIConfig: theme and chat display options
//
// # Usage
//
//	cfg := config.Global()
//	client := backend.NewClient().WithBaseURL(cfg.Backend.BaseURL)
package config
