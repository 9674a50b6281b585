// Copyright (c) 2025 Driftline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across the driftline client.
//
// # Key Functions
//
// String Utilities:
//   - TruncateRunes: UTF-8 safe string truncation with ellipsis
//   - TruncateWidth: terminal-column aware truncation (CJK safe)
//   - StringWidth: display-width helper for list layout
//
// File Operations:
//   - AtomicWriteFile: crash-safe file writing with fsync
//
// # Usage
//
//	// Truncate a message preview for the conversation list
//	preview := util.TruncateWidth(lastMessage, 40)
//
//	// Persist the session file atomically
//	err := util.AtomicWriteFile(path, data, 0600)
package util
