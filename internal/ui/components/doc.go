// Copyright (c) 2025 Driftline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package components provides reusable UI components for the driftline TUI.

Components are built on Bubble Tea and Lip Gloss and shared by the auth,
home, and chat views.

# Core Components

Header (header.go) - Application header with branding and the signed-in user.
Toast (toast.go) - Non-blocking corner notifications that auto-dismiss.

# Key Types

  - Header: title bar rendered at the top of every view
  - Toast / ToastManager: stacked notifications with per-kind duration
  - ToastTickMsg: periodic Bubble Tea message driving toast expiry
*/
package components
