// Copyright (c) 2025 Driftline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend implements the HTTP client for the driftline document
// backend: authentication, document reads and writes, atomic commits, and
// live watch streams over Server-Sent Events.
//
// # Key Types
//
//   - Client: the authenticated API client
//   - APIError: typed error carrying the backend's error code
//   - Document: a raw document envelope (id + JSON fields)
//   - Write: one entry in an atomic commit batch
//   - DeviceAuth: state for the device-code social sign-in flow
//
// # Usage
//
//	client := backend.NewClient().WithBaseURL(cfg.Backend.BaseURL)
//	res, err := client.SignInWithPassword(ctx, email, password)
//	if err != nil { ... }
//	client.SetToken(res.IDToken)
//
//	var user model.User
//	err = client.GetDocument(ctx, "users", uid, &user)
package backend
