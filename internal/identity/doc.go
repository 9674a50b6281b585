// Copyright (c) 2025 Driftline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package identity manages the signed-in user: password and social sign-in
// flows, the directory entry written for each account, session persistence,
// and auth-state change notification.
//
// The Service is handed to views explicitly rather than held in a global,
// so tests can construct one against an httptest backend.
//
// # Key Types
//
//   - Service: the auth state machine; one per app
//   - backend.DeviceAuth (re-exposed via StartSocial): device-code state
//     rendered by the auth view during social sign-in
//
// # Usage
//
//	svc := identity.NewService(client, sessionPath)
//	unsubscribe := svc.Subscribe(func(u *model.User) { ... })
//	user, err := svc.SignInWithPassword(ctx, email, password)
package identity
