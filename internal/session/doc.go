// Copyright (c) 2025 Driftline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session persists the signed-in account between runs.
//
// The session file (~/.driftline/session.json) holds the token grant and
// profile of the last signed-in user. It is written atomically with 0600
// permissions and removed on sign-out.
//
// # Usage
//
//	sess, err := session.Load(path)
//	if err == nil && !sess.Expired() {
//	    client.SetToken(sess.IDToken)
//	}
package session
