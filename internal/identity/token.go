// Copyright (c) 2025 Driftline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package identity

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims are the identity fields carried in a backend id token.
type TokenClaims struct {
	UID       string
	Email     string
	ExpiresAt time.Time
}

// ParseToken extracts the claims from an id token WITHOUT verifying its
// signature. The token came over TLS from the backend we authenticate
// against; verification is the server's job. The claims are used locally to
// learn the uid and token expiry.
func ParseToken(idToken string) (*TokenClaims, error) {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(idToken, claims); err != nil {
		return nil, fmt.Errorf("failed to parse id token: %w", err)
	}

	out := &TokenClaims{}
	if sub, err := claims.GetSubject(); err == nil {
		out.UID = sub
	}
	if email, ok := claims["email"].(string); ok {
		out.Email = email
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}

	if out.UID == "" {
		return nil, fmt.Errorf("id token carries no subject")
	}
	return out, nil
}
