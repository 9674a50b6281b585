// Copyright (c) 2025 Driftline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// =============================================================================
// AUTH TYPES
// =============================================================================

// AuthResult is the token grant returned by every sign-in path.
type AuthResult struct {
	UID          string `json:"uid"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName,omitempty"`
	PhotoURL     string `json:"photoURL,omitempty"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	ExpiresInSec int    `json:"expiresIn,omitempty"`
}

// DeviceAuth holds the state for a device-code social sign-in. The user
// opens VerificationURL in a browser and enters UserCode; the client polls
// with DeviceCode until the grant is approved.
type DeviceAuth struct {
	DeviceCode      string `json:"deviceCode"`
	UserCode        string `json:"userCode"`
	VerificationURL string `json:"verificationUrl"`
	IntervalSec     int    `json:"interval"`
	ExpiresInSec    int    `json:"expiresIn"`
}

// signUpRequest is the payload for password account creation.
type signUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// signInRequest is the payload for password sign-in.
type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// updateProfileRequest is the payload for profile updates on the current
// account. Empty fields are left unchanged by the server.
type updateProfileRequest struct {
	DisplayName string `json:"displayName,omitempty"`
	PhotoURL    string `json:"photoURL,omitempty"`
}

// deviceStartRequest names the social provider for a device-code flow.
type deviceStartRequest struct {
	Provider string `json:"provider"`
}

// deviceTokenRequest polls a pending device-code grant.
type deviceTokenRequest struct {
	DeviceCode string `json:"deviceCode"`
}

// refreshRequest exchanges a refresh token for a fresh id token.
type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// =============================================================================
// PASSWORD AUTH
// =============================================================================

// SignUp creates a password account and returns its first token grant.
// The backend rejects duplicate emails with CodeEmailExists.
func (c *Client) SignUp(ctx context.Context, email, password string) (*AuthResult, error) {
	var res AuthResult
	err := c.doJSON(ctx, http.MethodPost, "/v1/auth:signUp", signUpRequest{
		Email:    email,
		Password: password,
	}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// SignInWithPassword signs into an existing password account.
// Unknown emails fail with CodeEmailNotFound, bad passwords with
// CodeInvalidPassword.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*AuthResult, error) {
	var res AuthResult
	err := c.doJSON(ctx, http.MethodPost, "/v1/auth:signInWithPassword", signInRequest{
		Email:    email,
		Password: password,
	}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// UpdateProfile updates the display name and/or photo URL on the account
// the current token belongs to.
func (c *Client) UpdateProfile(ctx context.Context, displayName, photoURL string) error {
	if !c.IsAuthenticated() {
		return ErrNotAuthenticated
	}
	return c.doJSON(ctx, http.MethodPost, "/v1/auth:update", updateProfileRequest{
		DisplayName: displayName,
		PhotoURL:    photoURL,
	}, nil)
}

// RefreshToken exchanges a refresh token for a fresh grant.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*AuthResult, error) {
	var res AuthResult
	err := c.doJSON(ctx, http.MethodPost, "/v1/auth:refresh", refreshRequest{
		RefreshToken: refreshToken,
	}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// =============================================================================
// DEVICE-CODE SOCIAL AUTH
// =============================================================================

// StartDeviceFlow begins a device-code sign-in with the named social
// provider ("google" or "github").
func (c *Client) StartDeviceFlow(ctx context.Context, provider string) (*DeviceAuth, error) {
	var res DeviceAuth
	err := c.doJSON(ctx, http.MethodPost, "/v1/auth/device", deviceStartRequest{
		Provider: provider,
	}, &res)
	if err != nil {
		return nil, err
	}
	if res.IntervalSec <= 0 {
		res.IntervalSec = 2
	}
	return &res, nil
}

// PollDeviceToken checks a pending device-code grant once. Returns
// ErrDevicePending while the user has not approved, ErrDeviceExpired when
// the code lapsed, and the token grant once approved. Grants for a social
// account whose email is already registered under a different provider
// fail with CodeCredentialConflict.
func (c *Client) PollDeviceToken(ctx context.Context, deviceCode string) (*AuthResult, error) {
	var res AuthResult
	err := c.doJSON(ctx, http.MethodPost, "/v1/auth/device:token", deviceTokenRequest{
		DeviceCode: deviceCode,
	}, &res)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			switch apiErr.Code {
			case CodeAuthPending:
				return nil, ErrDevicePending
			case CodeDeviceExpired:
				return nil, ErrDeviceExpired
			}
		}
		return nil, err
	}
	return &res, nil
}

// WaitForDeviceToken polls until the device grant resolves, the code
// expires, or the context is cancelled.
func (c *Client) WaitForDeviceToken(ctx context.Context, auth *DeviceAuth, pollInterval time.Duration) (*AuthResult, error) {
	if pollInterval <= 0 {
		pollInterval = time.Duration(auth.IntervalSec) * time.Second
	}

	deadline := time.Now().Add(time.Duration(auth.ExpiresInSec) * time.Second)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		if auth.ExpiresInSec > 0 && time.Now().After(deadline) {
			return nil, ErrDeviceExpired
		}

		res, err := c.PollDeviceToken(ctx, auth.DeviceCode)
		if err != nil {
			if errors.Is(err, ErrDevicePending) {
				continue
			}
			return nil, fmt.Errorf("device sign-in failed: %w", err)
		}
		return res, nil
	}
}
