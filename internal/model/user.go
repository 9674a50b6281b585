// Copyright (c) 2025 Driftline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// PROVIDERS
// =============================================================================

// Provider identifies how an account authenticates.
type Provider string

const (
	ProviderPassword Provider = "password"
	ProviderGoogle   Provider = "google"
	ProviderGitHub   Provider = "github"
)

// Valid reports whether the provider is one this client knows about.
func (p Provider) Valid() bool {
	switch p {
	case ProviderPassword, ProviderGoogle, ProviderGitHub:
		return true
	}
	return false
}

// =============================================================================
// USER TYPE
// =============================================================================

// User is a directory entry stored under users/{uid}.
type User struct {
	UID       string    `json:"uid"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	PhotoURL  string    `json:"photoURL,omitempty"`
	Provider  Provider  `json:"provider"`
	CreatedAt time.Time `json:"createdAt"`
}

// DisplayName returns the name to show in the UI, falling back to the
// email's local part when the profile carries no name.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	if at := strings.IndexByte(u.Email, '@'); at > 0 {
		return u.Email[:at]
	}
	return u.Email
}

// Initial returns the single uppercase rune used for the avatar glyph.
func (u User) Initial() string {
	name := u.DisplayName()
	for _, r := range name {
		return strings.ToUpper(string(r))
	}
	return "?"
}

// Snapshot captures the profile fields embedded into a conversation at
// creation time. Snapshots are intentionally not refreshed afterwards.
func (u User) Snapshot() ParticipantSnapshot {
	return ParticipantSnapshot{
		UID:         u.UID,
		DisplayName: u.DisplayName(),
		PhotoURL:    u.PhotoURL,
	}
}

// Validate checks the invariants a directory entry must satisfy.
func (u User) Validate() error {
	if u.UID == "" {
		return &DecodeError{Kind: "user", Field: "uid", Reason: "missing"}
	}
	if u.Email == "" {
		return &DecodeError{Kind: "user", Field: "email", Reason: "missing"}
	}
	return nil
}

// DecodeUser validates a decoded user document, filling the UID from the
// document id when the payload omits it.
func DecodeUser(id string, u User) (User, error) {
	if u.UID == "" {
		u.UID = id
	}
	if u.Provider == "" {
		u.Provider = ProviderPassword
	}
	if err := u.Validate(); err != nil {
		return User{}, err
	}
	return u, nil
}

// =============================================================================
// DECODE ERRORS
// =============================================================================

// DecodeError reports a document that failed validation at the decode
// boundary. Callers can distinguish it from transport errors with errors.As.
type DecodeError struct {
	Kind   string // "user", "conversation", "message"
	Field  string
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("invalid %s document: field %q %s", e.Kind, e.Field, e.Reason)
}
