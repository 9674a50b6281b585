// Copyright (c) 2025 Driftline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session persists the signed-in account between runs.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/driftline/driftline-tui/internal/model"
	"github.com/driftline/driftline-tui/internal/util"
)

// ErrNoSession indicates no session file exists.
var ErrNoSession = errors.New("no saved session")

// Session is the persisted sign-in state for one account.
type Session struct {
	UID          string         `json:"uid"`
	Email        string         `json:"email"`
	DisplayName  string         `json:"displayName,omitempty"`
	PhotoURL     string         `json:"photoURL,omitempty"`
	Provider     model.Provider `json:"provider"`
	IDToken      string         `json:"idToken"`
	RefreshToken string         `json:"refreshToken,omitempty"`
	ExpiresAt    time.Time      `json:"expiresAt"`
	SavedAt      time.Time      `json:"savedAt"`
}

// Expired reports whether the stored id token has lapsed. Sessions without
// an expiry are treated as expired so a refresh is forced.
func (s *Session) Expired() bool {
	if s.ExpiresAt.IsZero() {
		return true
	}
	return time.Now().After(s.ExpiresAt)
}

// User returns the profile stored with the session.
func (s *Session) User() model.User {
	return model.User{
		UID:      s.UID,
		Name:     s.DisplayName,
		Email:    s.Email,
		PhotoURL: s.PhotoURL,
		Provider: s.Provider,
	}
}

// Load reads the session file at path.
// Returns ErrNoSession when the file does not exist.
func Load(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse session file: %w", err)
	}
	if s.UID == "" || s.IDToken == "" {
		return nil, fmt.Errorf("session file is incomplete")
	}
	return &s, nil
}

// Save writes the session file atomically. The file holds a bearer token,
// so it is written with 0600 permissions.
func Save(path string, s *Session) error {
	s.SavedAt = time.Now().UTC()
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// Clear removes the session file. Missing files are not an error.
func Clear(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}
