// Copyright (c) 2025 Driftline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/driftline/driftline-tui/internal/backend"
	"github.com/driftline/driftline-tui/internal/model"
	"github.com/driftline/driftline-tui/internal/session"
)

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 6

// Validation errors raised before any request is made.
var (
	ErrMissingFields    = errors.New("missing required fields")
	ErrInvalidEmail     = errors.New("invalid email address")
	ErrPasswordTooShort = errors.New("password too short")
)

// Listener is called on every auth state change. The user is nil after
// sign-out.
type Listener func(user *model.User)

// =============================================================================
// SERVICE
// =============================================================================

// Service owns the signed-in user and every way of changing it. Views hold
// a *Service and subscribe to state changes instead of polling.
type Service struct {
	client      *backend.Client
	sessionPath string

	mu      sync.RWMutex
	current *model.User
	subs    map[int]Listener
	nextSub int
}

// NewService creates an identity service backed by the given client.
// sessionPath is where the sign-in session is persisted between runs.
func NewService(client *backend.Client, sessionPath string) *Service {
	return &Service{
		client:      client,
		sessionPath: sessionPath,
		subs:        make(map[int]Listener),
	}
}

// Restore loads a persisted session and signs the user back in without
// prompting. Expired tokens are refreshed when a refresh token is present.
// Returns false when no usable session exists.
func (s *Service) Restore(ctx context.Context) (bool, error) {
	sess, err := session.Load(s.sessionPath)
	if err != nil {
		if errors.Is(err, session.ErrNoSession) {
			return false, nil
		}
		return false, err
	}

	if sess.Expired() {
		if sess.RefreshToken == "" {
			return false, nil
		}
		res, err := s.client.RefreshToken(ctx, sess.RefreshToken)
		if err != nil {
			// A dead refresh token just means signing in again.
			return false, nil
		}
		sess.IDToken = res.IDToken
		if res.RefreshToken != "" {
			sess.RefreshToken = res.RefreshToken
		}
		sess.ExpiresAt = expiryOf(res)
		if err := session.Save(s.sessionPath, sess); err != nil {
			return false, err
		}
	}

	s.client.SetToken(sess.IDToken)
	user := sess.User()
	s.setCurrent(&user)
	return true, nil
}

// CurrentUser returns the signed-in user, or nil.
func (s *Service) CurrentUser() *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	u := *s.current
	return &u
}

// Subscribe registers a listener for auth state changes. The listener is
// invoked immediately with the current state, then on every change. The
// returned function unsubscribes.
func (s *Service) Subscribe(fn Listener) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	current := s.current
	s.mu.Unlock()

	fn(copyUser(current))

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// setCurrent swaps the signed-in user and notifies subscribers.
// Listeners run outside the lock.
func (s *Service) setCurrent(user *model.User) {
	s.mu.Lock()
	s.current = user
	listeners := make([]Listener, 0, len(s.subs))
	for _, fn := range s.subs {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(copyUser(user))
	}
}

func copyUser(u *model.User) *model.User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

// =============================================================================
// PASSWORD FLOWS
// =============================================================================

// SignUpWithPassword creates a password account, names it, and writes its
// directory entry. The account exists even if a later step fails; the
// directory entry is backfilled on the next sign-in.
func (s *Service) SignUpWithPassword(ctx context.Context, name, email, password string) (*model.User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" || email == "" || password == "" {
		return nil, ErrMissingFields
	}
	if !strings.Contains(email, "@") {
		return nil, ErrInvalidEmail
	}
	if len(password) < MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	res, err := s.client.SignUp(ctx, email, password)
	if err != nil {
		return nil, err
	}
	s.client.SetToken(res.IDToken)

	if err := s.client.UpdateProfile(ctx, name, ""); err != nil {
		return nil, fmt.Errorf("failed to set display name: %w", err)
	}

	user := model.User{
		UID:       res.UID,
		Name:      name,
		Email:     res.Email,
		Provider:  model.ProviderPassword,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.client.SetDocument(ctx, "users", user.UID, user); err != nil {
		return nil, fmt.Errorf("failed to write directory entry: %w", err)
	}

	if err := s.persist(res, user); err != nil {
		return nil, err
	}
	s.setCurrent(&user)
	return &user, nil
}

// SignInWithPassword signs into an existing password account and backfills
// its directory entry.
func (s *Service) SignInWithPassword(ctx context.Context, email, password string) (*model.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrMissingFields
	}

	res, err := s.client.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}
	s.client.SetToken(res.IDToken)

	user, err := s.ensureDirectoryEntry(ctx, res, model.ProviderPassword)
	if err != nil {
		return nil, err
	}

	if err := s.persist(res, *user); err != nil {
		return nil, err
	}
	s.setCurrent(user)
	return user, nil
}

// =============================================================================
// SOCIAL FLOWS
// =============================================================================

// StartSocial begins a device-code sign-in with the given provider. The
// returned DeviceAuth carries the verification URL and user code for the
// auth view to display; pass it to CompleteSocial to finish.
func (s *Service) StartSocial(ctx context.Context, provider model.Provider) (*backend.DeviceAuth, error) {
	if provider != model.ProviderGoogle && provider != model.ProviderGitHub {
		return nil, fmt.Errorf("unsupported social provider %q", provider)
	}
	return s.client.StartDeviceFlow(ctx, string(provider))
}

// CompleteSocial polls the device grant until approved, then signs in and
// backfills the directory entry. GitHub grants can omit the profile email;
// the token response's email field covers that case.
func (s *Service) CompleteSocial(ctx context.Context, provider model.Provider, auth *backend.DeviceAuth, pollInterval time.Duration) (*model.User, error) {
	res, err := s.client.WaitForDeviceToken(ctx, auth, pollInterval)
	if err != nil {
		return nil, err
	}
	s.client.SetToken(res.IDToken)

	user, err := s.ensureDirectoryEntry(ctx, res, provider)
	if err != nil {
		return nil, err
	}

	if err := s.persist(res, *user); err != nil {
		return nil, err
	}
	s.setCurrent(user)
	return user, nil
}

// ensureDirectoryEntry merges the account's profile into users/{uid} so the
// directory stays current across providers and renames.
func (s *Service) ensureDirectoryEntry(ctx context.Context, res *backend.AuthResult, provider model.Provider) (*model.User, error) {
	user := model.User{
		UID:      res.UID,
		Name:     res.DisplayName,
		Email:    res.Email,
		PhotoURL: res.PhotoURL,
		Provider: provider,
	}

	// Merge keeps createdAt and any fields other providers wrote.
	entry := map[string]any{
		"uid":      user.UID,
		"email":    user.Email,
		"provider": string(provider),
	}
	if user.Name != "" {
		entry["name"] = user.Name
	}
	if user.PhotoURL != "" {
		entry["photoURL"] = user.PhotoURL
	}
	if err := s.client.MergeDocument(ctx, "users", user.UID, entry); err != nil {
		return nil, fmt.Errorf("failed to update directory entry: %w", err)
	}

	// Read back the merged entry so the session carries the full profile.
	var stored model.User
	if err := s.client.GetDocument(ctx, "users", user.UID, &stored); err == nil {
		if decoded, derr := model.DecodeUser(user.UID, stored); derr == nil {
			return &decoded, nil
		}
	}
	return &user, nil
}

// persist writes the session file for the signed-in account.
func (s *Service) persist(res *backend.AuthResult, user model.User) error {
	sess := &session.Session{
		UID:          user.UID,
		Email:        user.Email,
		DisplayName:  user.Name,
		PhotoURL:     user.PhotoURL,
		Provider:     user.Provider,
		IDToken:      res.IDToken,
		RefreshToken: res.RefreshToken,
		ExpiresAt:    expiryOf(res),
	}
	if err := session.Save(s.sessionPath, sess); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}
	return nil
}

// expiryOf derives the token expiry, preferring the explicit expiresIn and
// falling back to the token's own exp claim.
func expiryOf(res *backend.AuthResult) time.Time {
	if res.ExpiresInSec > 0 {
		return time.Now().Add(time.Duration(res.ExpiresInSec) * time.Second)
	}
	if claims, err := ParseToken(res.IDToken); err == nil && !claims.ExpiresAt.IsZero() {
		return claims.ExpiresAt
	}
	return time.Time{}
}

// =============================================================================
// SIGN OUT
// =============================================================================

// SignOut clears the token, removes the session file, and notifies
// subscribers with a nil user.
func (s *Service) SignOut() error {
	s.client.SetToken("")
	err := session.Clear(s.sessionPath)
	s.setCurrent(nil)
	return err
}
