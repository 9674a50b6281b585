// Copyright (c) 2025 Driftline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package directory serves the user list: loading the directory, searching
// it, and opening (or lazily creating) the conversation with a chosen user.
package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/driftline/driftline-tui/internal/backend"
	"github.com/driftline/driftline-tui/internal/model"
)

// Service reads the user directory and opens conversations.
type Service struct {
	client *backend.Client
	coll   *collate.Collator
}

// NewService creates a directory service. Sorting ties are broken with a
// locale-aware collator so accented names land where a reader expects.
func NewService(client *backend.Client) *Service {
	return &Service{
		client: client,
		coll:   collate.New(language.English, collate.IgnoreCase),
	}
}

// ListUsers fetches every directory entry. Entries that fail validation are
// dropped rather than failing the whole listing.
func (s *Service) ListUsers(ctx context.Context) ([]model.User, error) {
	docs, err := s.client.ListDocuments(ctx, "users", backend.ListOptions{OrderBy: "name"})
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	users := make([]model.User, 0, len(docs))
	for _, doc := range docs {
		var raw model.User
		if err := doc.Decode(&raw); err != nil {
			continue
		}
		user, err := model.DecodeUser(doc.ID, raw)
		if err != nil {
			continue
		}
		users = append(users, user)
	}

	s.sortUsers(users)
	return users, nil
}

// sortUsers orders the directory by display name using the collator.
func (s *Service) sortUsers(users []model.User) {
	s.coll.Sort(byDisplayName(users))
}

// byDisplayName adapts a user slice to the collator's sort interface.
type byDisplayName []model.User

func (u byDisplayName) Len() int      { return len(u) }
func (u byDisplayName) Swap(i, j int) { u[i], u[j] = u[j], u[i] }
func (u byDisplayName) Bytes(i int) []byte {
	return []byte(u[i].DisplayName())
}

// Filter returns the directory entries matching query, excluding selfUID.
// Matching is a case-insensitive substring test against name and email.
// Name matches rank above email-only matches; within a rank the input
// order (collated) is preserved.
func Filter(users []model.User, query, selfUID string) []model.User {
	query = strings.ToLower(strings.TrimSpace(query))

	var nameMatches, emailMatches []model.User
	for _, u := range users {
		if u.UID == selfUID {
			continue
		}
		if query == "" {
			nameMatches = append(nameMatches, u)
			continue
		}
		name := strings.ToLower(u.DisplayName())
		email := strings.ToLower(u.Email)
		switch {
		case strings.Contains(name, query):
			nameMatches = append(nameMatches, u)
		case strings.Contains(email, query):
			emailMatches = append(emailMatches, u)
		}
	}

	return append(nameMatches, emailMatches...)
}

// OpenOrCreate returns the conversation between me and other, creating it
// with participant snapshots on first contact. The second return reports
// whether a new conversation was created.
//
// The conversation id is derived, so concurrent first messages from both
// sides land on the same document; the create is a no-op race where last
// write wins with identical content.
func (s *Service) OpenOrCreate(ctx context.Context, me, other model.User) (model.Conversation, bool, error) {
	id := model.ConversationID(me.UID, other.UID)

	var raw model.Conversation
	err := s.client.GetDocument(ctx, "conversations", id, &raw)
	if err == nil {
		conv, derr := model.DecodeConversation(id, raw)
		if derr != nil {
			return model.Conversation{}, false, derr
		}
		return conv, false, nil
	}
	if !errors.Is(err, backend.ErrNotFound) {
		return model.Conversation{}, false, err
	}

	conv := model.NewConversation(me, other)
	if err := s.client.SetDocument(ctx, "conversations", conv.ID, conv); err != nil {
		return model.Conversation{}, false, fmt.Errorf("failed to create conversation: %w", err)
	}
	return conv, true, nil
}
