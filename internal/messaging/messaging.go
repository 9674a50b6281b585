// Copyright (c) 2025 Driftline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package messaging implements conversation access: loading a thread,
// subscribing to its live message stream, and sending.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/driftline/driftline-tui/internal/backend"
	"github.com/driftline/driftline-tui/internal/model"
)

// ErrConversationNotFound indicates the requested thread does not exist.
// The UI reacts by showing an error toast and returning home.
var ErrConversationNotFound = errors.New("conversation not found")

// Service reads and writes conversation threads.
type Service struct {
	client *backend.Client
}

// NewService creates a messaging service backed by the given client.
func NewService(client *backend.Client) *Service {
	return &Service{client: client}
}

// messagesPath returns the collection path for a conversation's messages.
func messagesPath(convID string) string {
	return "conversations/" + convID + "/messages"
}

// =============================================================================
// LOADING
// =============================================================================

// Load fetches a conversation by id. Missing conversations fail with
// ErrConversationNotFound.
func (s *Service) Load(ctx context.Context, convID string) (model.Conversation, error) {
	var raw model.Conversation
	err := s.client.GetDocument(ctx, "conversations", convID, &raw)
	if err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			return model.Conversation{}, fmt.Errorf("%w: %s", ErrConversationNotFound, convID)
		}
		return model.Conversation{}, err
	}
	return model.DecodeConversation(convID, raw)
}

// ListConversations fetches the conversations uid participates in, most
// recently updated first.
func (s *Service) ListConversations(ctx context.Context, uid string) ([]model.Conversation, error) {
	docs, err := s.client.ListDocuments(ctx, "conversations", backend.ListOptions{
		OrderBy:    "lastUpdated",
		Descending: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	convs := make([]model.Conversation, 0, len(docs))
	for _, doc := range docs {
		var raw model.Conversation
		if err := doc.Decode(&raw); err != nil {
			continue
		}
		conv, err := model.DecodeConversation(doc.ID, raw)
		if err != nil {
			continue
		}
		if conv.HasParticipant(uid) {
			convs = append(convs, conv)
		}
	}
	return convs, nil
}

// =============================================================================
// LIVE MESSAGES
// =============================================================================

// Subscribe watches a conversation's messages and invokes callback with
// the full ordered message list on every change, starting with the current
// state. Blocks until ctx is cancelled or the watch fails fatally; dropped
// connections reconnect after retryDelay.
//
// Messages are requested ordered by createdAt ascending and re-sorted
// locally, so ordering holds even if the server ignores the hint.
func (s *Service) Subscribe(ctx context.Context, convID string, retryDelay time.Duration, callback func(msgs []model.Message)) error {
	opts := backend.ListOptions{OrderBy: "createdAt"}
	return s.client.WatchWithRetry(ctx, messagesPath(convID), opts, retryDelay, func(snap backend.Snapshot) {
		msgs := make([]model.Message, 0, len(snap.Documents))
		for _, doc := range snap.Documents {
			var raw model.Message
			if err := doc.Decode(&raw); err != nil {
				continue
			}
			msg, err := model.DecodeMessage(doc.ID, raw)
			if err != nil {
				continue
			}
			msgs = append(msgs, msg)
		}
		model.SortMessages(msgs)
		callback(msgs)
	})
}

// =============================================================================
// SENDING
// =============================================================================

// Send appends a message and updates the conversation's last-message
// summary in a single atomic commit, so the thread and its preview can
// never disagree. Messages that trim to empty are a silent no-op.
func (s *Service) Send(ctx context.Context, conv model.Conversation, sender model.User, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	msg := model.NewMessage(sender, text)
	summary := msg.Summary()

	writes := []backend.Write{
		{
			Path: messagesPath(conv.ID),
			Data: msg,
		},
		{
			Path:  "conversations",
			ID:    conv.ID,
			Merge: true,
			Data: map[string]any{
				"lastMessage": summary,
				"lastUpdated": msg.CreatedAt,
			},
		},
	}

	if err := s.client.Commit(ctx, writes); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}
