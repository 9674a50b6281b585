// Copyright (c) 2025 Driftline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"sort"
	"strings"
	"time"
)

// MessageTypeText is the only message type this client writes. The field
// exists so richer kinds can be added without a schema change.
const MessageTypeText = "text"

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is a single entry under conversations/{id}/messages. Sender name
// and avatar are denormalized at send time so rendering needs no join.
type Message struct {
	ID           string    `json:"id"`
	Text         string    `json:"text"`
	SenderID     string    `json:"senderId"`
	SenderName   string    `json:"senderName"`
	SenderAvatar string    `json:"senderAvatar,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	Type         string    `json:"type"`
}

// NewMessage builds a text message from the sender's current profile.
// Leading and trailing whitespace is trimmed; callers must reject messages
// that trim to empty before constructing one.
func NewMessage(sender User, text string) Message {
	return Message{
		Text:         strings.TrimSpace(text),
		SenderID:     sender.UID,
		SenderName:   sender.DisplayName(),
		SenderAvatar: sender.PhotoURL,
		CreatedAt:    time.Now().UTC(),
		Type:         MessageTypeText,
	}
}

// IsMine reports whether the message was sent by the given uid.
func (m Message) IsMine(uid string) bool {
	return m.SenderID == uid
}

// Timestamp returns the clock-time label rendered next to a bubble.
func (m Message) Timestamp() string {
	return m.CreatedAt.Local().Format("15:04")
}

// Summary returns the last-message record derived from this message.
func (m Message) Summary() LastMessage {
	return LastMessage{
		Text:     m.Text,
		SenderID: m.SenderID,
		SentAt:   m.CreatedAt,
	}
}

// Validate checks the invariants a message document must satisfy.
func (m Message) Validate() error {
	if m.SenderID == "" {
		return &DecodeError{Kind: "message", Field: "senderId", Reason: "missing"}
	}
	if m.Text == "" {
		return &DecodeError{Kind: "message", Field: "text", Reason: "missing"}
	}
	if m.CreatedAt.IsZero() {
		return &DecodeError{Kind: "message", Field: "createdAt", Reason: "missing"}
	}
	return nil
}

// DecodeMessage validates a decoded message document, filling the ID from
// the document id and defaulting the type for legacy records.
func DecodeMessage(id string, m Message) (Message, error) {
	if m.ID == "" {
		m.ID = id
	}
	if m.Type == "" {
		m.Type = MessageTypeText
	}
	if err := m.Validate(); err != nil {
		return Message{}, err
	}
	return m, nil
}

// SortMessages orders messages oldest-first by creation time. The sort is
// stable so messages sharing a timestamp keep their arrival order.
func SortMessages(msgs []Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
}
