// Copyright (c) 2025 Driftline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for users, conversations and messages.
package model

import (
	"sort"
	"time"
)

// =============================================================================
// CONVERSATION ID
// =============================================================================

// ConversationID derives the canonical id for the thread between two users.
// The two uids are sorted lexicographically and joined with "_", so the
// derivation is commutative: both participants compute the same id.
func ConversationID(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "_" + b
}

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// ParticipantSnapshot is the denormalized profile copy stored on a
// conversation so the list view renders without a directory lookup.
type ParticipantSnapshot struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL,omitempty"`
}

// LastMessage is the summary of the most recent message in a conversation,
// maintained alongside the message append on every send.
type LastMessage struct {
	Text     string    `json:"text"`
	SenderID string    `json:"senderId"`
	SentAt   time.Time `json:"sentAt"`
}

// Conversation is a two-person thread stored under conversations/{id}.
type Conversation struct {
	ID               string                `json:"id"`
	Participants     []string              `json:"participants"`
	ParticipantsData []ParticipantSnapshot `json:"participantsData"`
	CreatedAt        time.Time             `json:"createdAt"`
	LastMessage      *LastMessage          `json:"lastMessage,omitempty"`
	LastUpdated      time.Time             `json:"lastUpdated"`
}

// NewConversation builds the document written on first contact between two
// users. Participant order follows the sorted id so the record is identical
// regardless of who initiated.
func NewConversation(a, b User) Conversation {
	if a.UID > b.UID {
		a, b = b, a
	}
	now := time.Now().UTC()
	return Conversation{
		ID:               ConversationID(a.UID, b.UID),
		Participants:     []string{a.UID, b.UID},
		ParticipantsData: []ParticipantSnapshot{a.Snapshot(), b.Snapshot()},
		CreatedAt:        now,
		LastUpdated:      now,
	}
}

// Other returns the participant snapshot that is not the given uid.
// The second return is false when the uid is not a participant or the
// snapshot list is malformed.
func (c Conversation) Other(uid string) (ParticipantSnapshot, bool) {
	if !c.HasParticipant(uid) {
		return ParticipantSnapshot{}, false
	}
	for _, p := range c.ParticipantsData {
		if p.UID != uid {
			return p, true
		}
	}
	return ParticipantSnapshot{}, false
}

// HasParticipant reports whether uid is one of the two participants.
func (c Conversation) HasParticipant(uid string) bool {
	for _, p := range c.Participants {
		if p == uid {
			return true
		}
	}
	return false
}

// Preview returns the last-message text for the conversation list, or an
// empty string when nothing has been sent yet.
func (c Conversation) Preview() string {
	if c.LastMessage == nil {
		return ""
	}
	return c.LastMessage.Text
}

// Validate checks the invariants a conversation document must satisfy.
func (c Conversation) Validate() error {
	if c.ID == "" {
		return &DecodeError{Kind: "conversation", Field: "id", Reason: "missing"}
	}
	if len(c.Participants) != 2 {
		return &DecodeError{Kind: "conversation", Field: "participants", Reason: "must list exactly two uids"}
	}
	if c.Participants[0] == c.Participants[1] {
		return &DecodeError{Kind: "conversation", Field: "participants", Reason: "duplicated uid"}
	}
	if ConversationID(c.Participants[0], c.Participants[1]) != c.ID {
		return &DecodeError{Kind: "conversation", Field: "id", Reason: "does not match participants"}
	}
	if len(c.ParticipantsData) != 2 {
		return &DecodeError{Kind: "conversation", Field: "participantsData", Reason: "must carry two snapshots"}
	}
	return nil
}

// DecodeConversation validates a decoded conversation document, filling the
// ID from the document id when the payload omits it.
func DecodeConversation(id string, c Conversation) (Conversation, error) {
	if c.ID == "" {
		c.ID = id
	}
	if err := c.Validate(); err != nil {
		return Conversation{}, err
	}
	return c, nil
}

// SortConversations orders conversations most-recently-updated first,
// matching how the home list presents them.
func SortConversations(convs []Conversation) {
	sort.SliceStable(convs, func(i, j int) bool {
		return convs[i].LastUpdated.After(convs[j].LastUpdated)
	})
}
