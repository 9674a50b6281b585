// Copyright (c) 2025 Driftline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for users, conversations and
// messages, plus the decoding layer that turns raw backend documents into
// typed records.
//
// # Key Types
//
//   - User: a directory entry (uid, display name, email, avatar, provider)
//   - Conversation: a two-person thread with participant snapshots and a
//     last-message summary
//   - Message: a single text message within a conversation
//   - DecodeError: typed validation failure raised at the decode boundary
//
// # Usage
//
//	id := model.ConversationID(me.UID, other.UID)
//	conv, err := model.DecodeConversation(id, rawFields)
package model
