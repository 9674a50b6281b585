// Copyright (c) 2025 Driftline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftline/driftline-tui/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "cache", "driftline.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutAndGetUsers(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	users := []model.User{
		{UID: "b2", Name: "Bob", Email: "bob@example.com", Provider: model.ProviderGoogle, CreatedAt: created},
		{UID: "a1", Name: "alice", Email: "alice@example.com", PhotoURL: "https://img/a.png", Provider: model.ProviderPassword, CreatedAt: created},
	}
	require.NoError(t, s.PutUsers(ctx, users))

	got, err := s.Users(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Ordered by name, case-insensitive.
	assert.Equal(t, "a1", got[0].UID)
	assert.Equal(t, "b2", got[1].UID)
	assert.Equal(t, "https://img/a.png", got[0].PhotoURL)
	assert.Equal(t, model.ProviderGoogle, got[1].Provider)
	assert.True(t, got[0].CreatedAt.Equal(created))
}

func TestPutUsersReplacesDirectory(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	first := []model.User{{UID: "a1", Name: "Alice", Email: "a@x.com", Provider: model.ProviderPassword, CreatedAt: now}}
	second := []model.User{{UID: "b2", Name: "Bob", Email: "b@x.com", Provider: model.ProviderPassword, CreatedAt: now}}

	require.NoError(t, s.PutUsers(ctx, first))
	require.NoError(t, s.PutUsers(ctx, second))

	got, err := s.Users(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b2", got[0].UID)
}

func TestConversationRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	alice := model.User{UID: "a1", Name: "Alice", Email: "a@x.com", Provider: model.ProviderPassword}
	bob := model.User{UID: "b2", Name: "Bob", Email: "b@x.com", Provider: model.ProviderPassword}
	carol := model.User{UID: "c3", Name: "Carol", Email: "c@x.com", Provider: model.ProviderPassword}

	older := model.NewConversation(alice, bob)
	older.LastMessage = &model.LastMessage{Text: "hi", SenderID: "a1", SentAt: time.Now().UTC()}
	older.LastUpdated = time.Now().UTC().Add(-time.Hour).Truncate(time.Second)

	newer := model.NewConversation(alice, carol)
	newer.LastUpdated = time.Now().UTC().Truncate(time.Second)

	foreign := model.NewConversation(bob, carol)

	require.NoError(t, s.PutConversations(ctx, []model.Conversation{older, newer, foreign}))

	got, err := s.Conversations(ctx, "a1")
	require.NoError(t, err)
	require.Len(t, got, 2, "foreign conversations must be filtered out")

	// Most recently updated first.
	assert.Equal(t, newer.ID, got[0].ID)
	assert.Equal(t, older.ID, got[1].ID)

	require.NotNil(t, got[1].LastMessage)
	assert.Equal(t, "hi", got[1].LastMessage.Text)
	assert.Nil(t, got[0].LastMessage, "no last message before the first send")
	assert.Len(t, got[0].ParticipantsData, 2)
}

func TestPutConversationsUpserts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	alice := model.User{UID: "a1", Name: "Alice", Email: "a@x.com", Provider: model.ProviderPassword}
	bob := model.User{UID: "b2", Name: "Bob", Email: "b@x.com", Provider: model.ProviderPassword}

	conv := model.NewConversation(alice, bob)
	require.NoError(t, s.PutConversations(ctx, []model.Conversation{conv}))

	conv.LastMessage = &model.LastMessage{Text: "updated", SenderID: "b2", SentAt: time.Now().UTC()}
	conv.LastUpdated = time.Now().UTC().Truncate(time.Second)
	require.NoError(t, s.PutConversations(ctx, []model.Conversation{conv}))

	got, err := s.Conversations(ctx, "a1")
	require.NoError(t, err)
	require.Len(t, got, 1, "second put must update, not duplicate")
	require.NotNil(t, got[0].LastMessage)
	assert.Equal(t, "updated", got[0].LastMessage.Text)
}

func TestLastSynced(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.LastSynced(ctx, "users")
	assert.ErrorIs(t, err, ErrNeverSynced)

	require.NoError(t, s.PutUsers(ctx, nil))

	synced, err := s.LastSynced(ctx, "users")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), synced, time.Minute)
}

func TestOpenCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deep", "cache.db")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, path, s.Path())
}
