// Copyright (c) 2025 Driftline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package home

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/driftline/driftline-tui/internal/model"
)

// loadTimeout bounds directory and conversation fetches.
const loadTimeout = 30 * time.Second

// =============================================================================
// MESSAGES
// =============================================================================

// OpenConversationMsg is emitted to the app when a conversation is ready
// to enter.
type OpenConversationMsg struct {
	Conversation model.Conversation
	Created      bool
}

// SignOutMsg is emitted to the app when the user signs out.
type SignOutMsg struct{}

// directoryMsg carries a fresh directory listing.
type directoryMsg struct {
	users []model.User
	err   error
}

// conversationsMsg carries fresh conversation previews for the directory
// rows.
type conversationsMsg struct {
	convs []model.Conversation
	err   error
}

// cachedMsg carries the locally cached directory and previews. Stale by
// definition; a directoryMsg will overwrite it.
type cachedMsg struct {
	users []model.User
	convs []model.Conversation
}

// openResultMsg carries the outcome of opening a conversation.
type openResultMsg struct {
	conv    model.Conversation
	created bool
	err     error
}

// =============================================================================
// COMMANDS
// =============================================================================

func (m Model) loadDirectoryCmd() tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()

		users, err := svc.ListUsers(ctx)
		return directoryMsg{users: users, err: err}
	}
}

func (m Model) loadCachedCmd() tea.Cmd {
	cache := m.cache
	uid := m.me.UID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()

		// A cache that has never been filled has nothing worth painting.
		if _, err := cache.LastSynced(ctx, "users"); err != nil {
			return nil
		}
		users, err := cache.Users(ctx)
		if err != nil {
			return nil
		}
		convs, _ := cache.Conversations(ctx, uid)
		return cachedMsg{users: users, convs: convs}
	}
}

func (m Model) loadConversationsCmd() tea.Cmd {
	svc := m.msgs
	uid := m.me.UID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()

		convs, err := svc.ListConversations(ctx, uid)
		return conversationsMsg{convs: convs, err: err}
	}
}

func (m Model) persistConversationsCmd(convs []model.Conversation) tea.Cmd {
	cache := m.cache
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()

		_ = cache.PutConversations(ctx, convs)
		return nil
	}
}

func (m Model) persistDirectoryCmd(users []model.User) tea.Cmd {
	cache := m.cache
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()

		// Best effort; the cache is a convenience, not a source of truth.
		_ = cache.PutUsers(ctx, users)
		return nil
	}
}

func (m Model) openCmd(other model.User) tea.Cmd {
	svc := m.svc
	me := m.me
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()

		conv, created, err := svc.OpenOrCreate(ctx, me, other)
		return openResultMsg{conv: conv, created: created, err: err}
	}
}

// =============================================================================
// UPDATE
// =============================================================================

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case directoryMsg:
		m.loading = false
		if msg.err != nil {
			// Keep whatever the cache provided; just surface the failure.
			m.errMsg = "Could not load the user directory."
			return m, nil
		}
		m.errMsg = ""
		m.users = msg.users
		m.applyFilter()
		if m.cache != nil {
			return m, m.persistDirectoryCmd(msg.users)
		}
		return m, nil

	case conversationsMsg:
		if msg.err != nil {
			// Previews are a convenience; keep whatever the cache gave us.
			return m, nil
		}
		model.SortConversations(msg.convs)
		m.convs = msg.convs
		if m.cache != nil {
			return m, m.persistConversationsCmd(msg.convs)
		}
		return m, nil

	case cachedMsg:
		// Never overwrite fresh data with the cache.
		if m.loading && len(m.users) == 0 {
			m.users = msg.users
			m.applyFilter()
		}
		if len(m.convs) == 0 {
			m.convs = msg.convs
		}
		return m, nil

	case openResultMsg:
		m.opening = false
		if msg.err != nil {
			m.errMsg = "Could not open the conversation."
			return m, nil
		}
		conv := msg.conv
		created := msg.created
		return m, func() tea.Msg {
			return OpenConversationMsg{Conversation: conv, Created: created}
		}

	default:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "up":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case "down":
		if m.cursor < len(m.filtered)-1 {
			m.cursor++
		}
		return m, nil

	case "enter":
		if m.opening || m.cursor >= len(m.filtered) {
			return m, nil
		}
		m.opening = true
		m.errMsg = ""
		return m, tea.Batch(m.spinner.Tick, m.openCmd(m.filtered[m.cursor]))

	case "esc":
		m.search.SetValue("")
		m.applyFilter()
		return m, nil

	case "ctrl+r":
		m.loading = true
		return m, tea.Batch(m.spinner.Tick, m.loadDirectoryCmd(), m.loadConversationsCmd())

	case "ctrl+l":
		return m, func() tea.Msg { return SignOutMsg{} }
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.applyFilter()
	return m, cmd
}
