// Copyright (c) 2025 Driftline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package home provides the signed-in landing view: the searchable user
// directory on the left and the welcome pane on the right.
package home

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/driftline/driftline-tui/internal/directory"
	"github.com/driftline/driftline-tui/internal/messaging"
	"github.com/driftline/driftline-tui/internal/model"
	"github.com/driftline/driftline-tui/internal/store"
	"github.com/driftline/driftline-tui/internal/ui/styles"
)

// Model is the Bubble Tea model for the home view.
type Model struct {
	theme *styles.Theme
	svc   *directory.Service
	msgs  *messaging.Service
	cache *store.Store // nil when the local cache is disabled

	me model.User

	width  int
	height int

	search   textinput.Model
	users    []model.User
	filtered []model.User
	cursor   int
	pageSize int

	convs []model.Conversation

	spinner spinner.Model
	loading bool
	opening bool
	errMsg  string
}

// New creates the home view for the signed-in user. cache may be nil;
// pageSize caps how many directory rows render at once (<=0 means all).
func New(theme *styles.Theme, svc *directory.Service, msgs *messaging.Service, cache *store.Store, me model.User, pageSize int) Model {
	search := textinput.New()
	search.Placeholder = "Search users..."
	search.CharLimit = 64
	search.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		theme:    theme,
		svc:      svc,
		msgs:     msgs,
		cache:    cache,
		me:       me,
		search:   search,
		pageSize: pageSize,
		spinner:  sp,
		loading:  true,
	}
}

// Init implements tea.Model. The cached directory and previews render
// immediately while the fresh listings load.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, m.spinner.Tick, m.loadDirectoryCmd(), m.loadConversationsCmd()}
	if m.cache != nil {
		cmds = append(cmds, m.loadCachedCmd())
	}
	return tea.Batch(cmds...)
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// Me returns the signed-in user this view was built for.
func (m Model) Me() model.User {
	return m.me
}

// applyFilter recomputes the visible directory slice for the current query.
func (m *Model) applyFilter() {
	m.filtered = directory.Filter(m.users, m.search.Value(), m.me.UID)
	if m.cursor >= len(m.filtered) {
		m.cursor = len(m.filtered) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// lastMessageWith returns the cached conversation preview with the given
// user, if any.
func (m Model) lastMessageWith(uid string) *model.LastMessage {
	id := model.ConversationID(m.me.UID, uid)
	for _, c := range m.convs {
		if c.ID == id {
			return c.LastMessage
		}
	}
	return nil
}
