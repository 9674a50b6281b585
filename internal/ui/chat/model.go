// Copyright (c) 2025 Driftline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the conversation view: the live message thread
// with the other participant and the send input.
package chat

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/driftline/driftline-tui/internal/messaging"
	"github.com/driftline/driftline-tui/internal/model"
	"github.com/driftline/driftline-tui/internal/ui/styles"
)

// Model is the Bubble Tea model for the chat view.
type Model struct {
	theme *styles.Theme
	svc   *messaging.Service

	conv  model.Conversation
	me    model.User
	other model.ParticipantSnapshot

	width  int
	height int

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	msgs           []model.Message
	loaded         bool
	sending        bool
	showTimestamps bool
}

// New creates the chat view for a conversation. The message thread arrives
// asynchronously through MessagesMsg once the app wires the subscription.
func New(theme *styles.Theme, svc *messaging.Service, conv model.Conversation, me model.User, showTimestamps bool) Model {
	input := textinput.New()
	input.Placeholder = "Type a message..."
	input.CharLimit = 2000
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	other, _ := conv.Other(me.UID)

	return Model{
		theme:          theme,
		svc:            svc,
		conv:           conv,
		me:             me,
		other:          other,
		viewport:       viewport.New(80, 20),
		input:          input,
		spinner:        sp,
		showTimestamps: showTimestamps,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// ConversationID returns the id of the thread this view shows.
func (m Model) ConversationID() string {
	return m.conv.ID
}

// Other returns the participant snapshot shown in the header.
func (m Model) Other() model.ParticipantSnapshot {
	return m.other
}

// SetSize updates the view dimensions and resizes the thread viewport.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height

	// Header, input border, and footer take five rows.
	vpHeight := height - 5
	if vpHeight < 3 {
		vpHeight = 3
	}
	m.viewport.Width = width
	m.viewport.Height = vpHeight
	m.refreshThread()
}
