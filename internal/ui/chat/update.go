// Copyright (c) 2025 Driftline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/driftline/driftline-tui/internal/model"
)

// sendTimeout bounds a single send round-trip.
const sendTimeout = 30 * time.Second

// =============================================================================
// MESSAGES
// =============================================================================

// MessagesMsg delivers the full ordered thread for a conversation. The app
// sends it from the watch subscription goroutine.
type MessagesMsg struct {
	ConversationID string
	Messages       []model.Message
}

// LeaveMsg is emitted to the app when the user leaves the conversation.
type LeaveMsg struct{}

// SendFailedMsg is emitted to the app when a send fails, so it can toast
// without the thread view blocking.
type SendFailedMsg struct {
	Err error
}

// sentMsg carries the outcome of a send.
type sentMsg struct {
	err error
}

// =============================================================================
// COMMANDS
// =============================================================================

func (m Model) sendCmd(text string) tea.Cmd {
	svc := m.svc
	conv := m.conv
	me := m.me
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()

		return sentMsg{err: svc.Send(ctx, conv, me, text)}
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

	case MessagesMsg:
		if msg.ConversationID != m.conv.ID {
			return m, nil
		}
		m.loaded = true
		atBottom := m.viewport.AtBottom()
		m.msgs = msg.Messages
		m.refreshThread()
		// Stick to the bottom unless the user scrolled back.
		if atBottom {
			m.viewport.GotoBottom()
		}
		return m, nil

	case sentMsg:
		m.sending = false
		if msg.err != nil {
			// The draft stays in the input so the user can retry.
			err := msg.err
			return m, func() tea.Msg { return SendFailedMsg{Err: err} }
		}
		m.input.SetValue("")
		return m, nil

	default:
		var cmds []tea.Cmd
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
		return m, tea.Batch(cmds...)
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return m, func() tea.Msg { return LeaveMsg{} }

	case "enter":
		if m.sending {
			return m, nil
		}
		text := m.input.Value()
		if strings.TrimSpace(text) == "" {
			return m, nil
		}
		m.sending = true
		return m, m.sendCmd(text)

	case "pgup", "pgdown", "up", "down":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}
