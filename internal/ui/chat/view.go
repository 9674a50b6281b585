// Copyright (c) 2025 Driftline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/driftline/driftline-tui/internal/model"
	"github.com/driftline/driftline-tui/internal/util"
)

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.theme.InputContainer.Width(m.contentWidth()).Render(m.input.View()))
	b.WriteString("\n")
	b.WriteString(m.renderFooter())

	return b.String()
}

func (m Model) contentWidth() int {
	if m.width < 40 {
		return 40
	}
	return m.width
}

func (m Model) renderHeader() string {
	name := m.other.DisplayName
	if name == "" {
		name = "Conversation"
	}
	title := m.theme.HeaderTitle.Render(name)
	return m.theme.Header.Width(m.contentWidth()).Render(title)
}

func (m Model) renderFooter() string {
	var parts []string
	if m.sending {
		parts = append(parts, m.spinner.View()+m.theme.ShortcutDesc.Render(" sending"))
	}
	parts = append(parts,
		m.theme.ShortcutKey.Render("enter")+m.theme.ShortcutDesc.Render(" send"),
		m.theme.ShortcutKey.Render("esc")+m.theme.ShortcutDesc.Render(" back"),
		m.theme.ShortcutKey.Render("pgup/pgdn")+m.theme.ShortcutDesc.Render(" scroll"),
	)
	return m.theme.StatusBar.Render(strings.Join(parts, "  "))
}

// refreshThread re-renders the viewport content from the message list.
func (m *Model) refreshThread() {
	width := m.viewport.Width
	if width < 20 {
		width = 20
	}

	if !m.loaded {
		m.viewport.SetContent(m.theme.FormHint.Render("Loading messages..."))
		return
	}
	if len(m.msgs) == 0 {
		m.viewport.SetContent(m.theme.FormHint.Render("No messages yet. Say hello."))
		return
	}

	var b strings.Builder
	for i, msg := range m.msgs {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.renderBubble(msg, width))
		b.WriteString("\n")
	}
	m.viewport.SetContent(b.String())
}

// renderBubble renders one message: own messages on the right, the other
// participant's on the left.
func (m Model) renderBubble(msg model.Message, width int) string {
	maxBubble := width * 2 / 3
	if maxBubble < 16 {
		maxBubble = 16
	}

	text := util.TruncateRunes(msg.Text, 2000)
	mine := msg.IsMine(m.me.UID)

	var bubble string
	if mine {
		bubble = m.theme.OwnBubble.MaxWidth(maxBubble).Render(text)
	} else {
		bubble = m.theme.OtherBubble.MaxWidth(maxBubble).Render(text)
	}

	var meta string
	if m.showTimestamps {
		meta = m.theme.BubbleTime.Render(msg.Timestamp())
	}
	if !mine && msg.SenderName != "" {
		sender := m.theme.BubbleSender.Render(msg.SenderName)
		if meta != "" {
			meta = sender + " " + meta
		} else {
			meta = sender
		}
	}

	block := bubble
	if meta != "" {
		block = meta + "\n" + bubble
	}

	if mine {
		return lipgloss.PlaceHorizontal(width, lipgloss.Right, block)
	}
	return lipgloss.PlaceHorizontal(width, lipgloss.Left, block)
}
