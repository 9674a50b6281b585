// Copyright (c) 2025 Driftline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package home

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/driftline/driftline-tui/internal/model"
	"github.com/driftline/driftline-tui/internal/util"
)

// View implements tea.Model.
func (m Model) View() string {
	width := m.width
	if width < 60 {
		width = 60
	}
	listWidth := width / 3
	if listWidth < 28 {
		listWidth = 28
	}

	left := m.renderDirectory(listWidth)
	right := m.renderWelcome(width - listWidth - 4)

	body := lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right)

	var b strings.Builder
	b.WriteString(body)
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m Model) renderDirectory(width int) string {
	var b strings.Builder

	b.WriteString(m.theme.SearchBox.Width(width - 2).Render(m.search.View()))
	b.WriteString("\n")

	switch {
	case m.loading && len(m.filtered) == 0:
		b.WriteString(m.spinner.View())
		b.WriteString(m.theme.FormHint.Render(" loading directory..."))

	case m.errMsg != "":
		b.WriteString(m.theme.ErrorStyle.Render(m.errMsg))
		b.WriteString("\n")
		b.WriteString(m.theme.FormHint.Render("ctrl+r to retry"))

	case len(m.filtered) == 0:
		b.WriteString(m.theme.FormHint.Render("No users found."))

	default:
		start, end := m.visibleRange()
		for i := start; i < end; i++ {
			b.WriteString(m.renderUserRow(m.filtered[i], i == m.cursor, width-4))
			b.WriteString("\n")
		}
		if end < len(m.filtered) {
			b.WriteString(m.theme.FormHint.Render("..."))
		}
	}

	return m.theme.DirectoryList.Width(width).Render(b.String())
}

// visibleRange returns the window of directory rows to render, keeping the
// cursor inside the configured page size.
func (m Model) visibleRange() (int, int) {
	if m.pageSize <= 0 || len(m.filtered) <= m.pageSize {
		return 0, len(m.filtered)
	}
	start := 0
	if m.cursor >= m.pageSize {
		start = m.cursor - m.pageSize + 1
	}
	end := start + m.pageSize
	if end > len(m.filtered) {
		end = len(m.filtered)
	}
	return start, end
}

func (m Model) renderUserRow(u model.User, selected bool, width int) string {
	initial := m.theme.DirectoryInitial.Render(u.Initial())
	name := util.TruncateWidth(u.DisplayName(), width-8)

	var line string
	if preview := m.lastMessageWith(u.UID); preview != nil {
		text := util.TruncateWidth(preview.Text, width-8)
		line = m.theme.DirectoryName.Render(name) + "\n  " +
			m.theme.DirectoryEmail.Render(text)
	} else {
		line = m.theme.DirectoryName.Render(name) + "\n  " +
			m.theme.DirectoryEmail.Render(util.TruncateWidth(u.Email, width-8))
	}

	row := initial + " " + line
	if selected {
		return m.theme.DirectorySelected.Render(row)
	}
	return m.theme.DirectoryItem.Render(row)
}

func (m Model) renderWelcome(width int) string {
	if width < 24 {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.theme.WelcomeLogo.Render("driftline"))
	b.WriteString("\n\n")
	b.WriteString(m.theme.WelcomeInfo.Render("Welcome back, " + m.me.DisplayName() + "."))
	b.WriteString("\n\n")
	b.WriteString(m.theme.WelcomeInfo.Render("Pick someone from the directory"))
	b.WriteString("\n")
	b.WriteString(m.theme.WelcomeInfo.Render("to start a conversation."))

	return m.theme.WelcomeBox.Width(width).Render(b.String())
}

func (m Model) renderFooter() string {
	parts := []string{
		m.theme.ShortcutKey.Render("enter") + m.theme.ShortcutDesc.Render(" open"),
		m.theme.ShortcutKey.Render("up/down") + m.theme.ShortcutDesc.Render(" select"),
		m.theme.ShortcutKey.Render("esc") + m.theme.ShortcutDesc.Render(" clear search"),
		m.theme.ShortcutKey.Render("ctrl+r") + m.theme.ShortcutDesc.Render(" refresh"),
		m.theme.ShortcutKey.Render("ctrl+l") + m.theme.ShortcutDesc.Render(" sign out"),
		m.theme.ShortcutKey.Render("ctrl+c") + m.theme.ShortcutDesc.Render(" quit"),
	}
	return m.theme.StatusBar.Render(strings.Join(parts, "  "))
}
