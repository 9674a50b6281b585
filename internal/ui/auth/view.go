// Copyright (c) 2025 Driftline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	title := "Sign in to driftline"
	action := "Sign In"
	toggleHint := "ctrl+t sign up instead"
	if m.mode == ModeSignUp {
		title = "Create your account"
		action = "Sign Up"
		toggleHint = "ctrl+t sign in instead"
	}

	b.WriteString(m.theme.HeaderBrand.Render("driftline"))
	b.WriteString("\n")
	b.WriteString(m.theme.HeaderSubtitle.Render(title))
	b.WriteString("\n\n")

	if m.device != nil {
		b.WriteString(m.renderDevicePane())
	} else {
		b.WriteString(m.renderForm(action))
	}

	if m.errMsg != "" {
		b.WriteString("\n")
		b.WriteString(m.theme.FormError.Render(m.errMsg))
	}

	b.WriteString("\n\n")
	b.WriteString(m.theme.FormHint.Render(
		toggleHint + " | ctrl+g Google | ctrl+b GitHub | ctrl+c quit"))

	box := m.theme.FormBox.Render(b.String())
	if m.width > 0 && m.height > 0 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
	}
	return box
}

func (m Model) renderForm(action string) string {
	var b strings.Builder

	if m.mode == ModeSignUp {
		b.WriteString(m.label("Name", fieldName))
		b.WriteString("\n")
		b.WriteString(m.name.View())
		b.WriteString("\n\n")
	}

	b.WriteString(m.label("Email", fieldEmail))
	b.WriteString("\n")
	b.WriteString(m.email.View())
	b.WriteString("\n\n")

	b.WriteString(m.label("Password", fieldPassword))
	b.WriteString("\n")
	b.WriteString(m.password.View())
	b.WriteString("\n\n")

	if m.submitting {
		b.WriteString(m.spinner.View())
		b.WriteString(m.theme.FormHint.Render(" signing in..."))
	} else {
		b.WriteString(m.theme.FormButtonActive.Render(action))
		b.WriteString(m.theme.FormHint.Render("  enter to submit"))
	}

	return b.String()
}

func (m Model) renderDevicePane() string {
	var b strings.Builder

	b.WriteString(m.theme.FormLabel.Render("Continue with " + m.provider))
	b.WriteString("\n\n")
	b.WriteString("Visit ")
	b.WriteString(m.theme.LinkStyle.Render(m.device.VerificationURL))
	b.WriteString("\nand enter the code\n\n")
	b.WriteString(m.theme.DeviceCode.Render(m.device.UserCode))
	b.WriteString("\n\n")
	b.WriteString(m.spinner.View())
	b.WriteString(m.theme.FormHint.Render(" waiting for authorization... esc to cancel"))

	return b.String()
}

func (m Model) label(text string, field int) string {
	if m.focus == field {
		return m.theme.FormLabelFocused.Render("> " + text)
	}
	return m.theme.FormLabel.Render("  " + text)
}
