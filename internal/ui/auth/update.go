// Copyright (c) 2025 Driftline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/driftline/driftline-tui/internal/backend"
	"github.com/driftline/driftline-tui/internal/identity"
	"github.com/driftline/driftline-tui/internal/model"
)

// submitTimeout bounds a single auth round-trip.
const submitTimeout = 30 * time.Second

// deviceTimeout bounds the whole device-code authorization wait.
const deviceTimeout = 5 * time.Minute

// minPasswordLen is the shortest password accepted on sign-up.
const minPasswordLen = 6

// =============================================================================
// MESSAGES
// =============================================================================

// SignedInMsg is emitted to the app when authentication completes.
type SignedInMsg struct {
	User model.User
}

// resultMsg carries the outcome of a password submit.
type resultMsg struct {
	user *model.User
	err  error
}

// deviceStartedMsg carries the device-code state for a social sign-in.
type deviceStartedMsg struct {
	provider model.Provider
	device   *backend.DeviceAuth
	err      error
}

// deviceDoneMsg carries the outcome of the device authorization wait.
type deviceDoneMsg struct {
	user *model.User
	err  error
}

// =============================================================================
// COMMANDS
// =============================================================================

func (m Model) submitCmd() tea.Cmd {
	mode := m.mode
	svc := m.svc
	name := m.name.Value()
	email := m.email.Value()
	password := m.password.Value()

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
		defer cancel()

		var user *model.User
		var err error
		if mode == ModeSignUp {
			user, err = svc.SignUpWithPassword(ctx, name, email, password)
		} else {
			user, err = svc.SignInWithPassword(ctx, email, password)
		}
		return resultMsg{user: user, err: err}
	}
}

func (m Model) startSocialCmd(provider model.Provider) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
		defer cancel()

		device, err := svc.StartSocial(ctx, provider)
		return deviceStartedMsg{provider: provider, device: device, err: err}
	}
}

func (m Model) waitSocialCmd(provider model.Provider, device *backend.DeviceAuth) tea.Cmd {
	svc := m.svc
	poll := m.devicePoll
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), deviceTimeout)
		defer cancel()

		user, err := svc.CompleteSocial(ctx, provider, device, poll)
		return deviceDoneMsg{user: user, err: err}
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

	case resultMsg:
		m.submitting = false
		if msg.err != nil {
			m.errMsg = identity.Describe(msg.err)
			return m, nil
		}
		return m, signedIn(*msg.user)

	case deviceStartedMsg:
		m.submitting = false
		if msg.err != nil {
			m.errMsg = identity.Describe(msg.err)
			return m, nil
		}
		m.device = msg.device
		m.provider = string(msg.provider)
		return m, tea.Batch(m.spinner.Tick, m.waitSocialCmd(msg.provider, msg.device))

	case deviceDoneMsg:
		m.device = nil
		m.provider = ""
		if msg.err != nil {
			m.errMsg = identity.Describe(msg.err)
			return m, nil
		}
		return m, signedIn(*msg.user)

	default:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	// While a device code is displayed, only escape is meaningful.
	if m.device != nil {
		if msg.String() == "esc" {
			m.device = nil
			m.provider = ""
		}
		return m, nil
	}

	switch msg.String() {
	case "tab", "down":
		m.cycleFocus(1)
		return m, nil

	case "shift+tab", "up":
		m.cycleFocus(-1)
		return m, nil

	case "ctrl+t":
		if m.mode == ModeSignIn {
			m.mode = ModeSignUp
		} else {
			m.mode = ModeSignIn
		}
		m.reset()
		m.setFocus(m.firstField())
		return m, nil

	case "ctrl+g":
		m.errMsg = ""
		m.submitting = true
		return m, tea.Batch(m.spinner.Tick, m.startSocialCmd(model.ProviderGoogle))

	case "ctrl+b":
		m.errMsg = ""
		m.submitting = true
		return m, tea.Batch(m.spinner.Tick, m.startSocialCmd(model.ProviderGitHub))

	case "enter":
		if m.submitting {
			return m, nil
		}
		if msg := m.validate(); msg != "" {
			m.errMsg = msg
			return m, nil
		}
		m.errMsg = ""
		m.submitting = true
		return m, tea.Batch(m.spinner.Tick, m.submitCmd())
	}

	return m.updateInputs(msg)
}

// validate applies the form rules before any network round-trip.
func (m Model) validate() string {
	if m.mode == ModeSignUp && strings.TrimSpace(m.name.Value()) == "" {
		return "Please enter your name."
	}
	if strings.TrimSpace(m.email.Value()) == "" {
		return "Please enter your email."
	}
	if m.password.Value() == "" {
		return "Please enter your password."
	}
	if m.mode == ModeSignUp && len(m.password.Value()) < minPasswordLen {
		return "Password must be at least 6 characters."
	}
	return ""
}

func (m *Model) cycleFocus(dir int) {
	first := m.firstField()
	next := m.focus + dir
	if next < first {
		next = fieldPassword
	}
	if next >= fieldCount {
		next = first
	}
	m.setFocus(next)
}

func (m Model) updateInputs(msg tea.Msg) (Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	m.name, cmd = m.name.Update(msg)
	cmds = append(cmds, cmd)
	m.email, cmd = m.email.Update(msg)
	cmds = append(cmds, cmd)
	m.password, cmd = m.password.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func signedIn(user model.User) tea.Cmd {
	return func() tea.Msg {
		return SignedInMsg{User: user}
	}
}
