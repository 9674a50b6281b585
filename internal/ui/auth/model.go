// Copyright (c) 2025 Driftline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth provides the sign-in and sign-up view.
package auth

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/driftline/driftline-tui/internal/backend"
	"github.com/driftline/driftline-tui/internal/identity"
	"github.com/driftline/driftline-tui/internal/ui/styles"
)

// =============================================================================
// AUTH STATE
// =============================================================================

// Mode selects between the sign-in and sign-up forms.
type Mode int

const (
	ModeSignIn Mode = iota
	ModeSignUp
)

// field indexes into the form inputs.
const (
	fieldName = iota
	fieldEmail
	fieldPassword
	fieldCount
)

// =============================================================================
// AUTH MODEL
// =============================================================================

// Model is the Bubble Tea model for the auth view.
type Model struct {
	theme *styles.Theme
	svc   *identity.Service

	// devicePoll is the interval between device-grant polls; zero means
	// the interval the grant itself advertises.
	devicePoll time.Duration

	width  int
	height int

	mode  Mode
	focus int

	name     textinput.Model
	email    textinput.Model
	password textinput.Model

	spinner    spinner.Model
	submitting bool
	errMsg     string

	// Device-code flow state while a social sign-in is pending.
	device   *backend.DeviceAuth
	provider string
}

// New creates the auth view.
func New(theme *styles.Theme, svc *identity.Service, devicePoll time.Duration) Model {
	name := textinput.New()
	name.Placeholder = "Display name"
	name.CharLimit = 64

	email := textinput.New()
	email.Placeholder = "you@example.com"
	email.CharLimit = 128

	password := textinput.New()
	password.Placeholder = "Password"
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '*'
	password.CharLimit = 128

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		theme:      theme,
		svc:        svc,
		devicePoll: devicePoll,
		mode:       ModeSignIn,
		focus:      fieldEmail,
		name:       name,
		email:      email,
		password:   password,
		spinner:    sp,
	}
	m.email.Focus()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// firstField returns the topmost field for the current mode.
func (m Model) firstField() int {
	if m.mode == ModeSignUp {
		return fieldName
	}
	return fieldEmail
}

// setFocus moves input focus to the given field.
func (m *Model) setFocus(field int) {
	m.focus = field
	m.name.Blur()
	m.email.Blur()
	m.password.Blur()
	switch field {
	case fieldName:
		m.name.Focus()
	case fieldEmail:
		m.email.Focus()
	case fieldPassword:
		m.password.Focus()
	}
}

// reset clears transient state when switching modes.
func (m *Model) reset() {
	m.errMsg = ""
	m.submitting = false
	m.device = nil
	m.provider = ""
}
