// driftline - a terminal client for direct messaging.
//
// Copyright (c) 2025 Driftline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/driftline/driftline-tui/internal/backend"
	"github.com/driftline/driftline-tui/internal/config"
	"github.com/driftline/driftline-tui/internal/directory"
	"github.com/driftline/driftline-tui/internal/identity"
	"github.com/driftline/driftline-tui/internal/messaging"
	"github.com/driftline/driftline-tui/internal/model"
	"github.com/driftline/driftline-tui/internal/store"
	"github.com/driftline/driftline-tui/internal/ui/auth"
	"github.com/driftline/driftline-tui/internal/ui/chat"
	"github.com/driftline/driftline-tui/internal/ui/components"
	"github.com/driftline/driftline-tui/internal/ui/home"
	"github.com/driftline/driftline-tui/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Global program reference for async message delivery from the watch
// subscription goroutine.
var (
	programRef *tea.Program
	programMu  sync.Mutex
)

// sendToProgram delivers a message into the running program, dropping it
// if the program has already exited.
func sendToProgram(msg tea.Msg) {
	programMu.Lock()
	p := programRef
	programMu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

func main() {
	for _, arg := range os.Args[1:] {
		switch arg {
		case "--version", "-v":
			fmt.Printf("driftline %s (%s, built %s)\n", Version, GitCommit, BuildDate)
			return
		case "--help", "-h":
			fmt.Println("driftline - direct messaging in your terminal")
			fmt.Println()
			fmt.Println("Usage: driftline [--version]")
			fmt.Println()
			fmt.Println("Configuration is read from ~/.driftline/config.toml")
			fmt.Println("(override the path with DRIFTLINE_CONFIG).")
			return
		}
	}

	cfg := config.Global()
	theme := styles.NewTheme(cfg.UI.Theme)

	// First run: write the defaults so the knobs are discoverable.
	if path, err := config.Path(); err == nil {
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			if err := cfg.Save(); err != nil {
				fmt.Fprintf(os.Stderr, "warning: could not write default config: %v\n", err)
			}
		}
	}

	sessionPath, err := cfg.SessionPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot resolve session path: %v\n", err)
		os.Exit(1)
	}

	client := backend.NewClient().
		WithBaseURL(cfg.Backend.BaseURL).
		WithTimeout(cfg.Timeout())
	identitySvc := identity.NewService(client, sessionPath)
	directorySvc := directory.NewService(client)
	messagingSvc := messaging.NewService(client)

	var cache *store.Store
	if cfg.Cache.Enabled {
		// The cache is optional; run without it on any failure.
		if cachePath, err := cfg.CachePath(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: local cache unavailable: %v\n", err)
		} else if cache, err = store.Open(cachePath); err != nil {
			fmt.Fprintf(os.Stderr, "warning: local cache unavailable: %v\n", err)
			cache = nil
		} else {
			defer cache.Close()
		}
	}

	// Resume the previous session if one is on disk.
	restored, _ := identitySvc.Restore(context.Background())

	app := newApp(theme, cfg, identitySvc, directorySvc, messagingSvc, cache)
	if restored {
		if user := identitySvc.CurrentUser(); user != nil {
			app.enterHome(*user)
		}
	}
	defer app.stopSubscription()

	p := tea.NewProgram(
		app,
		tea.WithAltScreen(),
	)

	programMu.Lock()
	programRef = p
	programMu.Unlock()

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running driftline: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// APPLICATION MODEL
// =============================================================================

// State represents the current application view.
type State int

const (
	StateAuth State = iota // Sign-in / sign-up
	StateHome              // Directory and welcome pane
	StateChat              // A conversation thread
)

// App is the root Bubble Tea model. It routes between the auth, home, and
// chat views and owns the cross-view services.
type App struct {
	state State

	theme *styles.Theme
	cfg   *config.Config

	identity  *identity.Service
	directory *directory.Service
	messaging *messaging.Service
	cache     *store.Store

	header *components.Header
	toasts *components.ToastManager

	auth auth.Model
	home home.Model
	chat chat.Model

	width  int
	height int

	// Cancels the active message subscription when leaving a chat.
	subCancel context.CancelFunc
}

// newApp builds the root model in the signed-out state.
func newApp(theme *styles.Theme, cfg *config.Config, identitySvc *identity.Service, directorySvc *directory.Service, messagingSvc *messaging.Service, cache *store.Store) *App {
	return &App{
		state:     StateAuth,
		theme:     theme,
		cfg:       cfg,
		identity:  identitySvc,
		directory: directorySvc,
		messaging: messagingSvc,
		cache:     cache,
		header:    components.NewHeader(theme),
		toasts:    components.NewToastManager(),
		auth:      auth.New(theme, identitySvc, cfg.DevicePoll()),
	}
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	cmds := []tea.Cmd{components.ToastTickCmd()}
	switch a.state {
	case StateHome:
		cmds = append(cmds, a.home.Init())
	default:
		cmds = append(cmds, a.auth.Init())
	}
	return tea.Batch(cmds...)
}

// =============================================================================
// NAVIGATION
// =============================================================================

// enterHome switches to the home view for the given user.
func (a *App) enterHome(user model.User) {
	a.stopSubscription()
	a.state = StateHome
	a.home = home.New(a.theme, a.directory, a.messaging, a.cache, user, a.cfg.UI.DirectoryPageSize)
	a.home.SetSize(a.width, a.contentHeight())
	a.header.SetContext("Signed in as " + user.DisplayName())
}

// enterChat switches to the chat view and starts the message subscription.
func (a *App) enterChat(conv model.Conversation) tea.Cmd {
	me := a.home.Me()
	a.state = StateChat
	a.chat = chat.New(a.theme, a.messaging, conv, me, a.cfg.UI.ShowTimestamps)
	a.chat.SetSize(a.width, a.contentHeight())

	if other, ok := conv.Other(me.UID); ok {
		a.header.SetContext("Chatting with " + other.DisplayName)
	}

	a.startSubscription(conv.ID)
	return a.chat.Init()
}

// leaveChat returns to the home view.
func (a *App) leaveChat() tea.Cmd {
	a.stopSubscription()
	a.state = StateHome
	a.home.SetSize(a.width, a.contentHeight())
	a.header.SetContext("Signed in as " + a.home.Me().DisplayName())
	// Reload previews so the list reflects the conversation just left.
	return a.home.Init()
}

// signOut clears the session and returns to the auth view.
func (a *App) signOut() tea.Cmd {
	a.stopSubscription()
	if err := a.identity.SignOut(); err != nil {
		a.toasts.AddWarning("Could not fully clear the local session.")
	}
	a.state = StateAuth
	a.auth = auth.New(a.theme, a.identity, a.cfg.DevicePoll())
	a.auth.SetSize(a.width, a.contentHeight())
	a.header.SetContext("")
	return a.auth.Init()
}

// =============================================================================
// MESSAGE SUBSCRIPTION
// =============================================================================

// conversationGoneMsg reports that the thread cannot be watched because it
// no longer exists.
type conversationGoneMsg struct {
	convID string
}

// subscriptionLostMsg reports a fatal (non-reconnectable) watch failure.
type subscriptionLostMsg struct {
	convID string
	err    error
}

// startSubscription verifies the conversation exists, then watches its
// messages until the subscription is cancelled. Snapshots are delivered to
// the chat view through the program reference.
func (a *App) startSubscription(convID string) {
	a.stopSubscription()
	ctx, cancel := context.WithCancel(context.Background())
	a.subCancel = cancel

	svc := a.messaging
	retry := a.cfg.WatchRetry()

	go func() {
		if _, err := svc.Load(ctx, convID); err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, messaging.ErrConversationNotFound) {
				sendToProgram(conversationGoneMsg{convID: convID})
			} else {
				sendToProgram(subscriptionLostMsg{convID: convID, err: err})
			}
			return
		}

		err := svc.Subscribe(ctx, convID, retry, func(msgs []model.Message) {
			sendToProgram(chat.MessagesMsg{ConversationID: convID, Messages: msgs})
		})
		if err != nil && ctx.Err() == nil {
			sendToProgram(subscriptionLostMsg{convID: convID, err: err})
		}
	}()
}

// stopSubscription cancels the active watch, if any.
func (a *App) stopSubscription() {
	if a.subCancel != nil {
		a.subCancel()
		a.subCancel = nil
	}
}

// =============================================================================
// UPDATE
// =============================================================================

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.theme.SetSize(msg.Width, msg.Height)
		a.header.SetWidth(msg.Width)
		// Only views that have been constructed carry a theme.
		a.auth.SetSize(msg.Width, a.contentHeight())
		if a.state == StateHome || a.state == StateChat {
			a.home.SetSize(msg.Width, a.contentHeight())
		}
		if a.state == StateChat {
			a.chat.SetSize(msg.Width, a.contentHeight())
		}
		return a, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			a.stopSubscription()
			return a, tea.Quit
		}

	case components.ToastTickMsg:
		a.toasts.Tick()
		return a, components.ToastTickCmd()

	case auth.SignedInMsg:
		a.enterHome(msg.User)
		return a, a.home.Init()

	case home.SignOutMsg:
		return a, a.signOut()

	case home.OpenConversationMsg:
		cmd := a.enterChat(msg.Conversation)
		if msg.Created {
			a.toasts.AddStatus("Conversation started.")
		}
		return a, cmd

	case chat.LeaveMsg:
		return a, a.leaveChat()

	case chat.SendFailedMsg:
		a.toasts.AddError("Could not send your message: " + msg.Err.Error())
		return a, nil

	case conversationGoneMsg:
		if a.state == StateChat && a.chat.ConversationID() == msg.convID {
			a.toasts.AddError("Conversation not found.")
			return a, a.leaveChat()
		}
		return a, nil

	case subscriptionLostMsg:
		if a.state == StateChat && a.chat.ConversationID() == msg.convID {
			a.toasts.AddError("Lost connection to the conversation: " + msg.err.Error())
			return a, a.leaveChat()
		}
		return a, nil
	}

	// Route everything else to the active view.
	var cmd tea.Cmd
	switch a.state {
	case StateAuth:
		a.auth, cmd = a.auth.Update(msg)
	case StateHome:
		a.home, cmd = a.home.Update(msg)
	case StateChat:
		a.chat, cmd = a.chat.Update(msg)
	}
	return a, cmd
}

// =============================================================================
// VIEW
// =============================================================================

// View implements tea.Model.
func (a *App) View() string {
	var body string
	switch a.state {
	case StateAuth:
		body = a.auth.View()
	case StateHome:
		body = a.home.View()
	case StateChat:
		body = a.chat.View()
	}

	out := a.header.View() + "\n" + body

	if toasts := a.toasts.Toasts(); len(toasts) > 0 {
		out += "\n" + components.RenderToastStack(toasts, a.width, 0)
	}
	return out
}

// contentHeight returns the rows available below the header.
func (a *App) contentHeight() int {
	h := a.height - 3
	if h < 0 {
		h = 0
	}
	return h
}
