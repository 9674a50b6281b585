// Copyright (c) 2025 Driftline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/driftline/driftline-tui/internal/backend"
	"github.com/driftline/driftline-tui/internal/messaging"
	"github.com/driftline/driftline-tui/internal/model"
	"github.com/driftline/driftline-tui/internal/ui/styles"
)

func newTestModel() Model {
	me := model.User{UID: "me", Name: "Me", Email: "me@x.com", Provider: model.ProviderPassword}
	other := model.User{UID: "a1", Name: "Alice", Email: "alice@x.com", Provider: model.ProviderPassword}
	conv := model.NewConversation(me, other)
	svc := messaging.NewService(backend.NewClient())
	m := New(styles.NewTheme("dark"), svc, conv, me, true)
	m.SetSize(100, 30)
	return m
}

func testThread() []model.Message {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return []model.Message{
		{ID: "m1", Text: "hey there", SenderID: "a1", SenderName: "Alice", CreatedAt: base, Type: "text"},
		{ID: "m2", Text: "hi alice", SenderID: "me", SenderName: "Me", CreatedAt: base.Add(time.Minute), Type: "text"},
	}
}

func TestHeaderShowsOtherParticipant(t *testing.T) {
	m := newTestModel()
	if m.Other().DisplayName != "Alice" {
		t.Fatalf("expected other participant Alice, got %q", m.Other().DisplayName)
	}
	if !strings.Contains(m.View(), "Alice") {
		t.Error("header must show the other participant")
	}
}

func TestMessagesMsgPopulatesThread(t *testing.T) {
	m := newTestModel()

	m, _ = m.Update(MessagesMsg{ConversationID: m.ConversationID(), Messages: testThread()})
	if !m.loaded {
		t.Error("thread must be marked loaded")
	}

	out := m.View()
	if !strings.Contains(out, "hey there") || !strings.Contains(out, "hi alice") {
		t.Errorf("thread missing messages:\n%s", out)
	}
}

func TestMessagesMsgIgnoresOtherConversations(t *testing.T) {
	m := newTestModel()

	m, _ = m.Update(MessagesMsg{ConversationID: "x_y", Messages: testThread()})
	if m.loaded || len(m.msgs) != 0 {
		t.Error("thread must ignore snapshots for other conversations")
	}
}

func TestEnterSendsAndKeepsDraftInFlight(t *testing.T) {
	m := newTestModel()
	m.input.SetValue("hello")

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected a send command")
	}
	if m.input.Value() != "hello" {
		t.Errorf("draft must stay until the send resolves, got %q", m.input.Value())
	}
	if !m.sending {
		t.Error("send must set the sending flag")
	}

	// A second enter while the send is in flight must not double-send.
	m, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Error("enter while sending must be a no-op")
	}

	m, _ = m.Update(sentMsg{})
	if m.input.Value() != "" {
		t.Error("successful send must clear the input")
	}
}

func TestSendFailureKeepsDraftForRetry(t *testing.T) {
	m := newTestModel()
	m.input.SetValue("hello")

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = m.Update(sentMsg{err: errors.New("network down")})
	if m.input.Value() != "hello" {
		t.Errorf("failed send must keep the draft, got %q", m.input.Value())
	}
	if m.sending {
		t.Error("failure must clear the sending flag")
	}
}

func TestEnterOnBlankIsNoOp(t *testing.T) {
	m := newTestModel()
	m.input.SetValue("   ")

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Error("blank input must not produce a send command")
	}
	if m.sending {
		t.Error("blank input must not set the sending flag")
	}
}

func TestSendFailureEmitsSendFailed(t *testing.T) {
	m := newTestModel()
	m.sending = true

	boom := errors.New("network down")
	m, cmd := m.Update(sentMsg{err: boom})
	if m.sending {
		t.Error("failure must clear the sending flag")
	}
	if cmd == nil {
		t.Fatal("expected a send-failed command")
	}
	failed, ok := cmd().(SendFailedMsg)
	if !ok {
		t.Fatalf("expected SendFailedMsg, got %T", cmd())
	}
	if !errors.Is(failed.Err, boom) {
		t.Errorf("unexpected error %v", failed.Err)
	}
}

func TestEscEmitsLeave(t *testing.T) {
	m := newTestModel()
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if cmd == nil {
		t.Fatal("expected a leave command")
	}
	if _, ok := cmd().(LeaveMsg); !ok {
		t.Fatalf("expected LeaveMsg, got %T", cmd())
	}
}

func TestEmptyThreadShowsPlaceholder(t *testing.T) {
	m := newTestModel()
	m, _ = m.Update(MessagesMsg{ConversationID: m.ConversationID(), Messages: nil})

	if !strings.Contains(m.View(), "No messages yet") {
		t.Error("empty thread must show the placeholder")
	}
}
