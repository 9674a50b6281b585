// Copyright (c) 2025 Driftline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// =============================================================================
// SSE READER TESTS
// =============================================================================

func TestSSEReaderSingleEvent(t *testing.T) {
	input := "event: snapshot\ndata: [{\"id\":\"m1\"}]\n\n"
	reader := NewSSEReader(strings.NewReader(input))

	eventType, data, err := reader.ReadEvent()
	if err != nil {
		t.Fatalf("ReadEvent failed: %v", err)
	}
	if eventType != "snapshot" {
		t.Errorf("event type = %q", eventType)
	}
	if string(data) != `[{"id":"m1"}]` {
		t.Errorf("data = %q", data)
	}

	if _, _, err := reader.ReadEvent(); err != io.EOF {
		t.Errorf("expected EOF, got %v", err)
	}
}

func TestSSEReaderMultipleEvents(t *testing.T) {
	input := "data: first\n\ndata: second\n\n"
	reader := NewSSEReader(strings.NewReader(input))

	_, data, err := reader.ReadEvent()
	if err != nil || string(data) != "first" {
		t.Errorf("first event: %q, %v", data, err)
	}
	_, data, err = reader.ReadEvent()
	if err != nil || string(data) != "second" {
		t.Errorf("second event: %q, %v", data, err)
	}
}

func TestSSEReaderIgnoresComments(t *testing.T) {
	input := ": heartbeat\nid: 7\ndata: payload\n\n"
	reader := NewSSEReader(strings.NewReader(input))

	_, data, err := reader.ReadEvent()
	if err != nil {
		t.Fatalf("ReadEvent failed: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("data = %q", data)
	}
}

func TestSSEReaderCRLF(t *testing.T) {
	input := "data: windows\r\n\r\n"
	reader := NewSSEReader(strings.NewReader(input))

	_, data, err := reader.ReadEvent()
	if err != nil || string(data) != "windows" {
		t.Errorf("event: %q, %v", data, err)
	}
}

func TestSSEReaderDataAtEOF(t *testing.T) {
	// Stream cut mid-event: trailing data without a blank line.
	input := "data: partial"
	reader := NewSSEReader(strings.NewReader(input))

	_, data, err := reader.ReadEvent()
	if err != nil || string(data) != "partial" {
		t.Errorf("event: %q, %v", data, err)
	}
}

// =============================================================================
// WATCH TESTS
// =============================================================================

func TestWatchDeliversSnapshots(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/documents/conversations/a_b/messages:watch" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Accept") != "text/event-stream" {
			t.Errorf("Accept = %q", r.Header.Get("Accept"))
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: snapshot\ndata: [{\"id\":\"m1\",\"fields\":{\"text\":\"hi\"}}]\n\n")
		fmt.Fprint(w, "event: snapshot\ndata: [{\"id\":\"m1\",\"fields\":{\"text\":\"hi\"}},{\"id\":\"m2\",\"fields\":{\"text\":\"yo\"}}]\n\n")
	}))
	defer server.Close()

	client := authedTestClient(server.URL)

	var sizes []int
	err := client.Watch(context.Background(), "conversations/a_b/messages", ListOptions{}, func(snap Snapshot) {
		sizes = append(sizes, len(snap.Documents))
	})
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	if len(sizes) != 2 || sizes[0] != 1 || sizes[1] != 2 {
		t.Errorf("snapshot sizes = %v, want [1 2]", sizes)
	}
}

func TestWatchSkipsMalformedEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "event: snapshot\ndata: not-json\n\n")
		fmt.Fprint(w, "event: snapshot\ndata: [{\"id\":\"m1\",\"fields\":{}}]\n\n")
	}))
	defer server.Close()

	client := authedTestClient(server.URL)

	got := 0
	err := client.Watch(context.Background(), "conversations/a_b/messages", ListOptions{}, func(snap Snapshot) {
		got++
	})
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	if got != 1 {
		t.Errorf("snapshots = %d, want 1 (malformed skipped)", got)
	}
}

func TestWatchErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"code":"NOT_FOUND","message":"gone"}}`))
	}))
	defer server.Close()

	client := authedTestClient(server.URL)
	err := client.Watch(context.Background(), "conversations/a_b/messages", ListOptions{}, func(Snapshot) {})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestWatchRequiresAuth(t *testing.T) {
	client := NewClient()
	err := client.Watch(context.Background(), "users", ListOptions{}, func(Snapshot) {})
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("expected ErrNotAuthenticated, got %v", err)
	}
}

func TestWatchWithRetryStopsOnClientError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"code":"FORBIDDEN","message":"not a participant"}}`))
	}))
	defer server.Close()

	client := authedTestClient(server.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := client.WatchWithRetry(ctx, "conversations/a_b/messages", ListOptions{}, 10*time.Millisecond, func(Snapshot) {})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusForbidden {
		t.Errorf("expected 403 APIError, got %v", err)
	}
}

func TestWatchWithRetryReconnects(t *testing.T) {
	var connects atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		connects.Add(1)
		fmt.Fprint(w, "event: snapshot\ndata: []\n\n")
		// Close the stream; the client should reconnect.
	}))
	defer server.Close()

	client := authedTestClient(server.URL)
	ctx, cancel := context.WithCancel(context.Background())

	snapshots := 0
	done := make(chan error, 1)
	go func() {
		done <- client.WatchWithRetry(ctx, "users", ListOptions{}, 10*time.Millisecond, func(Snapshot) {
			snapshots++
			if snapshots >= 3 {
				cancel()
			}
		})
	}()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatal("watch did not reconnect in time")
	}

	if connects.Load() < 3 {
		t.Errorf("connects = %d, want >= 3", connects.Load())
	}
}
