// Copyright (c) 2025 Driftline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func authedTestClient(url string) *Client {
	c := NewClient().WithBaseURL(url)
	c.SetToken("tok-test")
	return c
}

func TestGetDocument(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/documents/users/u1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"id":"u1","fields":{"name":"Alice","email":"alice@x.com"}}`))
	}))
	defer server.Close()

	client := authedTestClient(server.URL)

	var out struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := client.GetDocument(context.Background(), "users", "u1", &out); err != nil {
		t.Fatalf("GetDocument failed: %v", err)
	}
	if out.Name != "Alice" || out.Email != "alice@x.com" {
		t.Errorf("decoded = %+v", out)
	}
}

func TestGetDocumentNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"code":"NOT_FOUND","message":"no such document"}}`))
	}))
	defer server.Close()

	client := authedTestClient(server.URL)
	var out map[string]any
	err := client.GetDocument(context.Background(), "conversations", "a_b", &out)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetDocumentRequiresAuth(t *testing.T) {
	client := NewClient()
	var out map[string]any
	err := client.GetDocument(context.Background(), "users", "u1", &out)
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("expected ErrNotAuthenticated, got %v", err)
	}
}

func TestSetAndMergeDocument(t *testing.T) {
	type call struct {
		method string
		path   string
		body   string
	}
	var calls []call
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		calls = append(calls, call{r.Method, r.URL.Path, string(body)})
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := authedTestClient(server.URL)
	ctx := context.Background()

	if err := client.SetDocument(ctx, "users", "u1", map[string]string{"name": "Alice"}); err != nil {
		t.Fatalf("SetDocument failed: %v", err)
	}
	if err := client.MergeDocument(ctx, "users", "u1", map[string]string{"photoURL": "http://x/a.png"}); err != nil {
		t.Fatalf("MergeDocument failed: %v", err)
	}

	if len(calls) != 2 {
		t.Fatalf("calls = %d, want 2", len(calls))
	}
	if calls[0].method != http.MethodPut || calls[0].path != "/v1/documents/users/u1" {
		t.Errorf("set call = %+v", calls[0])
	}
	if calls[1].method != http.MethodPatch {
		t.Errorf("merge call method = %s, want PATCH", calls[1].method)
	}
}

func TestCreateDocument(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/documents/conversations/a_b/messages" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`{"id":"msg-42"}`))
	}))
	defer server.Close()

	client := authedTestClient(server.URL)
	id, err := client.CreateDocument(context.Background(), "conversations/a_b/messages", map[string]string{"text": "hi"})
	if err != nil {
		t.Fatalf("CreateDocument failed: %v", err)
	}
	if id != "msg-42" {
		t.Errorf("id = %q, want msg-42", id)
	}
}

func TestListDocuments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("orderBy") != "createdAt" {
			t.Errorf("orderBy = %q", q.Get("orderBy"))
		}
		if q.Get("direction") != "" {
			t.Errorf("direction should be absent for ascending, got %q", q.Get("direction"))
		}
		w.Write([]byte(`{"documents":[{"id":"m1","fields":{"text":"a"}},{"id":"m2","fields":{"text":"b"}}]}`))
	}))
	defer server.Close()

	client := authedTestClient(server.URL)
	docs, err := client.ListDocuments(context.Background(), "conversations/a_b/messages", ListOptions{OrderBy: "createdAt"})
	if err != nil {
		t.Fatalf("ListDocuments failed: %v", err)
	}
	if len(docs) != 2 || docs[0].ID != "m1" {
		t.Errorf("docs = %+v", docs)
	}
}

func TestCommit(t *testing.T) {
	var got commitRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/documents:commit" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("bad commit body: %v", err)
		}
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := authedTestClient(server.URL)
	err := client.Commit(context.Background(), []Write{
		{Path: "conversations/a_b/messages", Data: map[string]string{"text": "hi"}},
		{Path: "conversations", ID: "a_b", Data: map[string]any{"lastMessage": "hi"}, Merge: true},
	})
	if err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	if len(got.Writes) != 2 {
		t.Fatalf("writes = %d, want 2", len(got.Writes))
	}
	if !got.Writes[1].Merge {
		t.Error("second write should be a merge")
	}
}

func TestCommitEmptyIsNoOp(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	client := authedTestClient(server.URL)
	if err := client.Commit(context.Background(), nil); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if called {
		t.Error("empty commit should not hit the server")
	}
}

func TestListOptionsQuery(t *testing.T) {
	if q := (ListOptions{}).query(); q != "" {
		t.Errorf("empty options query = %q", q)
	}
	q := (ListOptions{OrderBy: "lastUpdated", Descending: true, Limit: 20}).query()
	if q != "?direction=desc&limit=20&orderBy=lastUpdated" {
		t.Errorf("query = %q", q)
	}
}
