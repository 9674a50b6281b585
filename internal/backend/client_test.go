// Copyright (c) 2025 Driftline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(url string) *Client {
	return NewClient().WithBaseURL(url)
}

func TestWithTimeout(t *testing.T) {
	c := NewClient().WithTimeout(5 * time.Second)
	if c.httpClient == sharedHTTPClient {
		t.Error("custom timeout must not mutate the shared client")
	}
	if c.httpClient.Timeout != 5*time.Second {
		t.Errorf("timeout = %v", c.httpClient.Timeout)
	}
	if c.httpClient.Transport != sharedHTTPClient.Transport {
		t.Error("custom timeout must keep the pooled transport")
	}
	if NewClient().WithTimeout(DefaultTimeout).httpClient != sharedHTTPClient {
		t.Error("default timeout must keep the shared client")
	}
}

// =============================================================================
// AUTH TESTS
// =============================================================================

func TestSignUp(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/auth:signUp" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("missing X-Request-ID header")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"uid":"u1","email":"a@x.com","idToken":"tok-1","refreshToken":"ref-1","expiresIn":3600}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	res, err := client.SignUp(context.Background(), "a@x.com", "secret123")
	if err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}
	if res.UID != "u1" || res.IDToken != "tok-1" {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestSignUpEmailExists(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error":{"code":"EMAIL_EXISTS","message":"email already registered"}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.SignUp(context.Background(), "a@x.com", "secret123")
	if err == nil {
		t.Fatal("expected error")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T: %v", err, err)
	}
	if apiErr.Code != CodeEmailExists {
		t.Errorf("code = %q, want %q", apiErr.Code, CodeEmailExists)
	}
}

func TestSignInWithPasswordErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode string
	}{
		{"wrong password", 401, `{"error":{"code":"INVALID_PASSWORD","message":"wrong password"}}`, CodeInvalidPassword},
		{"unknown email", 404, `{"error":{"code":"EMAIL_NOT_FOUND","message":"no such account"}}`, CodeEmailNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := newTestClient(server.URL)
			_, err := client.SignInWithPassword(context.Background(), "a@x.com", "bad")

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected APIError, got %v", err)
			}
			if apiErr.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", apiErr.Code, tt.wantCode)
			}
		})
	}
}

func TestUpdateProfileRequiresToken(t *testing.T) {
	client := NewClient()
	err := client.UpdateProfile(context.Background(), "Alice", "")
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("expected ErrNotAuthenticated, got %v", err)
	}
}

func TestAuthorizationHeader(t *testing.T) {
	var gotAuth atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	client.SetToken("tok-abc")
	if err := client.UpdateProfile(context.Background(), "Alice", ""); err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}
	if got := gotAuth.Load(); got != "Bearer tok-abc" {
		t.Errorf("Authorization = %q, want Bearer tok-abc", got)
	}
}

// =============================================================================
// DEVICE FLOW TESTS
// =============================================================================

func TestDeviceFlow(t *testing.T) {
	var polls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/auth/device":
			w.Write([]byte(`{"deviceCode":"dev-1","userCode":"WXYZ-1234","verificationUrl":"https://driftline.app/device","interval":1,"expiresIn":600}`))
		case "/v1/auth/device:token":
			if polls.Add(1) < 3 {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"error":{"code":"AUTHORIZATION_PENDING","message":"waiting for user"}}`))
				return
			}
			w.Write([]byte(`{"uid":"u2","email":"b@x.com","idToken":"tok-2"}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	auth, err := client.StartDeviceFlow(context.Background(), "github")
	if err != nil {
		t.Fatalf("StartDeviceFlow failed: %v", err)
	}
	if auth.UserCode != "WXYZ-1234" {
		t.Errorf("user code = %q", auth.UserCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	res, err := client.WaitForDeviceToken(ctx, auth, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("WaitForDeviceToken failed: %v", err)
	}
	if res.UID != "u2" || res.Email != "b@x.com" {
		t.Errorf("unexpected result: %+v", res)
	}
	if polls.Load() != 3 {
		t.Errorf("polls = %d, want 3", polls.Load())
	}
}

func TestWaitForDeviceTokenCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":"AUTHORIZATION_PENDING","message":"waiting"}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	auth := &DeviceAuth{DeviceCode: "dev-1", IntervalSec: 1, ExpiresInSec: 600}
	_, err := client.WaitForDeviceToken(ctx, auth, 10*time.Millisecond)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

// =============================================================================
// RETRY TESTS
// =============================================================================

func TestRetryOnServerError(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error":{"code":"INTERNAL","message":"boom"}}`))
			return
		}
		w.Write([]byte(`{"uid":"u1","email":"a@x.com","idToken":"tok-1"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	res, err := client.SignInWithPassword(context.Background(), "a@x.com", "secret123")
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if res.IDToken != "tok-1" {
		t.Errorf("token = %q", res.IDToken)
	}
	if attempts.Load() != 3 {
		t.Errorf("attempts = %d, want 3", attempts.Load())
	}
}

func TestNoRetryOnClientError(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"code":"INVALID_PASSWORD","message":"nope"}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.SignInWithPassword(context.Background(), "a@x.com", "bad")
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts.Load() != 1 {
		t.Errorf("attempts = %d, want 1 (no retry on 4xx)", attempts.Load())
	}
}

func TestAPIErrorIsMapping(t *testing.T) {
	notFound := &APIError{Code: CodeNotFound, Status: 404}
	if !errors.Is(notFound, ErrNotFound) {
		t.Error("404 APIError should match ErrNotFound")
	}

	expired := &APIError{Code: CodeTokenExpired, Status: 401}
	if !errors.Is(expired, ErrAuthFailed) {
		t.Error("401 APIError should match ErrAuthFailed")
	}

	limited := &APIError{Status: 429}
	if !errors.Is(limited, ErrRateLimited) {
		t.Error("429 APIError should match ErrRateLimited")
	}

	if errors.Is(notFound, ErrAuthFailed) {
		t.Error("404 should not match ErrAuthFailed")
	}
}
