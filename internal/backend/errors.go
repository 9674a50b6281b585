// Copyright (c) 2025 Driftline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Error codes returned by the backend. These are stable strings the UI maps
// to user-facing messages.
const (
	CodeEmailExists        = "EMAIL_EXISTS"
	CodeInvalidPassword    = "INVALID_PASSWORD"
	CodeEmailNotFound      = "EMAIL_NOT_FOUND"
	CodeCredentialConflict = "CREDENTIAL_CONFLICT"
	CodeTokenExpired       = "TOKEN_EXPIRED"
	CodeNotFound           = "NOT_FOUND"
	CodeAuthPending        = "AUTHORIZATION_PENDING"
	CodeDeviceExpired      = "DEVICE_CODE_EXPIRED"
)

// Error variables for common backend failures.
var (
	// ErrNotAuthenticated indicates a request that requires a token was made
	// without one.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrAuthFailed indicates the token was rejected (invalid or expired).
	ErrAuthFailed = errors.New("authentication failed")

	// ErrNotFound indicates the requested document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrRateLimited indicates too many requests were made.
	ErrRateLimited = errors.New("rate limited")

	// ErrDevicePending indicates the device-code grant has not been approved
	// yet; callers should keep polling.
	ErrDevicePending = errors.New("device authorization pending")

	// ErrDeviceExpired indicates the device code expired before approval.
	ErrDeviceExpired = errors.New("device code expired")
)

// APIError represents a structured error response from the backend.
type APIError struct {
	Code    string
	Message string
	Status  int
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("backend error [%s] (HTTP %d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("backend error (HTTP %d): %s", e.Status, e.Message)
}

// Is maps status-level APIErrors onto the package sentinels so callers can
// use errors.Is without inspecting codes.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Status == http.StatusNotFound || e.Code == CodeNotFound
	case ErrAuthFailed:
		return e.Status == http.StatusUnauthorized || e.Code == CodeTokenExpired
	case ErrRateLimited:
		return e.Status == http.StatusTooManyRequests
	}
	return false
}

// apiErrorResponse is the wire shape of backend error bodies.
type apiErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// decodeError converts an HTTP error response into an APIError. Unparseable
// bodies fall back to the raw text.
func decodeError(statusCode int, body []byte) error {
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		return &APIError{
			Code:    apiErr.Error.Code,
			Message: apiErr.Error.Message,
			Status:  statusCode,
		}
	}
	return &APIError{
		Message: string(body),
		Status:  statusCode,
	}
}
