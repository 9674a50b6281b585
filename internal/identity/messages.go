// Copyright (c) 2025 Driftline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package identity

import (
	"context"
	"errors"

	"github.com/driftline/driftline-tui/internal/backend"
)

// Describe maps a known auth failure to the message shown in the UI.
// Unmapped errors surface their own message text.
func Describe(err error) string {
	if err == nil {
		return ""
	}

	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case backend.CodeEmailExists:
			return "This email is already registered."
		case backend.CodeInvalidPassword:
			return "Incorrect password."
		case backend.CodeEmailNotFound:
			return "No account found with this email."
		case backend.CodeCredentialConflict:
			return "An account already exists with the same email but different sign-in method."
		}
	}

	switch {
	case errors.Is(err, ErrPasswordTooShort):
		return "Password must be at least 6 characters."
	case errors.Is(err, ErrMissingFields):
		return "Please fill in all fields."
	case errors.Is(err, ErrInvalidEmail):
		return "Please enter a valid email address."
	case errors.Is(err, backend.ErrDeviceExpired):
		return "Sign-in code expired. Please try again."
	case errors.Is(err, context.Canceled):
		return "Sign-in cancelled."
	}

	// Everything else is shown verbatim.
	if apiErr != nil && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}
