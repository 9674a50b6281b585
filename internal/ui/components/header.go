// Copyright (c) 2025 Driftline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/driftline/driftline-tui/internal/ui/styles"
	"github.com/driftline/driftline-tui/internal/util"
)

// =============================================================================
// HEADER COMPONENT
// =============================================================================

// Header is the title bar rendered at the top of every view. It shows the
// brand on the left and context on the right: the signed-in user on home,
// the other participant in a chat.
type Header struct {
	Title    string
	Subtitle string
	Width    int
	theme    *styles.Theme
}

// NewHeader creates a header with the driftline brand.
func NewHeader(theme *styles.Theme) *Header {
	return &Header{
		Title: "driftline",
		Width: 80,
		theme: theme,
	}
}

// SetWidth updates the header width.
func (h *Header) SetWidth(width int) {
	h.Width = width
}

// SetContext updates the right-hand context text.
func (h *Header) SetContext(subtitle string) {
	h.Subtitle = subtitle
}

// View renders the header.
func (h *Header) View() string {
	width := h.Width
	if width < 40 {
		width = 40
	}
	innerWidth := width - 4

	brand := h.theme.HeaderBrand.Render(h.Title)

	subtitle := h.Subtitle
	// Leave room for the brand and a two-space gap.
	maxSubtitle := innerWidth - util.StringWidth(h.Title) - 2
	if maxSubtitle > 0 {
		subtitle = util.TruncateWidth(subtitle, maxSubtitle)
	} else {
		subtitle = ""
	}
	right := h.theme.HeaderSubtitle.Render(subtitle)

	gap := innerWidth - util.StringWidth(h.Title) - util.StringWidth(subtitle)
	if gap < 1 {
		gap = 1
	}
	line := brand + lipgloss.NewStyle().Width(gap).Render("") + right

	return h.theme.Header.Width(width).Render(line)
}
