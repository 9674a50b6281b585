// Copyright (c) 2025 Driftline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"testing"

	"github.com/driftline/driftline-tui/internal/ui/styles"
)

func TestHeaderShowsBrandAndContext(t *testing.T) {
	h := NewHeader(styles.NewTheme("dark"))
	h.SetWidth(80)
	h.SetContext("Signed in as Alice")

	out := h.View()
	if !strings.Contains(out, "driftline") {
		t.Error("header missing brand")
	}
	if !strings.Contains(out, "Signed in as Alice") {
		t.Error("header missing context")
	}
}

func TestHeaderTruncatesLongContext(t *testing.T) {
	h := NewHeader(styles.NewTheme("dark"))
	h.SetWidth(40)
	h.SetContext(strings.Repeat("very long context ", 10))

	// Must not panic and must still render the brand.
	out := h.View()
	if !strings.Contains(out, "driftline") {
		t.Error("header missing brand under narrow width")
	}
}
