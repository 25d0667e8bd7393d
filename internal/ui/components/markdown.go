// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/kryptonite/internal/ui/styles"
)

// MarkdownRenderer renders model replies with glamour. Term renderers are
// expensive to build, so one is cached per (style, width).
type MarkdownRenderer struct {
	mu       sync.Mutex
	style    string
	width    int
	renderer *glamour.TermRenderer
	override string
}

// NewMarkdownRenderer creates a renderer. override, when set, names a
// glamour style to use regardless of the palette.
func NewMarkdownRenderer(override string) *MarkdownRenderer {
	return &MarkdownRenderer{override: override}
}

// Render renders text for palette at width. If glamour fails the text is
// returned with only its code blocks highlighted by chroma.
func (m *MarkdownRenderer) Render(text string, width int, palette styles.Palette) string {
	r, err := m.termRenderer(width, palette)
	if err == nil {
		if out, err := r.Render(text); err == nil {
			return strings.Trim(out, "\n")
		}
	}
	return HighlightCodeBlocks(text, width, palette)
}

func (m *MarkdownRenderer) termRenderer(width int, palette styles.Palette) (*glamour.TermRenderer, error) {
	style := palette.GlamourStyle
	if m.override != "" {
		style = m.override
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.renderer != nil && m.style == style && m.width == width {
		return m.renderer, nil
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
		glamour.WithEmoji(),
	)
	if err != nil {
		return nil, err
	}
	m.renderer, m.style, m.width = r, style, width
	return r, nil
}
