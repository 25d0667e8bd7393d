// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds all the styled components for the application.
type Theme struct {
	Palette Palette

	// Layout dimensions
	Width  int
	Height int

	// ==========================================================================
	// HEADER STYLES
	// ==========================================================================

	Header      lipgloss.Style
	HeaderBrand lipgloss.Style
	HeaderTitle lipgloss.Style

	// ==========================================================================
	// MESSAGE BUBBLE STYLES
	// ==========================================================================

	UserBubble  lipgloss.Style
	ModelBubble lipgloss.Style
	RoleLabel   lipgloss.Style

	// ==========================================================================
	// INPUT AREA STYLES
	// ==========================================================================

	InputContainer   lipgloss.Style
	InputPrompt      lipgloss.Style
	InputPlaceholder lipgloss.Style

	// ==========================================================================
	// STATUS AND OVERLAYS
	// ==========================================================================

	StatusBar    lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style
	Typing       lipgloss.Style
	ErrorText    lipgloss.Style

	HistoryPanel        lipgloss.Style
	HistoryTitle        lipgloss.Style
	HistoryItem         lipgloss.Style
	HistoryItemSelected lipgloss.Style
	HistoryItemCurrent  lipgloss.Style

	ModalBox    lipgloss.Style
	ModalTitle  lipgloss.Style
	ModalButton lipgloss.Style
}

// IsDark reports whether the dark palette is active.
func (t *Theme) IsDark() bool {
	return t.Palette.Name == DarkPalette.Name
}

// NewTheme creates a theme for the dark or light palette.
func NewTheme(dark bool) *Theme {
	p := LightPalette
	if dark {
		p = DarkPalette
	}
	t := &Theme{Palette: p}
	t.initStyles()
	return t
}

// Toggled returns a theme with the other palette and the same size.
func (t *Theme) Toggled() *Theme {
	next := NewTheme(!t.IsDark())
	next.SetSize(t.Width, t.Height)
	return next
}

// TerminalIsDark asks the terminal for its background. Used when the
// configured theme is "auto" and nothing has been persisted yet.
func TerminalIsDark() bool {
	return termenv.HasDarkBackground()
}

// ResolveDark turns a configured theme name into a palette choice.
func ResolveDark(setting string) bool {
	switch setting {
	case "light":
		return false
	case "dark":
		return true
	default:
		return TerminalIsDark()
	}
}

// initStyles initializes all the lip gloss styles.
func (t *Theme) initStyles() {
	p := t.Palette

	t.Header = lipgloss.NewStyle().
		Background(p.SurfaceDim).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(p.Accent).
		Padding(0, 1)

	t.HeaderBrand = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.Accent)

	t.HeaderTitle = lipgloss.NewStyle().
		Foreground(p.TextSecondary).
		Italic(true)

	// Message bubbles
	t.UserBubble = lipgloss.NewStyle().
		Foreground(p.UserBubbleFg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(p.UserBubbleBorder).
		Padding(0, 1).
		MarginLeft(4)

	t.ModelBubble = lipgloss.NewStyle().
		Foreground(p.ModelBubbleFg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(p.ModelBubbleBorder).
		Padding(0, 1).
		MarginRight(4)

	t.RoleLabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.Accent)

	// Input area
	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(p.Overlay).
		Padding(0, 1)

	t.InputPrompt = lipgloss.NewStyle().
		Foreground(p.Accent).
		Bold(true)

	t.InputPlaceholder = lipgloss.NewStyle().
		Foreground(p.TextMuted).
		Italic(true)

	// Status bar
	t.StatusBar = lipgloss.NewStyle().
		Foreground(p.TextSecondary).
		Padding(0, 1)

	t.ShortcutKey = lipgloss.NewStyle().
		Foreground(p.Accent).
		Bold(true)

	t.ShortcutDesc = lipgloss.NewStyle().
		Foreground(p.TextMuted)

	t.Typing = lipgloss.NewStyle().
		Foreground(p.Accent).
		Italic(true)

	t.ErrorText = lipgloss.NewStyle().
		Foreground(p.Danger).
		Bold(true)

	// History panel
	t.HistoryPanel = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(p.Accent).
		Padding(0, 1)

	t.HistoryTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.Accent).
		MarginBottom(1)

	t.HistoryItem = lipgloss.NewStyle().
		Foreground(p.TextPrimary)

	t.HistoryItemSelected = lipgloss.NewStyle().
		Foreground(p.Surface).
		Background(p.Accent).
		Bold(true)

	t.HistoryItemCurrent = lipgloss.NewStyle().
		Foreground(p.Accent)

	// Confirmation modal
	t.ModalBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(p.Warning).
		Padding(1, 3).
		Align(lipgloss.Center)

	t.ModalTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.Warning)

	t.ModalButton = lipgloss.NewStyle().
		Foreground(p.Accent).
		Bold(true)
}

// SetSize updates the theme dimensions for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// BubbleWidth is the usable content width for a message bubble.
func (t *Theme) BubbleWidth() int {
	w := t.Width - 10
	if w > 100 {
		w = 100
	}
	if w < 20 {
		w = 20
	}
	return w
}
