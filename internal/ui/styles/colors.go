// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "github.com/charmbracelet/lipgloss"

// Palette is one complete set of colors. Kryptonite switches palettes
// explicitly (ctrl+t) instead of relying on AdaptiveColor, so the user's
// choice wins over whatever the terminal reports.
type Palette struct {
	Name string

	// Accent is the kryptonite green used for the brand and focus rings
	Accent     lipgloss.Color
	AccentDeep lipgloss.Color

	Surface    lipgloss.Color
	SurfaceDim lipgloss.Color
	Overlay    lipgloss.Color

	TextPrimary   lipgloss.Color
	TextSecondary lipgloss.Color
	TextMuted     lipgloss.Color

	UserBubbleFg      lipgloss.Color
	UserBubbleBorder  lipgloss.Color
	ModelBubbleFg     lipgloss.Color
	ModelBubbleBorder lipgloss.Color

	Danger  lipgloss.Color
	Warning lipgloss.Color

	// GlamourStyle is the glamour standard style matching this palette
	GlamourStyle string
	// ChromaStyle is the chroma style for highlighted code
	ChromaStyle string
}

// DarkPalette is the default look.
var DarkPalette = Palette{
	Name:              "dark",
	Accent:            lipgloss.Color("#39FF14"),
	AccentDeep:        lipgloss.Color("#14532D"),
	Surface:           lipgloss.Color("#0D1117"),
	SurfaceDim:        lipgloss.Color("#161B22"),
	Overlay:           lipgloss.Color("#30363D"),
	TextPrimary:       lipgloss.Color("#E6EDF3"),
	TextSecondary:     lipgloss.Color("#A6ADC8"),
	TextMuted:         lipgloss.Color("#6E7681"),
	UserBubbleFg:      lipgloss.Color("#DCFCE7"),
	UserBubbleBorder:  lipgloss.Color("#22C55E"),
	ModelBubbleFg:     lipgloss.Color("#E6EDF3"),
	ModelBubbleBorder: lipgloss.Color("#30363D"),
	Danger:            lipgloss.Color("#FB7185"),
	Warning:           lipgloss.Color("#FBBF24"),
	GlamourStyle:      "dark",
	ChromaStyle:       "monokai",
}

// LightPalette is toggled with ctrl+t.
var LightPalette = Palette{
	Name:              "light",
	Accent:            lipgloss.Color("#15803D"),
	AccentDeep:        lipgloss.Color("#DCFCE7"),
	Surface:           lipgloss.Color("#FFFFFF"),
	SurfaceDim:        lipgloss.Color("#F6F8FA"),
	Overlay:           lipgloss.Color("#D0D7DE"),
	TextPrimary:       lipgloss.Color("#1F2328"),
	TextSecondary:     lipgloss.Color("#57606A"),
	TextMuted:         lipgloss.Color("#8C959F"),
	UserBubbleFg:      lipgloss.Color("#14532D"),
	UserBubbleBorder:  lipgloss.Color("#16A34A"),
	ModelBubbleFg:     lipgloss.Color("#1F2328"),
	ModelBubbleBorder: lipgloss.Color("#D0D7DE"),
	Danger:            lipgloss.Color("#E11D48"),
	Warning:           lipgloss.Color("#D97706"),
	GlamourStyle:      "light",
	ChromaStyle:       "github",
}
