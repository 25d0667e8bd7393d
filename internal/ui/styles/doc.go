// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the kryptonite TUI.

There are two palettes, DarkPalette and LightPalette. A Theme is built for
one of them and toggled as a whole with Theme.Toggled; the choice is
persisted by the storage package so it survives restarts.

# Resolving the starting palette

	dark := styles.ResolveDark(cfg.UI.Theme) // "dark", "light" or "auto"
	theme := styles.NewTheme(dark)

"auto" asks the terminal through termenv.
*/
package styles
