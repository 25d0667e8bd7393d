// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewTheme(t *testing.T) {
	dark := NewTheme(true)
	assert.True(t, dark.IsDark())
	assert.Equal(t, "dark", dark.Palette.GlamourStyle)

	light := NewTheme(false)
	assert.False(t, light.IsDark())
	assert.Equal(t, "light", light.Palette.GlamourStyle)
}

func TestToggledKeepsSize(t *testing.T) {
	th := NewTheme(true)
	th.SetSize(120, 40)

	next := th.Toggled()
	assert.False(t, next.IsDark())
	assert.Equal(t, 120, next.Width)
	assert.Equal(t, 40, next.Height)
	assert.True(t, next.Toggled().IsDark())
}

func TestResolveDarkExplicit(t *testing.T) {
	assert.True(t, ResolveDark("dark"))
	assert.False(t, ResolveDark("light"))
}

func TestBubbleWidthBounds(t *testing.T) {
	th := NewTheme(true)
	th.SetSize(10, 10)
	assert.Equal(t, 20, th.BubbleWidth())
	th.SetSize(300, 10)
	assert.Equal(t, 100, th.BubbleWidth())
	th.SetSize(80, 10)
	assert.Equal(t, 70, th.BubbleWidth())
}
