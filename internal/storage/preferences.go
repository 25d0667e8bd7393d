// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import "fmt"

// Theme is the persisted colour scheme preference.
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// ParseTheme validates a theme name.
func ParseTheme(s string) (Theme, error) {
	switch Theme(s) {
	case ThemeDark, ThemeLight:
		return Theme(s), nil
	}
	return "", fmt.Errorf("unknown theme %q (want light or dark)", s)
}

// Preferences stores user settings that live next to the conversations.
type Preferences struct {
	backend  Backend
	fallback Theme
}

// NewPreferences returns preferences backed by backend. fallback is reported
// when nothing (or garbage) is stored; an empty fallback means dark.
func NewPreferences(backend Backend, fallback Theme) *Preferences {
	if fallback != ThemeLight {
		fallback = ThemeDark
	}
	return &Preferences{backend: backend, fallback: fallback}
}

// Theme returns the stored theme.
func (p *Preferences) Theme() (Theme, error) {
	raw, ok, err := p.backend.Get(KeyTheme)
	if err != nil {
		return p.fallback, fmt.Errorf("read theme: %w", err)
	}
	if !ok {
		return p.fallback, nil
	}
	t, err := ParseTheme(raw)
	if err != nil {
		return p.fallback, nil
	}
	return t, nil
}

// SetTheme persists t.
func (p *Preferences) SetTheme(t Theme) error {
	if _, err := ParseTheme(string(t)); err != nil {
		return err
	}
	if err := p.backend.Set(KeyTheme, string(t)); err != nil {
		return fmt.Errorf("save theme: %w", err)
	}
	return nil
}

// ToggleTheme flips between light and dark and returns the new value.
func (p *Preferences) ToggleTheme() (Theme, error) {
	current, err := p.Theme()
	if err != nil {
		return current, err
	}
	next := ThemeLight
	if current == ThemeLight {
		next = ThemeDark
	}
	return next, p.SetTheme(next)
}
