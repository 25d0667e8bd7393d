// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_Drivers(t *testing.T) {
	dir := t.TempDir()

	b, err := Open(DriverMemory, "", nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryBackend{}, b)

	b, err = Open(DriverFile, filepath.Join(dir, "state.json"), nil)
	require.NoError(t, err)
	assert.IsType(t, &FileBackend{}, b)

	b, err = Open(DriverSQLite, filepath.Join(dir, "state.db"), nil)
	require.NoError(t, err)
	assert.IsType(t, &SQLiteBackend{}, b)
	b.Close()

	_, err = Open("redis", "", nil)
	assert.Error(t, err)
}

func TestBackends_GetSetRemove(t *testing.T) {
	dir := t.TempDir()
	file, err := NewFileBackend(filepath.Join(dir, "state.json"), nil)
	require.NoError(t, err)
	sqlite, err := NewSQLiteBackend(filepath.Join(dir, "state.db"), nil)
	require.NoError(t, err)
	defer sqlite.Close()

	backends := map[string]Backend{
		"memory": NewMemoryBackend(),
		"file":   file,
		"sqlite": sqlite,
	}
	for name, b := range backends {
		t.Run(name, func(t *testing.T) {
			_, ok, err := b.Get("missing")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, b.Set("a", "1"))
			require.NoError(t, b.SetMany(map[string]string{"a": "2", "b": "3"}))

			v, ok, err := b.Get("a")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "2", v)

			require.NoError(t, b.Remove("a", "b", "never-set"))
			_, ok, _ = b.Get("b")
			assert.False(t, ok)
		})
	}
}

func TestFileBackend_CorruptFileIsBackedUp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("][ nope"), 0600))

	b, err := NewFileBackend(path, nil)
	require.NoError(t, err)

	_, ok, _ := b.Get(KeyConversations)
	assert.False(t, ok)

	backup, err := os.ReadFile(path + ".corrupt")
	require.NoError(t, err)
	assert.Equal(t, "][ nope", string(backup))
}

func TestFileBackend_FilePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits not meaningful on windows")
	}
	path := filepath.Join(t.TempDir(), "state.json")
	b, err := NewFileBackend(path, nil)
	require.NoError(t, err)
	require.NoError(t, b.Set(KeyTheme, "dark"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

// =============================================================================
// PREFERENCES
// =============================================================================

func TestPreferences_Theme(t *testing.T) {
	backend := NewMemoryBackend()
	p := NewPreferences(backend, "")

	theme, err := p.Theme()
	require.NoError(t, err)
	assert.Equal(t, ThemeDark, theme)

	next, err := p.ToggleTheme()
	require.NoError(t, err)
	assert.Equal(t, ThemeLight, next)

	stored, _, _ := backend.Get(KeyTheme)
	assert.Equal(t, "light", stored)

	next, err = p.ToggleTheme()
	require.NoError(t, err)
	assert.Equal(t, ThemeDark, next)

	assert.Error(t, p.SetTheme("solarized"))
}

func TestPreferences_GarbageStoredFallsBack(t *testing.T) {
	backend := NewMemoryBackend()
	require.NoError(t, backend.Set(KeyTheme, "neon"))

	theme, err := NewPreferences(backend, ThemeLight).Theme()
	require.NoError(t, err)
	assert.Equal(t, ThemeLight, theme)
}
