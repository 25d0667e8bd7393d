// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Storage keys. They match what the browser build kept in localStorage so an
// exported state file can be moved between the two.
const (
	KeyTheme               = "kryptonite-theme"
	KeyConversations       = "kryptonite-conversations"
	KeyCurrentConversation = "kryptonite-current-conversation"
)

// Driver names accepted by Open.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// =============================================================================
// BACKEND INTERFACE
// =============================================================================

// Backend is a synchronous string key/value store that outlives the process.
//
// SetMany must apply all of its writes or none of them.
type Backend interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	SetMany(values map[string]string) error
	Remove(keys ...string) error
	Close() error
}

// Open returns the backend for driver. path is ignored by the memory driver.
func Open(driver, path string, logger *zap.Logger) (Backend, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch driver {
	case DriverFile, "":
		return NewFileBackend(path, logger)
	case DriverSQLite:
		return NewSQLiteBackend(path, logger)
	case DriverMemory:
		return NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}

// =============================================================================
// MEMORY BACKEND
// =============================================================================

// MemoryBackend keeps values in a map. Nothing survives the process; used by
// tests and --ephemeral sessions.
type MemoryBackend struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{values: make(map[string]string)}
}

// Get returns the value stored under key.
func (b *MemoryBackend) Get(key string) (string, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.values[key]
	return v, ok, nil
}

// Set stores value under key.
func (b *MemoryBackend) Set(key, value string) error {
	return b.SetMany(map[string]string{key: value})
}

// SetMany stores every entry of values.
func (b *MemoryBackend) SetMany(values map[string]string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for k, v := range values {
		b.values[k] = v
	}
	return nil
}

// Remove deletes keys. Missing keys are ignored.
func (b *MemoryBackend) Remove(keys ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, k := range keys {
		delete(b.values, k)
	}
	return nil
}

// Close is a no-op.
func (b *MemoryBackend) Close() error { return nil }
