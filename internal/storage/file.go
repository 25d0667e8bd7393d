// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/jeranaias/kryptonite/internal/util"
)

// FileBackend keeps every key in one JSON object on disk. Each write
// rewrites the whole file atomically.
type FileBackend struct {
	mu     sync.Mutex
	path   string
	values map[string]string
	logger *zap.Logger
}

// NewFileBackend opens (or prepares to create) the state file at path.
//
// A file that exists but is not a JSON object of strings is copied to
// path+".corrupt" and the backend starts empty.
func NewFileBackend(path string, logger *zap.Logger) (*FileBackend, error) {
	if path == "" {
		return nil, fmt.Errorf("file backend: empty path")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &FileBackend{
		path:   path,
		values: make(map[string]string),
		logger: logger,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return b, nil
		}
		return nil, fmt.Errorf("read state file: %w", err)
	}
	if len(data) == 0 {
		return b, nil
	}

	if err := json.Unmarshal(data, &b.values); err != nil {
		backup := path + ".corrupt"
		logger.Warn("state file unreadable, starting empty",
			zap.String("path", path),
			zap.String("backup", backup),
			zap.Error(err))
		if berr := util.BackupFile(path, backup); berr != nil {
			return nil, fmt.Errorf("back up unreadable state file: %w", berr)
		}
		b.values = make(map[string]string)
	}
	return b, nil
}

// Path returns the state file location.
func (b *FileBackend) Path() string {
	return b.path
}

// Get returns the value stored under key.
func (b *FileBackend) Get(key string) (string, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.values[key]
	return v, ok, nil
}

// Set stores value under key and flushes the file.
func (b *FileBackend) Set(key, value string) error {
	return b.SetMany(map[string]string{key: value})
}

// SetMany stores every entry of values with a single file write.
func (b *FileBackend) SetMany(values map[string]string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	next := b.snapshotLocked()
	for k, v := range values {
		next[k] = v
	}
	return b.commitLocked(next)
}

// Remove deletes keys and flushes the file.
func (b *FileBackend) Remove(keys ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	next := b.snapshotLocked()
	for _, k := range keys {
		delete(next, k)
	}
	return b.commitLocked(next)
}

// Close is a no-op; every write is already on disk.
func (b *FileBackend) Close() error { return nil }

func (b *FileBackend) snapshotLocked() map[string]string {
	next := make(map[string]string, len(b.values)+2)
	for k, v := range b.values {
		next[k] = v
	}
	return next
}

// commitLocked writes next to disk and only then makes it the live map, so a
// failed write leaves memory and disk in agreement.
func (b *FileBackend) commitLocked(next map[string]string) error {
	data, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	// SECURITY: conversation history is private, owner read/write only.
	if err := util.AtomicWriteFile(b.path, data, 0600); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	b.values = next
	return nil
}
