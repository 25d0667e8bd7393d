// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides conversation persistence for kryptonite.
//
// ConversationStore is the single owner of every conversation and of the
// current conversation id. Each mutation rewrites the full set through a
// Backend before the call returns; there is no batching.
//
// # Backends
//
//   - FileBackend: one JSON file written with util.AtomicWriteFile
//   - SQLiteBackend: modernc.org/sqlite, one kv table, WAL journal
//   - MemoryBackend: process lifetime only
//
// # Usage
//
//	backend, err := storage.Open(storage.DriverFile, "~/.kryptonite/state.json", logger)
//	store := storage.NewConversationStore(backend, storage.WithLogger(logger))
//	if err := store.Load(); err != nil {
//	    return err
//	}
//	id := store.CurrentID()
package storage
