// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session tracks transient per-process chat state.
//
// The current conversation id is persisted by package storage; everything
// here (the voice flag and the pending-turn registry) dies with the process.
//
// # Usage
//
//	state := session.NewState()
//	turn, err := state.BeginTurn(convID, isVoice)
//	if errors.Is(err, session.ErrTurnInFlight) {
//	    return
//	}
//	defer state.EndTurn(turn)
package session
