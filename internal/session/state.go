// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrTurnInFlight is returned by BeginTurn when the conversation is still
// waiting on a reply.
var ErrTurnInFlight = errors.New("a reply is still pending for this conversation")

// =============================================================================
// TURN
// =============================================================================

// Turn is one pending user -> model exchange.
type Turn struct {
	ConversationID string
	IsVoice        bool
	Started        time.Time
}

// =============================================================================
// SESSION STATE
// =============================================================================

// State is the process-lifetime session: which input mode the user last
// used and which conversations are waiting on a reply. Nothing here is
// persisted.
type State struct {
	mu sync.Mutex

	sessionID string
	startTime time.Time

	lastInputWasVoice bool
	inFlight          map[string]*Turn

	now func() time.Time
}

// NewState creates an empty session.
func NewState() *State {
	return newStateWithClock(time.Now)
}

func newStateWithClock(now func() time.Time) *State {
	t := now()
	return &State{
		sessionID: uuid.NewString(),
		startTime: t,
		inFlight:  make(map[string]*Turn),
		now:       now,
	}
}

// SessionID returns the random id of this session. The controller tags its
// log lines with it.
func (s *State) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// Duration returns how long the session has been active.
func (s *State) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now().Sub(s.startTime)
}

// BeginTurn registers a pending exchange for conversationID and records the
// input mode. At most one turn per conversation may be pending.
func (s *State) BeginTurn(conversationID string, isVoice bool) (*Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, busy := s.inFlight[conversationID]; busy {
		return nil, ErrTurnInFlight
	}
	now := s.now()
	turn := &Turn{
		ConversationID: conversationID,
		IsVoice:        isVoice,
		Started:        now,
	}
	s.inFlight[conversationID] = turn
	s.lastInputWasVoice = isVoice
	return turn, nil
}

// EndTurn releases the conversation for the next turn. Ending a turn that is
// no longer registered is a no-op.
func (s *State) EndTurn(turn *Turn) {
	if turn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inFlight[turn.ConversationID] == turn {
		delete(s.inFlight, turn.ConversationID)
	}
}

// LastInputWasVoice reports the input mode of the most recent turn.
func (s *State) LastInputWasVoice() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastInputWasVoice
}

// InFlight reports whether conversationID is waiting on a reply.
func (s *State) InFlight(conversationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.inFlight[conversationID]
	return ok
}

// Pending returns the number of turns waiting on a reply.
func (s *State) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inFlight)
}
