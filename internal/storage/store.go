// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jeranaias/kryptonite/internal/model"
)

// maxIDAttempts bounds the retry loop when the id generator collides.
const maxIDAttempts = 8

// Summary is one row of the history panel.
type Summary struct {
	ID           string
	Title        string
	MessageCount int
}

// =============================================================================
// CONVERSATION STORE
// =============================================================================

// ConversationStore owns every conversation and which one is current, and
// writes both through to a Backend after each mutation.
//
// Invariant: once Load has returned, the current id always keys an existing
// conversation when any exported method returns.
type ConversationStore struct {
	mu        sync.Mutex
	backend   Backend
	set       *model.ConversationSet
	currentID string
	newID     func() string
	logger    *zap.Logger
}

// StoreOption configures a ConversationStore.
type StoreOption func(*ConversationStore)

// WithLogger sets the store's logger.
func WithLogger(l *zap.Logger) StoreOption {
	return func(s *ConversationStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithIDGenerator replaces the conversation id generator.
func WithIDGenerator(fn func() string) StoreOption {
	return func(s *ConversationStore) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// NewConversationStore creates a store on top of backend. Call Load before
// anything else.
func NewConversationStore(backend Backend, opts ...StoreOption) *ConversationStore {
	s := &ConversationStore{
		backend: backend,
		set:     model.NewConversationSet(),
		newID:   generateConversationID,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// Load reads the conversation set and current id from the backend. If the
// stored current id is missing or stale a new conversation is created and
// made current.
//
// A stored set that does not parse is copied under its key plus ".corrupt"
// and replaced with an empty one.
func (s *ConversationStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.set = model.NewConversationSet()
	s.currentID = ""

	raw, ok, err := s.backend.Get(KeyConversations)
	if err != nil {
		return fmt.Errorf("read conversations: %w", err)
	}
	if ok && strings.TrimSpace(raw) != "" {
		loaded := model.NewConversationSet()
		if err := json.Unmarshal([]byte(raw), loaded); err != nil {
			s.logger.Warn("stored conversations unreadable, starting empty",
				zap.String("backup_key", KeyConversations+".corrupt"),
				zap.Error(err))
			if berr := s.backend.Set(KeyConversations+".corrupt", raw); berr != nil {
				return fmt.Errorf("back up unreadable conversations: %w", berr)
			}
		} else {
			s.set = loaded
		}
	}

	current, ok, err := s.backend.Get(KeyCurrentConversation)
	if err != nil {
		return fmt.Errorf("read current conversation: %w", err)
	}
	if ok && s.set.Has(current) {
		s.currentID = current
		s.logger.Debug("conversations loaded",
			zap.Int("count", s.set.Len()),
			zap.String("conversation_id", current))
		return nil
	}

	_, err = s.createLocked()
	return err
}

// =============================================================================
// MUTATIONS
// =============================================================================

// CreateConversation adds an empty conversation, makes it current, persists,
// and returns its id.
func (s *ConversationStore) CreateConversation() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createLocked()
}

// SetCurrent makes id the current conversation. Unknown ids are ignored and
// reported as false.
func (s *ConversationStore) SetCurrent(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.set.Has(id) {
		return false, nil
	}
	s.currentID = id
	return true, s.persistLocked()
}

// AppendMessage appends a turn to conversation id. The first turn appended
// also sets the title.
func (s *ConversationStore) AppendMessage(id string, role model.Role, text string) error {
	if !role.Valid() {
		return fmt.Errorf("append message: invalid role %q", role)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.set.Get(id)
	if conv == nil {
		return &ConversationError{Message: ErrConversationNotFound.Message, ID: id}
	}
	prev := conv.Clone()
	conv.Append(model.NewMessage(role, text))
	if err := s.persistLocked(); err != nil {
		// Memory never holds a turn the backend does not.
		*conv = *prev
		return err
	}
	return nil
}

// DeleteAll erases every conversation and the current id from the backend,
// then creates a fresh current conversation. Returns the new id.
func (s *ConversationStore) DeleteAll() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.set.Clear()
	s.currentID = ""
	if err := s.backend.Remove(KeyConversations, KeyCurrentConversation); err != nil {
		// Memory is already cleared; a new conversation keeps the invariant.
		if _, cerr := s.createLocked(); cerr != nil {
			s.logger.Error("recreate conversation after failed delete", zap.Error(cerr))
		}
		return s.currentID, fmt.Errorf("erase conversations: %w", err)
	}
	return s.createLocked()
}

// =============================================================================
// QUERIES
// =============================================================================

// List returns conversation summaries, most recently created first.
func (s *ConversationStore) List() []Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	convs := s.set.NewestFirst()
	out := make([]Summary, 0, len(convs))
	for _, c := range convs {
		out = append(out, Summary{
			ID:           c.ID,
			Title:        c.Title,
			MessageCount: c.MessageCount(),
		})
	}
	return out
}

// CurrentID returns the id of the current conversation.
func (s *ConversationStore) CurrentID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentID
}

// Current returns a copy of the current conversation, or nil before Load.
func (s *ConversationStore) Current() *model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set.Get(s.currentID).Clone()
}

// Conversation returns a copy of conversation id.
func (s *ConversationStore) Conversation(id string) (*model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.set.Get(id)
	if conv == nil {
		return nil, &ConversationError{Message: ErrConversationNotFound.Message, ID: id}
	}
	return conv.Clone(), nil
}

// Has reports whether id exists.
func (s *ConversationStore) Has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set.Has(id)
}

// Len returns the number of conversations.
func (s *ConversationStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set.Len()
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *ConversationStore) createLocked() (string, error) {
	var id string
	for attempt := 0; ; attempt++ {
		if attempt == maxIDAttempts {
			return "", fmt.Errorf("create conversation: id generator keeps colliding")
		}
		id = s.newID()
		if id != "" && !s.set.Has(id) {
			break
		}
	}

	if err := s.set.Insert(model.NewConversation(id)); err != nil {
		return "", fmt.Errorf("create conversation: %w", err)
	}
	s.currentID = id
	s.logger.Debug("conversation created", zap.String("conversation_id", id))
	return id, s.persistLocked()
}

// persistLocked writes the whole set and the current id in one backend call.
func (s *ConversationStore) persistLocked() error {
	data, err := json.Marshal(s.set)
	if err != nil {
		return fmt.Errorf("encode conversations: %w", err)
	}
	err = s.backend.SetMany(map[string]string{
		KeyConversations:       string(data),
		KeyCurrentConversation: s.currentID,
	})
	if err != nil {
		s.logger.Error("persist conversations", zap.Error(err))
		return fmt.Errorf("persist conversations: %w", err)
	}
	return nil
}

// generateConversationID returns "chat_" plus a v7 UUID. v7 embeds the
// millisecond timestamp, so ids sort by creation time and stay unique under
// rapid calls.
func generateConversationID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return "chat_" + uuid.NewString()
	}
	return "chat_" + id.String()
}
