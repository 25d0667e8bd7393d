// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/jeranaias/kryptonite/internal/model"
	"github.com/jeranaias/kryptonite/internal/session"
	"github.com/jeranaias/kryptonite/internal/speech"
	"github.com/jeranaias/kryptonite/internal/storage"
	"github.com/jeranaias/kryptonite/internal/util"
)

// ErrTurnInFlight is returned by SendMessage while the same conversation is
// still waiting on its previous reply.
var ErrTurnInFlight = session.ErrTurnInFlight

// =============================================================================
// OUTCOME
// =============================================================================

// Outcome is the terminal state of one SendMessage call.
type Outcome int

const (
	// OutcomeIgnored: empty input or the turn was rejected before anything
	// was echoed.
	OutcomeIgnored Outcome = iota
	// OutcomeAppended: the model turn was stored and shown.
	OutcomeAppended
	// OutcomeBlocked: the apology was shown; nothing stored.
	OutcomeBlocked
	// OutcomeGlitched: the glitch message was shown; nothing stored.
	OutcomeGlitched
	// OutcomeFailed: the failure message was shown; nothing stored.
	OutcomeFailed
	// OutcomeStale: the reply arrived after the user left the conversation.
	// It was stored if the conversation still exists, but not shown.
	OutcomeStale
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIgnored:
		return "ignored"
	case OutcomeAppended:
		return "appended"
	case OutcomeBlocked:
		return "blocked"
	case OutcomeGlitched:
		return "glitched"
	case OutcomeFailed:
		return "failed"
	case OutcomeStale:
		return "stale"
	default:
		return "unknown"
	}
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller turns user actions into Store mutations and Renderer calls.
//
// viewMu is held whenever the rendered view is changed, and across the
// "is this still the current conversation" check and the render that
// depends on it. It is never held while waiting on the Transport or the
// Confirmer.
type Controller struct {
	store     Store
	transport Transport
	renderer  Renderer
	speaker   speech.Output
	confirmer Confirmer
	persona   Persona
	state     *session.State
	logger    *zap.Logger

	viewMu sync.Mutex
}

// Option configures a Controller.
type Option func(*Controller)

// WithSpeaker sets the speech output used for voice turns.
func WithSpeaker(s speech.Output) Option {
	return func(c *Controller) {
		if s != nil {
			c.speaker = s
		}
	}
}

// WithConfirmer sets the gate for DeleteAllHistory.
func WithConfirmer(cf Confirmer) Option {
	return func(c *Controller) {
		if cf != nil {
			c.confirmer = cf
		}
	}
}

// WithPersona overrides the assistant's strings. Empty fields keep their
// defaults.
func WithPersona(p Persona) Option {
	return func(c *Controller) {
		c.persona = p.withDefaults()
	}
}

// WithSessionState shares a session.State with other components.
func WithSessionState(s *session.State) Option {
	return func(c *Controller) {
		if s != nil {
			c.state = s
		}
	}
}

// WithLogger sets the controller's logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a controller. store must already be loaded.
func New(store Store, transport Transport, renderer Renderer, opts ...Option) *Controller {
	c := &Controller{
		store:     store,
		transport: transport,
		renderer:  renderer,
		speaker:   speech.Nop{},
		confirmer: denyAll,
		persona:   DefaultPersona(),
		state:     session.NewState(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(zap.String("session_id", c.state.SessionID()))
	return c
}

// Persona returns the active persona.
func (c *Controller) Persona() Persona {
	return c.persona
}

// Session returns the transient session state.
func (c *Controller) Session() *session.State {
	return c.state
}

// =============================================================================
// VIEW OPERATIONS
// =============================================================================

// Start renders the current conversation and the history panel.
func (c *Controller) Start() {
	c.viewMu.Lock()
	defer c.viewMu.Unlock()
	c.renderCurrentLocked()
}

// NewChat starts an empty conversation and shows it.
func (c *Controller) NewChat() (string, error) {
	c.viewMu.Lock()
	defer c.viewMu.Unlock()

	c.speaker.Cancel()
	id, err := c.store.CreateConversation()
	if id == "" {
		return "", fmt.Errorf("new chat: %w", err)
	}
	c.renderCurrentLocked()
	if err != nil {
		c.logger.Error("new chat not persisted", zap.String("conversation_id", id), zap.Error(err))
		return id, fmt.Errorf("new chat: %w", err)
	}
	c.logger.Info("new chat", zap.String("conversation_id", id))
	return id, nil
}

// SwitchChat makes id current and shows it. An unknown id leaves the
// current conversation in place.
func (c *Controller) SwitchChat(id string) error {
	c.viewMu.Lock()
	defer c.viewMu.Unlock()

	c.speaker.Cancel()
	ok, err := c.store.SetCurrent(id)
	if !ok {
		c.logger.Debug("switch to unknown conversation ignored", zap.String("conversation_id", id))
	}
	c.renderCurrentLocked()
	c.renderer.CloseHistoryPanel()
	if err != nil {
		return fmt.Errorf("switch chat: %w", err)
	}
	return nil
}

// DeleteAllHistory asks for confirmation, then erases every conversation
// and shows a fresh one. It reports whether the user confirmed.
func (c *Controller) DeleteAllHistory(ctx context.Context) (bool, error) {
	if !c.confirmer.Confirm(ctx, c.persona.ConfirmDeletePrompt) {
		return false, nil
	}

	c.viewMu.Lock()
	defer c.viewMu.Unlock()

	c.speaker.Cancel()
	id, err := c.store.DeleteAll()
	c.renderCurrentLocked()
	if err != nil {
		return true, fmt.Errorf("delete history: %w", err)
	}
	c.logger.Info("history deleted", zap.String("conversation_id", id))
	return true, nil
}

// renderCurrentLocked draws the current conversation, or the greeting when
// it has no turns, followed by the history panel.
func (c *Controller) renderCurrentLocked() {
	conv := c.store.Current()
	if conv == nil {
		return
	}
	messages := conv.History
	if len(messages) == 0 {
		messages = []model.Message{c.persona.GreetingMessage()}
	}
	c.renderer.RenderConversation(conv.ID, messages)
	c.renderer.RenderHistory(c.store.List(), conv.ID)
}

// =============================================================================
// SEND MESSAGE
// =============================================================================

// SendMessage runs one user turn against the current conversation.
//
// The target conversation is fixed when the call starts. The reply is only
// ever stored in that conversation, and only rendered (or spoken) if it is
// still the one on screen when the reply arrives.
func (c *Controller) SendMessage(ctx context.Context, text string, isVoice bool) (Outcome, error) {
	text = util.NormalizeInput(strings.TrimSpace(text))
	if text == "" {
		return OutcomeIgnored, nil
	}

	target, history, turn, err := c.beginTurn(text, isVoice)
	if errors.Is(err, ErrTurnInFlight) {
		return OutcomeIgnored, err
	}
	if err != nil {
		return OutcomeFailed, err
	}
	defer c.state.EndTurn(turn)

	log := c.logger.With(zap.String("conversation_id", target))
	log.Debug("sending turn", zap.Int("turns", len(history)), zap.Bool("voice", isVoice))

	reply := c.transport.Generate(ctx, history, c.persona.SystemInstruction)

	c.viewMu.Lock()
	defer c.viewMu.Unlock()

	c.renderer.HideTyping(target)
	onScreen := c.store.CurrentID() == target

	var outcome Outcome
	switch reply.Kind {
	case model.ReplySuccess:
		if !c.store.Has(target) {
			log.Warn("reply dropped, conversation was deleted")
			return OutcomeStale, nil
		}
		if err := c.store.AppendMessage(target, model.RoleModel, reply.Text); err != nil {
			return OutcomeFailed, c.storeFailure(log, err)
		}
		c.renderer.RenderHistory(c.store.List(), c.store.CurrentID())
		if !onScreen {
			log.Info("reply stored for background conversation")
			return OutcomeStale, nil
		}
		c.renderer.RenderMessage(target, model.NewMessage(model.RoleModel, reply.Text))
		if turn.IsVoice {
			c.speak(ctx, reply.Text, log)
		}
		outcome = OutcomeAppended

	case model.ReplyBlocked:
		c.notify(target, onScreen, c.persona.BlockedReply)
		outcome = OutcomeBlocked

	case model.ReplyMalformed:
		c.notify(target, onScreen, c.persona.GlitchReply)
		outcome = OutcomeGlitched

	default:
		log.Warn("exchange failed", zap.Error(reply.Err))
		c.notify(target, onScreen, c.persona.FailureMessage(reply.Err))
		outcome = OutcomeFailed
	}

	log.Debug("turn complete", zap.Stringer("outcome", outcome))
	return outcome, nil
}

// beginTurn performs the synchronous half of a send: echo, persist the user
// turn, show the typing indicator. It returns the history to send.
func (c *Controller) beginTurn(text string, isVoice bool) (string, []model.Message, *session.Turn, error) {
	c.viewMu.Lock()
	defer c.viewMu.Unlock()

	target := c.store.CurrentID()
	turn, err := c.state.BeginTurn(target, isVoice)
	if err != nil {
		return "", nil, nil, err
	}

	c.renderer.RenderMessage(target, model.NewMessage(model.RoleUser, text))
	c.renderer.ClearInput()

	log := c.logger.With(zap.String("conversation_id", target))
	if err := c.store.AppendMessage(target, model.RoleUser, text); err != nil {
		c.state.EndTurn(turn)
		return "", nil, nil, c.storeFailure(log, err)
	}
	conv, err := c.store.Conversation(target)
	if err != nil {
		c.state.EndTurn(turn)
		return "", nil, nil, c.storeFailure(log, err)
	}

	// The first turn names the conversation and every turn bumps its count.
	c.renderer.RenderHistory(c.store.List(), target)
	c.renderer.ShowTyping(target)
	return target, conv.History, turn, nil
}

// notify shows a reply that is not persisted. A notice for a conversation
// that is no longer on screen would have nowhere to live, so it is dropped.
func (c *Controller) notify(target string, onScreen bool, text string) {
	if !onScreen {
		return
	}
	c.renderer.RenderMessage(target, model.NewMessage(model.RoleModel, text))
}

func (c *Controller) speak(ctx context.Context, text string, log *zap.Logger) {
	// Playback outlives the request context.
	spoken := speech.SanitizeForSpeech(text, c.persona.CodePlaceholder)
	if err := c.speaker.Speak(context.WithoutCancel(ctx), spoken); err != nil {
		log.Warn("speech output failed", zap.Error(err))
	}
}

// storeFailure logs and wraps a Store error. A missing conversation means
// the current-id invariant was broken.
func (c *Controller) storeFailure(log *zap.Logger, err error) error {
	if errors.Is(err, storage.ErrConversationNotFound) {
		log.Error("conversation store out of sync with controller", zap.Error(err))
		return fmt.Errorf("send message: store out of sync: %w", err)
	}
	log.Error("persist turn", zap.Error(err))
	return fmt.Errorf("send message: %w", err)
}
