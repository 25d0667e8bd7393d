// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/kryptonite/internal/conversation"
	"github.com/jeranaias/kryptonite/internal/model"
	"github.com/jeranaias/kryptonite/internal/speech"
	"github.com/jeranaias/kryptonite/internal/storage"
	"github.com/jeranaias/kryptonite/internal/ui/components"
	"github.com/jeranaias/kryptonite/internal/ui/styles"
)

// Input placeholders.
const (
	PlaceholderIdle      = "Spill the tea... or press the mic"
	PlaceholderListening = "Listening..."
	PlaceholderMicError  = "Mic not working, fam."
)

const historyPanelWidth = 34

// Options configures a Model. Zero values are usable.
type Options struct {
	// Theme defaults to dark.
	Theme *styles.Theme
	// Preferences persists ctrl+t. Nil keeps the toggle in memory.
	Preferences *storage.Preferences
	// Voice is used by ctrl+r. Nil disables the mic.
	Voice speech.Input
	// GlamourStyle overrides the palette's markdown style.
	GlamourStyle string
	Logger       *zap.Logger
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the chat screen.
type Model struct {
	ctrl   *conversation.Controller
	bridge *Bridge
	prefs  *storage.Preferences
	voice  speech.Input
	logger *zap.Logger

	// ctx is cancelled on quit so in-flight commands unwind.
	ctx    context.Context
	cancel context.CancelFunc

	theme    *styles.Theme
	markdown *components.MarkdownRenderer
	keys     KeyMap

	width  int
	height int

	viewport viewport.Model
	input    textinput.Model
	typing   components.TypingIndicator
	history  components.HistoryList

	currentID string
	messages  []model.Message
	// typingFor tracks which conversations have a reply outstanding.
	typingFor map[string]bool

	showHistory bool
	listening   bool
	confirm     *confirmRequestMsg
	status      string
	statusError bool
}

// New builds the chat screen around ctrl. bridge must be the Renderer and
// Confirmer ctrl was built with.
func New(ctrl *conversation.Controller, bridge *Bridge, opts Options) Model {
	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme(true)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	ti := textinput.New()
	ti.Prompt = "› "
	ti.Placeholder = PlaceholderIdle
	ti.CharLimit = 4096
	ti.Focus()

	ctx, cancel := context.WithCancel(context.Background())

	m := Model{
		ctrl:      ctrl,
		bridge:    bridge,
		prefs:     opts.Preferences,
		voice:     opts.Voice,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		theme:     theme,
		markdown:  components.NewMarkdownRenderer(opts.GlamourStyle),
		keys:      DefaultKeyMap(),
		viewport:  viewport.New(80, 20),
		input:     ti,
		typing:    components.NewTypingIndicator(),
		typingFor: make(map[string]bool),
	}
	m.applyTheme()
	return m
}

// Init renders the current conversation and starts the cursor blinking.
func (m Model) Init() tea.Cmd {
	ctrl := m.ctrl
	return tea.Batch(textinput.Blink, func() tea.Msg {
		ctrl.Start()
		return nil
	})
}

// Theme returns the active theme.
func (m Model) Theme() *styles.Theme { return m.theme }

// CurrentID returns the conversation on screen.
func (m Model) CurrentID() string { return m.currentID }

// applyTheme pushes theme styles into the bubbles components.
func (m *Model) applyTheme() {
	m.input.PromptStyle = m.theme.InputPrompt
	m.input.PlaceholderStyle = m.theme.InputPlaceholder
}
