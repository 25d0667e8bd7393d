// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/kryptonite/internal/cloud"
	"github.com/jeranaias/kryptonite/internal/config"
	"github.com/jeranaias/kryptonite/internal/conversation"
	"github.com/jeranaias/kryptonite/internal/logging"
	"github.com/jeranaias/kryptonite/internal/session"
	"github.com/jeranaias/kryptonite/internal/speech"
	"github.com/jeranaias/kryptonite/internal/storage"
	"github.com/jeranaias/kryptonite/internal/ui/styles"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	storage    string
	backend    string
	ephemeral  bool
	logLevel   string
}

// app is everything a command needs once config is loaded and storage is
// open. Close releases it.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	backend storage.Backend
	store   *storage.ConversationStore
	prefs   *storage.Preferences
	client  *cloud.Client

	speaker speech.Output
	mic     speech.Input
	session *session.State
}

// loadConfig reads the config file and applies the global flags on top.
func (f *globalFlags) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if f.configPath != "" {
		cfg, err = config.LoadFromPath(f.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if f.storage != "" {
		cfg.Storage.Driver = f.storage
	}
	if f.ephemeral {
		cfg.Storage.Driver = storage.DriverMemory
	}
	if f.backend != "" {
		cfg.Backend.URL = f.backend
	}
	if f.logLevel != "" {
		cfg.Logging.Level = f.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	config.SetGlobal(cfg)
	return cfg, nil
}

// openApp loads config, builds the logger and loads the conversation
// store. fullscreen sends logs to a file so they do not tear the screen.
func (f *globalFlags) openApp(fullscreen bool) (*app, error) {
	cfg, err := f.loadConfig()
	if err != nil {
		return nil, err
	}

	logOpts := logging.Options{Level: cfg.Logging.Level, File: cfg.Logging.File}
	if logOpts.File == "" {
		if fullscreen {
			dir, err := config.ConfigDir()
			if err != nil {
				return nil, err
			}
			logOpts.File = filepath.Join(dir, "kryptonite.log")
		} else {
			logOpts.Console = true
		}
	}
	logger, err := logging.New(logOpts)
	if err != nil {
		return nil, err
	}

	a, err := newApp(cfg, logger)
	if err != nil {
		logging.Sync(logger)
		return nil, err
	}
	return a, nil
}

// newApp opens storage and the transport for cfg.
func newApp(cfg *config.Config, logger *zap.Logger) (*app, error) {
	path := ""
	if cfg.Storage.Driver != storage.DriverMemory {
		p, err := cfg.StoragePath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	backend, err := storage.Open(cfg.Storage.Driver, path, logger)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	store := storage.NewConversationStore(backend, storage.WithLogger(logger))
	if err := store.Load(); err != nil {
		backend.Close()
		return nil, fmt.Errorf("load conversations: %w", err)
	}

	fallback := storage.ThemeLight
	if styles.ResolveDark(cfg.UI.Theme) {
		fallback = storage.ThemeDark
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		backend: backend,
		store:   store,
		prefs:   storage.NewPreferences(backend, fallback),
		client: cloud.NewClient(cfg.Backend.URL,
			cloud.WithTimeout(time.Duration(cfg.Backend.TimeoutSecs)*time.Second),
			cloud.WithLogger(logger)),
		speaker: speech.Nop{},
		session: session.NewState(),
	}
	a.openSpeech()
	return a, nil
}

// openSpeech wires the configured speech commands. A bad command is logged
// and leaves that direction silent.
func (a *app) openSpeech() {
	if !a.cfg.Voice.Enabled {
		return
	}
	if out, err := speech.NewCommandOutput(a.cfg.Voice.SpeakCommand, a.logger); err != nil {
		a.logger.Warn("speech output disabled", zap.Error(err))
	} else {
		a.speaker = out
	}
	if a.cfg.Voice.ListenCommand == "" {
		return
	}
	if in, err := speech.NewCommandInput(a.cfg.Voice.ListenCommand, a.logger); err != nil {
		a.logger.Warn("speech input disabled", zap.Error(err))
	} else {
		a.mic = in
	}
}

// persona maps the config strings onto the controller persona. Empty
// fields fall back to the stock voice.
func (a *app) persona() conversation.Persona {
	p := a.cfg.Persona
	return conversation.Persona{
		SystemInstruction: p.SystemInstruction,
		Greeting:          p.Greeting,
		BlockedReply:      p.BlockedReply,
		GlitchReply:       p.GlitchReply,
		FailureTemplate:   p.FailureTemplate,
		CodePlaceholder:   p.CodePlaceholder,
	}
}

// controller builds a Controller that draws through r.
func (a *app) controller(r conversation.Renderer, opts ...conversation.Option) *conversation.Controller {
	base := []conversation.Option{
		conversation.WithPersona(a.persona()),
		conversation.WithSpeaker(a.speaker),
		conversation.WithLogger(a.logger),
		conversation.WithSessionState(a.session),
	}
	return conversation.New(a.store, a.client, r, append(base, opts...)...)
}

// dark reports the theme to start in.
func (a *app) dark() bool {
	t, err := a.prefs.Theme()
	if err != nil {
		a.logger.Warn("theme preference unreadable", zap.Error(err))
	}
	return t == storage.ThemeDark
}

// Close stops speech and closes storage.
func (a *app) Close() error {
	a.speaker.Cancel()
	if a.mic != nil {
		a.mic.Stop()
	}
	err := a.backend.Close()
	a.logger.Debug("session ended",
		zap.String("session_id", a.session.SessionID()),
		zap.Duration("duration", a.session.Duration()))
	logging.Sync(a.logger)
	return err
}

var errNoSuchChat = errors.New("no such chat")

// chatAt maps a 1-based position in the history list to an id.
func (a *app) chatAt(n int) (string, error) {
	items := a.store.List()
	if n < 1 || n > len(items) {
		return "", fmt.Errorf("%w: %d (have %d)", errNoSuchChat, n, len(items))
	}
	return items[n-1].ID, nil
}
