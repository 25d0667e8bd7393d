// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/peterh/liner"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jeranaias/kryptonite/internal/config"
	"github.com/jeranaias/kryptonite/internal/conversation"
	"github.com/jeranaias/kryptonite/internal/storage"
)

// listenTimeout bounds one /voice capture.
const listenTimeout = 20 * time.Second

const replHelp = `Commands:
  /new                 start a new chat
  /history             list chats
  /switch N            open chat N from /history
  /clear-all           delete every chat
  /theme               toggle light/dark
  /voice               speak one message
  /export FORMAT FILE  save this chat (md, json or html)
  /help                this text
  /quit                leave
Anything else is sent to Kryptonite.`

// errQuit ends the REPL loop.
var errQuit = errors.New("quit")

// =============================================================================
// LINE EDITOR
// =============================================================================

// lineEditor wraps liner with a history file in the config directory.
type lineEditor struct {
	line        *liner.State
	historyFile string
}

func newLineEditor() *lineEditor {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	e := &lineEditor{line: line}
	if dir, err := config.ConfigDir(); err == nil {
		e.historyFile = filepath.Join(dir, "repl_history")
		if f, err := os.Open(e.historyFile); err == nil {
			e.line.ReadHistory(f)
			f.Close()
		}
	}
	return e
}

func (e *lineEditor) Prompt(prompt string) (string, error) {
	input, err := e.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		e.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves history with owner-only permissions and restores the
// terminal.
func (e *lineEditor) Close() {
	if e.historyFile != "" {
		if err := os.MkdirAll(filepath.Dir(e.historyFile), 0o700); err == nil {
			if f, err := os.OpenFile(e.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600); err == nil {
				e.line.WriteHistory(f)
				f.Close()
			}
		}
	}
	e.line.Close()
}

// =============================================================================
// REPL
// =============================================================================

// repl is one interactive line-mode session.
type repl struct {
	app      *app
	ctrl     *conversation.Controller
	renderer *plainRenderer
	out      io.Writer
}

func newREPL(a *app, out io.Writer, interactive bool, confirm conversation.ConfirmFunc) *repl {
	r := newPlainRenderer(out, paletteFor(a.dark()))
	r.interactive = interactive
	r.highlight = interactive && ColorsEnabled()
	r.width = TerminalWidth()
	return &repl{
		app:      a,
		ctrl:     a.controller(r, conversation.WithConfirmer(confirm)),
		renderer: r,
		out:      out,
	}
}

// runREPL drives the line editor until /quit, EOF or ctrl+c.
func runREPL(ctx context.Context, a *app, out io.Writer) error {
	editor := newLineEditor()
	defer editor.Close()

	confirm := conversation.ConfirmFunc(func(_ context.Context, prompt string) bool {
		answer, err := editor.Prompt(prompt + " [y/N] ")
		return err == nil && strings.EqualFold(strings.TrimSpace(answer), "y")
	})

	r := newREPL(a, out, IsTTY(), confirm)
	r.ctrl.Start()
	fmt.Fprintln(out, color.New(color.Faint).Sprint("Type /help for commands."))

	prompt := color.New(color.FgGreen, color.Bold).Sprint("you› ")
	for {
		if ctx.Err() != nil {
			return nil
		}
		input, err := editor.Prompt(prompt)
		if err != nil {
			// ctrl+c, ctrl+d and EOF all end the session.
			fmt.Fprintln(out)
			return nil
		}
		if err := r.handle(ctx, input); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			color.New(color.FgRed).Fprintf(out, "error: %v\n", err)
		}
	}
}

// handle runs one line of input.
func (r *repl) handle(ctx context.Context, input string) error {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil
	}
	if !strings.HasPrefix(input, "/") {
		return r.send(ctx, input, false)
	}

	fields := strings.Fields(input)
	switch cmd, args := strings.ToLower(fields[0]), fields[1:]; cmd {
	case "/quit", "/exit", "/q":
		return errQuit

	case "/help", "/?":
		fmt.Fprintln(r.out, replHelp)

	case "/new":
		_, err := r.ctrl.NewChat()
		return err

	case "/history":
		items, current := r.renderer.history()
		writeHistory(r.out, items, current)

	case "/switch":
		if len(args) != 1 {
			return errors.New("usage: /switch N")
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("usage: /switch N: %w", err)
		}
		items, _ := r.renderer.history()
		if n < 1 || n > len(items) {
			return fmt.Errorf("%w: %d", errNoSuchChat, n)
		}
		return r.ctrl.SwitchChat(items[n-1].ID)

	case "/clear-all":
		ok, err := r.ctrl.DeleteAllHistory(ctx)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(r.out, "Kept your history.")
		}

	case "/theme":
		next, err := r.app.prefs.ToggleTheme()
		if err != nil {
			return err
		}
		r.renderer.SetPalette(paletteFor(next == storage.ThemeDark))
		fmt.Fprintf(r.out, "Theme: %s\n", next)

	case "/voice":
		return r.voice(ctx)

	case "/export":
		if len(args) != 2 {
			return errors.New("usage: /export FORMAT FILE")
		}
		path, err := exportCurrent(r.app, args[0], args[1], false)
		if err != nil {
			return err
		}
		fmt.Fprintf(r.out, "Saved %s\n", path)

	default:
		return fmt.Errorf("unknown command %s (try /help)", cmd)
	}
	return nil
}

func (r *repl) send(ctx context.Context, text string, isVoice bool) error {
	_, err := r.ctrl.SendMessage(ctx, text, isVoice)
	return err
}

// voice captures one utterance and sends it as a voice turn. The capture
// is abandoned after listenTimeout or when ctx ends.
func (r *repl) voice(ctx context.Context) error {
	mic := r.app.mic
	if mic == nil {
		return errors.New("mic not working, fam (set voice.enabled and voice.listen_command)")
	}
	fmt.Fprintln(r.out, color.New(color.Faint).Sprint("Listening..."))

	listenCtx, cancel := context.WithTimeout(ctx, listenTimeout)
	defer cancel()

	transcripts, err := mic.Start(listenCtx)
	if err != nil {
		return fmt.Errorf("mic not working, fam: %w", err)
	}

	var heard string
	g, gctx := errgroup.WithContext(listenCtx)
	g.Go(func() error {
		defer cancel()
		for t := range transcripts {
			if t.Err != nil {
				return t.Err
			}
			if strings.TrimSpace(t.Text) != "" {
				heard = t.Text
				return nil
			}
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		mic.Stop()
		return nil
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("mic not working, fam: %w", err)
	}

	if heard == "" {
		fmt.Fprintln(r.out, "Didn't catch that.")
		return nil
	}
	r.app.logger.Debug("voice transcript", zap.Int("chars", len(heard)))
	return r.send(ctx, heard, true)
}
