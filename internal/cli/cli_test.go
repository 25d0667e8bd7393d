// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/jeranaias/kryptonite/internal/config"
	"github.com/jeranaias/kryptonite/internal/conversation"
	"github.com/jeranaias/kryptonite/internal/model"
	"github.com/jeranaias/kryptonite/internal/speech"
	"github.com/jeranaias/kryptonite/internal/storage"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

// =============================================================================
// HELPERS
// =============================================================================

// isolate points the config directory at a temp dir and clears overrides.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("KRYPTONITE_HOME", home)
	for _, k := range []string{
		"KRYPTONITE_BACKEND_URL", "KRYPTONITE_STORAGE", "KRYPTONITE_STORAGE_PATH",
		"KRYPTONITE_THEME", "KRYPTONITE_LOG_LEVEL", "KRYPTONITE_VOICE",
		"GEMINI_API_KEY", "VERCEL_FRONTEND_URL", "PORT",
	} {
		t.Setenv(k, "")
	}
	config.ResetGlobalForTesting()
	t.Cleanup(config.ResetGlobalForTesting)
	return home
}

// fakeBackend answers every chat request with reply and counts calls.
func fakeBackend(t *testing.T, reply string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		io.Copy(io.Discard, r.Body)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"`+reply+`"}]}}]}`)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

// run executes the CLI with args and returns stdout.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, "", args...)
	require.NoError(t, err)
	return out
}

// testApp builds an in-memory app against backendURL.
func testApp(t *testing.T, backendURL string) *app {
	t.Helper()
	isolate(t)
	cfg := config.Default()
	cfg.Storage.Driver = storage.DriverMemory
	cfg.Backend.URL = backendURL
	a, err := newApp(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

type fakeMic struct {
	text    string
	stopped atomic.Int32
}

func (m *fakeMic) Start(context.Context) (<-chan speech.Transcript, error) {
	ch := make(chan speech.Transcript, 1)
	ch <- speech.Transcript{Text: m.text}
	close(ch)
	return ch, nil
}

func (m *fakeMic) Stop() { m.stopped.Add(1) }

// =============================================================================
// COMMANDS
// =============================================================================

func TestAskPrintsReplyOnly(t *testing.T) {
	isolate(t)
	srv, calls := fakeBackend(t, "bet, no cap")

	out := mustRun(t, "--ephemeral", "--backend", srv.URL+"/api/chat", "ask", "hello", "there")
	assert.Equal(t, "bet, no cap\n", out)
	assert.Equal(t, int32(1), calls.Load())
}

func TestAskFailureIsAnError(t *testing.T) {
	isolate(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	out, err := run(t, "", "--ephemeral", "--backend", srv.URL, "ask", "hello")
	require.Error(t, err)
	assert.Contains(t, out, "major L")
}

func TestHistoryPersistsAcrossRuns(t *testing.T) {
	home := isolate(t)
	srv, _ := fakeBackend(t, "sup")

	mustRun(t, "--backend", srv.URL, "ask", "first question")
	_, err := os.Stat(filepath.Join(home, "state.json"))
	require.NoError(t, err)

	out := mustRun(t, "history", "list")
	assert.Contains(t, out, "1. first question (2)  *")
}

func TestHistorySwitchAndClear(t *testing.T) {
	isolate(t)
	srv, _ := fakeBackend(t, "sup")

	mustRun(t, "--storage", "sqlite", "--backend", srv.URL, "ask", "older")
	a := openForTest(t, "sqlite")
	_, err := a.store.CreateConversation()
	require.NoError(t, err)
	require.NoError(t, a.Close())

	out := mustRun(t, "--storage", "sqlite", "history", "switch", "2")
	assert.Contains(t, out, "Switched to chat 2.")
	assert.Contains(t, mustRun(t, "--storage", "sqlite", "history", "list"), "2. older (2)  *")

	_, err = run(t, "", "--storage", "sqlite", "history", "switch", "9")
	assert.ErrorIs(t, err, errNoSuchChat)

	out, err = run(t, "n\n", "--storage", "sqlite", "history", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Kept your history.")

	assert.Contains(t, mustRun(t, "--storage", "sqlite", "history", "clear", "--yes"), "History cleared.")
	out = mustRun(t, "--storage", "sqlite", "history", "list")
	assert.Contains(t, out, "1. "+model.DefaultTitle+" (0)  *")
	assert.NotContains(t, out, "older")
}

// openForTest opens the same storage the commands use.
func openForTest(t *testing.T, driver string) *app {
	t.Helper()
	config.ResetGlobalForTesting()
	f := &globalFlags{storage: driver, logLevel: "error"}
	cfg, err := f.loadConfig()
	require.NoError(t, err)
	a, err := newApp(cfg, zap.NewNop())
	require.NoError(t, err)
	return a
}

func TestHistoryExport(t *testing.T) {
	isolate(t)
	srv, _ := fakeBackend(t, "sup")
	mustRun(t, "--backend", srv.URL, "ask", "export me")

	path := filepath.Join(t.TempDir(), "chat.json")
	out := mustRun(t, "history", "export", "-o", path)
	assert.Contains(t, out, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "export me", gjson.GetBytes(data, "history.0.parts.0.text").String())
	assert.Equal(t, "sup", gjson.GetBytes(data, "history.1.parts.0.text").String())

	_, err = run(t, "", "history", "export", "--format", "pdf", "-o", path)
	assert.Error(t, err)
}

func TestThemeCommand(t *testing.T) {
	isolate(t)
	t.Setenv("KRYPTONITE_THEME", "dark")

	assert.Equal(t, "dark\n", mustRun(t, "theme"))
	assert.Equal(t, "light\n", mustRun(t, "theme", "light"))
	assert.Equal(t, "light\n", mustRun(t, "theme"))
	assert.Equal(t, "dark\n", mustRun(t, "theme", "toggle"))

	_, err := run(t, "", "theme", "purple")
	assert.Error(t, err)
}

func TestConfigCommands(t *testing.T) {
	home := isolate(t)

	assert.Equal(t, filepath.Join(home, "config.toml")+"\n", mustRun(t, "config", "path"))

	path := filepath.Join(home, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend:\n  url: http://localhost:9999/api/chat\n"), 0o600))
	assert.Equal(t, path+"\n", mustRun(t, "--config", path, "config", "path"))

	out := mustRun(t, "--config", path, "config", "show")
	assert.Contains(t, out, "http://localhost:9999/api/chat")
}

func TestInvalidFlagValueRejected(t *testing.T) {
	isolate(t)
	_, err := run(t, "", "--storage", "floppy", "history", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage.driver")
}

// =============================================================================
// REPL
// =============================================================================

func newTestREPL(t *testing.T, a *app, confirm bool) (*repl, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	r := newREPL(a, &out, false, func(context.Context, string) bool { return confirm })
	r.ctrl.Start()
	return r, &out
}

func TestREPLSendAndSlashCommands(t *testing.T) {
	srv, calls := fakeBackend(t, "sup")
	a := testApp(t, srv.URL)
	r, out := newTestREPL(t, a, true)
	ctx := context.Background()

	assert.Contains(t, out.String(), conversation.DefaultPersona().Greeting)

	require.NoError(t, r.handle(ctx, "hello"))
	assert.Equal(t, int32(1), calls.Load())
	assert.Contains(t, out.String(), "You\nhello\n")
	assert.Contains(t, out.String(), "Kryptonite\nsup\n")

	require.NoError(t, r.handle(ctx, "   "))
	assert.Equal(t, int32(1), calls.Load())

	// The list picks up the new title without any other action in between.
	out.Reset()
	require.NoError(t, r.handle(ctx, "/history"))
	assert.Equal(t, "  1. hello (2)  *\n", out.String())

	require.NoError(t, r.handle(ctx, "/new"))
	require.Equal(t, 2, a.store.Len())

	out.Reset()
	require.NoError(t, r.handle(ctx, "/history"))
	assert.Contains(t, out.String(), "1. "+model.DefaultTitle+" (0)  *")
	assert.Contains(t, out.String(), "2. hello (2)")

	require.NoError(t, r.handle(ctx, "/switch 2"))
	conv := a.store.Current()
	require.NotNil(t, conv)
	assert.Equal(t, "hello", conv.Title)

	assert.ErrorIs(t, r.handle(ctx, "/switch 7"), errNoSuchChat)
	assert.Error(t, r.handle(ctx, "/switch"))
	assert.Error(t, r.handle(ctx, "/bogus"))
	assert.ErrorIs(t, r.handle(ctx, "/quit"), errQuit)
}

func TestREPLClearAll(t *testing.T) {
	srv, _ := fakeBackend(t, "sup")

	t.Run("confirmed", func(t *testing.T) {
		a := testApp(t, srv.URL)
		r, _ := newTestREPL(t, a, true)
		require.NoError(t, r.handle(context.Background(), "hello"))
		require.NoError(t, r.handle(context.Background(), "/new"))

		require.NoError(t, r.handle(context.Background(), "/clear-all"))
		assert.Equal(t, 1, a.store.Len())
	})

	t.Run("declined", func(t *testing.T) {
		a := testApp(t, srv.URL)
		r, out := newTestREPL(t, a, false)
		require.NoError(t, r.handle(context.Background(), "/new"))

		require.NoError(t, r.handle(context.Background(), "/clear-all"))
		assert.Equal(t, 2, a.store.Len())
		assert.Contains(t, out.String(), "Kept your history.")
	})
}

func TestREPLThemeAndExport(t *testing.T) {
	srv, _ := fakeBackend(t, "sup")
	a := testApp(t, srv.URL)
	r, out := newTestREPL(t, a, true)
	ctx := context.Background()

	before, err := a.prefs.Theme()
	require.NoError(t, err)
	require.NoError(t, r.handle(ctx, "/theme"))
	after, err := a.prefs.Theme()
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
	assert.Contains(t, out.String(), "Theme: "+string(after))

	require.NoError(t, r.handle(ctx, "hi"))
	path := filepath.Join(t.TempDir(), "chat.md")
	require.NoError(t, r.handle(ctx, "/export md "+path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "### You")

	assert.Error(t, r.handle(ctx, "/export md"))
}

func TestREPLVoice(t *testing.T) {
	srv, calls := fakeBackend(t, "heard you")
	a := testApp(t, srv.URL)

	r, _ := newTestREPL(t, a, true)
	assert.Error(t, r.handle(context.Background(), "/voice"), "no mic configured")

	mic := &fakeMic{text: "what's the tea"}
	a.mic = mic
	r, out := newTestREPL(t, a, true)
	require.NoError(t, r.handle(context.Background(), "/voice"))

	assert.Equal(t, int32(1), calls.Load())
	assert.Contains(t, out.String(), "You\nwhat's the tea\n")
	assert.True(t, r.ctrl.Session().LastInputWasVoice())
	assert.GreaterOrEqual(t, mic.stopped.Load(), int32(1))
}

// =============================================================================
// RENDERER
// =============================================================================

func TestPlainRendererTypingLine(t *testing.T) {
	var out bytes.Buffer
	r := newPlainRenderer(&out, paletteFor(true))

	r.ShowTyping("c1")
	assert.Empty(t, out.String(), "nothing on a non-interactive stream")

	r.interactive = true
	r.ShowTyping("c1")
	assert.Contains(t, out.String(), typingText)
	r.HideTyping("c1")
	assert.True(t, strings.HasSuffix(out.String(), "\r"))

	out.Reset()
	r.HideTyping("c1")
	assert.Empty(t, out.String(), "hiding twice writes nothing")
}

func TestPlainRendererReplyOnly(t *testing.T) {
	var out bytes.Buffer
	r := newPlainRenderer(&out, paletteFor(false))
	r.replyOnly = true

	r.RenderConversation("c1", []model.Message{model.NewMessage(model.RoleModel, "greeting")})
	r.RenderMessage("c1", model.NewMessage(model.RoleUser, "question"))
	r.RenderMessage("c1", model.NewMessage(model.RoleModel, "answer"))
	assert.Equal(t, "answer\n", out.String())
}
