// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/jeranaias/kryptonite/internal/cloud"
	"github.com/jeranaias/kryptonite/internal/config"
	"github.com/jeranaias/kryptonite/internal/model"
)

func TestMain(m *testing.M) {
	// genai pulls in opencensus, which starts its view worker in init.
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

// =============================================================================
// FAKES
// =============================================================================

type fakeGenerator struct {
	mu       sync.Mutex
	resp     *genai.GenerateContentResponse
	err      error
	model    string
	contents []*genai.Content
	cfg      *genai.GenerateContentConfig
	calls    int
}

func (f *fakeGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.model = model
	f.contents = contents
	f.cfg = cfg
	return f.resp, f.err
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func testSettings() config.ServerConfig {
	s := config.Default().Server
	s.RateLimitPerMinute = 0
	return s
}

const chatBody = `{"contents":[{"role":"user","parts":[{"text":"yo"}]}],"system_instruction":{"parts":[{"text":"be cool"}]}}`

func postChat(t *testing.T, h http.Handler, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// =============================================================================
// ROUTES
// =============================================================================

func TestHome(t *testing.T) {
	srv := New(testSettings())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, HomeText, rec.Body.String())
}

func TestUnknownPathIs404(t *testing.T) {
	srv := New(testSettings())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChatForwardsToGemini(t *testing.T) {
	gen := &fakeGenerator{resp: textResponse("sup")}
	srv := New(testSettings(), WithGenerator(gen))

	rec := postChat(t, srv.Handler(), chatBody, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "sup", gjson.Get(rec.Body.String(), "candidates.0.content.parts.0.text").String())

	gen.mu.Lock()
	defer gen.mu.Unlock()
	assert.Equal(t, "gemini-2.5-flash-preview-05-20", gen.model)
	require.Len(t, gen.contents, 1)
	assert.Equal(t, genai.RoleUser, gen.contents[0].Role)
	assert.Equal(t, "yo", gen.contents[0].Parts[0].Text)

	require.NotNil(t, gen.cfg.SystemInstruction)
	assert.Equal(t, "be cool", gen.cfg.SystemInstruction.Parts[0].Text)
	assert.InDelta(t, 0.8, *gen.cfg.Temperature, 1e-6)
	assert.InDelta(t, 1, *gen.cfg.TopK, 1e-6)
	assert.InDelta(t, 1, *gen.cfg.TopP, 1e-6)
	assert.EqualValues(t, 8192, gen.cfg.MaxOutputTokens)
	require.Len(t, gen.cfg.SafetySettings, 4)
	for _, s := range gen.cfg.SafetySettings {
		assert.Equal(t, genai.HarmBlockThresholdBlockMediumAndAbove, s.Threshold)
	}
}

func TestChatWithoutKey(t *testing.T) {
	srv := New(testSettings())
	rec := postChat(t, srv.Handler(), chatBody, nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, MissingKeyMessage, gjson.Get(rec.Body.String(), "error.message").String())
}

func TestChatRejectsBadBodies(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `{"contents":`},
		{"no contents", `{}`},
		{"empty contents", `{"contents":[]}`},
		{"bad role", `{"contents":[{"role":"system","parts":[{"text":"x"}]}]}`},
		{"no text", `{"contents":[{"role":"user","parts":[{"inline":1}]}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{resp: textResponse("unused")}
			srv := New(testSettings(), WithGenerator(gen))
			rec := postChat(t, srv.Handler(), tt.body, nil)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, gjson.Get(rec.Body.String(), "error.message").String())
			assert.Zero(t, gen.calls)
		})
	}
}

func TestChatBodyLimit(t *testing.T) {
	settings := testSettings()
	settings.MaxBodyBytes = 1024
	srv := New(settings, WithGenerator(&fakeGenerator{resp: textResponse("x")}))

	big := `{"contents":[{"role":"user","parts":[{"text":"` + strings.Repeat("a", 4096) + `"}]}]}`
	rec := postChat(t, srv.Handler(), big, nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestChatUpstreamErrors(t *testing.T) {
	t.Run("api error keeps status", func(t *testing.T) {
		gen := &fakeGenerator{err: genai.APIError{Code: 429, Message: "quota exhausted", Status: "RESOURCE_EXHAUSTED"}}
		srv := New(testSettings(), WithGenerator(gen))
		rec := postChat(t, srv.Handler(), chatBody, nil)

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "quota exhausted", gjson.Get(rec.Body.String(), "error.message").String())
	})

	t.Run("other error is 500", func(t *testing.T) {
		gen := &fakeGenerator{err: errors.New("dial tcp: boom")}
		srv := New(testSettings(), WithGenerator(gen))
		rec := postChat(t, srv.Handler(), chatBody, nil)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, gjson.Get(rec.Body.String(), "error.message").String(), "boom")
	})
}

func TestChatBlockedPromptIsPassedThrough(t *testing.T) {
	gen := &fakeGenerator{resp: &genai.GenerateContentResponse{
		PromptFeedback: &genai.GenerateContentResponsePromptFeedback{BlockReason: genai.BlockedReasonSafety},
	}}
	srv := New(testSettings(), WithGenerator(gen))

	rec := postChat(t, srv.Handler(), chatBody, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "SAFETY", gjson.Get(rec.Body.String(), "promptFeedback.blockReason").String())

	metrics := scrape(t, srv)
	assert.Contains(t, metrics, "kryptonite_blocked_prompts_total 1")
}

// The proxy's response must decode with the client transport.
func TestClientDecodesProxyResponses(t *testing.T) {
	gen := &fakeGenerator{resp: textResponse("it works")}
	srv := New(testSettings(), WithGenerator(gen))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	client := cloud.NewClient(ts.URL + "/api/chat")
	reply := client.Generate(context.Background(), []model.Message{{Role: model.RoleUser, Text: "yo"}}, "be cool")
	require.Equal(t, model.ReplySuccess, reply.Kind, "%+v", reply)
	assert.Equal(t, "it works", reply.Text)

	gen.mu.Lock()
	gen.resp = &genai.GenerateContentResponse{
		PromptFeedback: &genai.GenerateContentResponsePromptFeedback{BlockReason: genai.BlockedReasonSafety},
	}
	gen.mu.Unlock()
	reply = client.Generate(context.Background(), []model.Message{{Role: model.RoleUser, Text: "yo"}}, "")
	assert.Equal(t, model.ReplyBlocked, reply.Kind)
	assert.Equal(t, "SAFETY", reply.BlockReason)

	ts.CloseClientConnections()
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

func TestCORSOnlyForAPI(t *testing.T) {
	srv := New(testSettings(), WithGenerator(&fakeGenerator{resp: textResponse("x")}))

	rec := postChat(t, srv.Handler(), chatBody, map[string]string{"Origin": "http://127.0.0.1:5500"})
	assert.Equal(t, "http://127.0.0.1:5500", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = postChat(t, srv.Handler(), chatBody, map[string]string{"Origin": "https://evil.example"})
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://127.0.0.1:5500")
	home := httptest.NewRecorder()
	srv.Handler().ServeHTTP(home, req)
	assert.Empty(t, home.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSPreflight(t *testing.T) {
	srv := New(testSettings())
	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	req.Header.Set("Origin", "http://127.0.0.1:5500")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://127.0.0.1:5500", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestApplyUpdatesOriginsAndLimit(t *testing.T) {
	srv := New(testSettings(), WithGenerator(&fakeGenerator{resp: textResponse("x")}))

	next := testSettings()
	next.AllowedOrigins = []string{"https://kryptonite.example.test/"}
	next.RateLimitPerMinute = 1
	srv.Apply(next)

	rec := postChat(t, srv.Handler(), chatBody, map[string]string{"Origin": "https://kryptonite.example.test"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://kryptonite.example.test", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = postChat(t, srv.Handler(), chatBody, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestRateLimiterPerIP(t *testing.T) {
	rl := NewRateLimiter(2)
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"), "other clients have their own bucket")
}

func TestRateLimiterDisabled(t *testing.T) {
	rl := NewRateLimiter(0)
	for i := 0; i < 100; i++ {
		require.True(t, rl.Allow("10.0.0.1"))
	}
	assert.Zero(t, rl.clientCount())
}

func TestRateLimiterSweepsIdleClients(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(5)
	rl.now = func() time.Time { return now }

	rl.Allow("10.0.0.1")
	rl.Allow("10.0.0.2")
	assert.Equal(t, 2, rl.clientCount())

	now = now.Add(2 * limiterIdleTTL)
	rl.Allow("10.0.0.3")
	assert.Equal(t, 1, rl.clientCount())
}

func TestRecoveryMiddleware(t *testing.T) {
	h := RecoveryMiddleware(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal Server Error", gjson.Get(rec.Body.String(), "error.message").String())
}

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(mw("a"), mw("b"), mw("c"))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"a", "b", "c", "handler"}, order)
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		remote  string
		headers map[string]string
		want    string
	}{
		{"direct", "203.0.113.7:5555", nil, "203.0.113.7"},
		{"untrusted peer ignores xff", "203.0.113.7:5555", map[string]string{"X-Forwarded-For": "1.2.3.4"}, "203.0.113.7"},
		{"trusted peer uses xff", "127.0.0.1:5555", map[string]string{"X-Forwarded-For": "1.2.3.4, 10.0.0.1"}, "1.2.3.4"},
		{"trusted peer uses real ip", "10.1.2.3:5555", map[string]string{"X-Real-IP": "5.6.7.8"}, "5.6.7.8"},
		{"invalid header falls back", "127.0.0.1:5555", map[string]string{"X-Forwarded-For": "not-an-ip"}, "127.0.0.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, GetClientIP(req))
		})
	}
}

// =============================================================================
// METRICS & LIFECYCLE
// =============================================================================

func scrape(t *testing.T, srv *Server) string {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestMetricsCountRequests(t *testing.T) {
	srv := New(testSettings(), WithGenerator(&fakeGenerator{resp: textResponse("x")}))
	postChat(t, srv.Handler(), chatBody, nil)
	srv.Handler().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/wp-admin", nil))

	out := scrape(t, srv)
	assert.Contains(t, out, `kryptonite_http_requests_total{route="/api/chat",status="200"} 1`)
	assert.Contains(t, out, `kryptonite_http_requests_total{route="other",status="404"} 1`)
	assert.Contains(t, out, `kryptonite_upstream_request_duration_seconds_count{outcome="ok"} 1`)
}

func TestServeAndShutdown(t *testing.T) {
	srv := New(testSettings())
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ln) }()

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get("http://" + ln.Addr().String() + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, HomeText, string(body))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	require.NoError(t, <-done)
}
