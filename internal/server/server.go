// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/jeranaias/kryptonite/internal/config"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// HomeText is the body of GET /.
	HomeText = "Kryptonite Backend is running! ⚡"

	// MissingKeyMessage is returned when no Gemini API key is configured.
	MissingKeyMessage = "GEMINI_API_KEY is not configured on the server."

	// apiPrefix is where CORS applies.
	apiPrefix = "/api/"
)

// ============================================================================
// SERVER
// ============================================================================

// Server is the backend proxy.
type Server struct {
	mux        *http.ServeMux
	handler    http.Handler
	httpServer *http.Server
	logger     *zap.Logger
	registry   *prometheus.Registry
	metrics    *metrics
	cors       *CORSConfig
	limiter    *RateLimiter

	mu        sync.RWMutex
	generator Generator
	settings  config.ServerConfig
}

// Option configures a Server.
type Option func(*Server)

// WithGenerator sets the Gemini client. Without one every chat request
// fails with MissingKeyMessage.
func WithGenerator(g Generator) Option {
	return func(s *Server) { s.generator = g }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Server from settings.
func New(settings config.ServerConfig, opts ...Option) *Server {
	s := &Server{
		mux:      http.NewServeMux(),
		logger:   zap.NewNop(),
		registry: prometheus.NewRegistry(),
		settings: settings,
		cors:     NewCORSConfig(settings.AllowedOrigins),
		limiter:  NewRateLimiter(settings.RateLimitPerMinute),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.metrics = newMetrics(s.registry)

	s.setupRoutes()
	s.handler = Chain(
		RecoveryMiddleware(s.logger),
		LoggingMiddleware(s.logger, s.metrics),
		CORSMiddleware(s.cors, apiPrefix),
		RateLimitMiddleware(s.limiter, s.logger),
	)(s.mux)
	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("POST /api/chat", s.handleChat)
	s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	s.mux.HandleFunc("GET /{$}", s.handleHome)
}

// Handler returns the full middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Apply swaps in new settings. The listen address only takes effect on the
// next start.
func (s *Server) Apply(settings config.ServerConfig) {
	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()
	s.cors.SetOrigins(settings.AllowedOrigins)
	s.limiter.SetLimit(settings.RateLimitPerMinute)
	s.logger.Info("server settings applied",
		zap.Strings("origins", settings.AllowedOrigins),
		zap.Int("rate_limit_per_minute", settings.RateLimitPerMinute),
		zap.String("model", settings.Model),
	)
}

// SetGenerator replaces the Gemini client, e.g. after the API key changed.
func (s *Server) SetGenerator(g Generator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generator = g
}

func (s *Server) snapshot() (Generator, config.ServerConfig) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generator, s.settings
}

// ============================================================================
// HANDLERS
// ============================================================================

// handleHome handles GET /.
func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, HomeText)
}

// handleChat handles POST /api/chat.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	gen, settings := s.snapshot()

	r.Body = http.MaxBytesReader(w, r.Body, settings.MaxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Could not read request body")
		return
	}

	if gen == nil {
		s.logger.Error("chat request without API key")
		writeError(w, http.StatusInternalServerError, MissingKeyMessage)
		return
	}

	req, err := parseChatRequest(body)
	if err != nil {
		s.logger.Debug("invalid chat request", zap.Error(err))
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	start := time.Now()
	resp, err := gen.GenerateContent(r.Context(), settings.Model, req.contents, generationConfig(settings, req.instruction))
	if err != nil {
		s.metrics.observeUpstream("error", time.Since(start))
		status, msg := upstreamError(err)
		s.logger.Warn("upstream error", zap.Int("status", status), zap.Error(err))
		writeError(w, status, msg)
		return
	}
	s.metrics.observeUpstream("ok", time.Since(start))

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		s.metrics.blocked.Inc()
		s.logger.Info("prompt blocked", zap.String("reason", string(resp.PromptFeedback.BlockReason)))
	}

	writeJSON(w, http.StatusOK, resp)
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// ListenAndServe listens on the configured address and serves until
// Shutdown. It returns nil after a clean shutdown.
func (s *Server) ListenAndServe() error {
	_, settings := s.snapshot()
	ln, err := net.Listen("tcp", settings.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve serves on ln until Shutdown. A Server serves at most once.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("server started", zap.String("addr", ln.Addr().String()))
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server shutting down")
	return s.httpServer.Shutdown(ctx)
}

// ============================================================================
// HELPERS
// ============================================================================

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorBody is the {"error":{"message":...}} envelope clients expect.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Code: status, Message: message}})
}
