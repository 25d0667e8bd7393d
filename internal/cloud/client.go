// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/jeranaias/kryptonite/internal/model"
)

// Configuration constants for the chat backend.
const (
	// DefaultBackendURL is where a locally started kryptonite-backend listens.
	DefaultBackendURL = "http://127.0.0.1:7860/api/chat"

	// DefaultTimeout bounds a whole exchange.
	DefaultTimeout = 60 * time.Second

	// MaxResponseSize is the maximum allowed response body size.
	// SECURITY: Response size limit prevents memory exhaustion attacks.
	MaxResponseSize = 10 * 1024 * 1024

	// maxLoggedBody caps how much of an error body reaches the log.
	maxLoggedBody = 2048
)

// Error variables for transport failures.
var (
	// ErrBackendUnavailable wraps network-level failures reaching the backend.
	ErrBackendUnavailable = errors.New("could not reach the chat backend")

	// ErrResponseTooLarge indicates the body exceeded MaxResponseSize.
	ErrResponseTooLarge = errors.New("response exceeded maximum size")
)

// StatusError reports a non-2xx response. The body is kept for logging only.
type StatusError struct {
	Code   int
	Status string
	Body   []byte
}

// Error matches the wording the chat shows the user verbatim.
func (e *StatusError) Error() string {
	status := e.Status
	if status == "" {
		status = fmt.Sprintf("%d %s", e.Code, http.StatusText(e.Code))
	}
	return "The server responded with status: " + status
}

// =============================================================================
// WIRE TYPES
// =============================================================================

type instruction struct {
	Parts []model.Part `json:"parts"`
}

type generateRequest struct {
	Contents          []model.Message `json:"contents"`
	SystemInstruction *instruction    `json:"system_instruction,omitempty"`
}

// =============================================================================
// CLIENT
// =============================================================================

// Client sends conversation history to the chat backend. One call is one
// HTTP exchange; there are no retries.
type Client struct {
	url        string
	httpClient *http.Client
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-exchange timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the client's logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a client for the backend endpoint at url.
func NewClient(url string, opts ...Option) *Client {
	if strings.TrimSpace(url) == "" {
		url = DefaultBackendURL
	}
	c := &Client{
		url:        url,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL returns the endpoint the client posts to.
func (c *Client) URL() string {
	return c.url
}

// Generate posts the full history and system instruction and decodes the
// response into a tagged Reply. It never returns a Go error; failures come
// back as ReplyFailed.
func (c *Client) Generate(ctx context.Context, history []model.Message, systemInstruction string) model.Reply {
	start := time.Now()
	reply := c.generate(ctx, history, systemInstruction)

	fields := []zap.Field{
		zap.String("outcome", reply.Kind.String()),
		zap.Int("turns", len(history)),
		zap.Duration("duration", time.Since(start)),
	}
	if reply.Err != nil {
		fields = append(fields, zap.Error(reply.Err))
	}
	if reply.BlockReason != "" {
		fields = append(fields, zap.String("block_reason", reply.BlockReason))
	}
	c.logger.Debug("backend exchange", fields...)
	return reply
}

func (c *Client) generate(ctx context.Context, history []model.Message, systemInstruction string) model.Reply {
	reqBody := generateRequest{Contents: history}
	if reqBody.Contents == nil {
		reqBody.Contents = []model.Message{}
	}
	if systemInstruction != "" {
		reqBody.SystemInstruction = &instruction{Parts: []model.Part{{Text: systemInstruction}}}
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return model.FailedReply(fmt.Errorf("failed to marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(bodyBytes))
	if err != nil {
		return model.FailedReply(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return model.FailedReply(ctxErr)
		}
		return model.FailedReply(fmt.Errorf("%w: %v", ErrBackendUnavailable, err))
	}
	defer resp.Body.Close()

	body, readErr := readResponse(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("backend returned error status",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", truncateBody(body)))
		return model.FailedReply(&StatusError{Code: resp.StatusCode, Status: resp.Status, Body: body})
	}
	if readErr != nil {
		return model.FailedReply(readErr)
	}

	return DecodeReply(body)
}

// DecodeReply classifies a 2xx response body.
//
// Candidate text wins if present. Otherwise a promptFeedback.blockReason
// makes the reply blocked. Anything else, including invalid JSON and empty
// text, is malformed.
func DecodeReply(body []byte) model.Reply {
	if !gjson.ValidBytes(body) {
		return model.MalformedReply()
	}

	text := gjson.GetBytes(body, "candidates.0.content.parts.0.text")
	if text.Type == gjson.String && strings.TrimSpace(text.Str) != "" {
		return model.SuccessReply(text.Str)
	}

	if reason := gjson.GetBytes(body, "promptFeedback.blockReason"); reason.Exists() && reason.String() != "" {
		return model.BlockedReply(reason.String())
	}

	return model.MalformedReply()
}

// readResponse reads the body up to MaxResponseSize.
func readResponse(resp *http.Response) ([]byte, error) {
	// SECURITY: Limit response size to prevent memory exhaustion
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > MaxResponseSize {
		return body[:MaxResponseSize], fmt.Errorf("%w (%d bytes)", ErrResponseTooLarge, MaxResponseSize)
	}
	return body, nil
}

func truncateBody(body []byte) []byte {
	if len(body) > maxLoggedBody {
		return body[:maxLoggedBody]
	}
	return body
}
