// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/jeranaias/kryptonite/internal/model"
)

func newTestServer(t *testing.T, status int, body string) (*httptest.Server, *[]byte) {
	t.Helper()
	var captured []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &captured
}

// =============================================================================
// REQUEST SHAPE
// =============================================================================

func TestGenerate_RequestShape(t *testing.T) {
	srv, captured := newTestServer(t, http.StatusOK,
		`{"candidates":[{"content":{"parts":[{"text":"yo"}]}}]}`)

	history := []model.Message{
		model.NewMessage(model.RoleUser, "hello"),
		model.NewMessage(model.RoleModel, "hey"),
		model.NewMessage(model.RoleUser, "what's up"),
	}
	reply := NewClient(srv.URL).Generate(context.Background(), history, "be cool")
	require.Equal(t, model.ReplySuccess, reply.Kind)

	body := *captured
	assert.Equal(t, int64(3), gjson.GetBytes(body, "contents.#").Int())
	assert.Equal(t, "user", gjson.GetBytes(body, "contents.0.role").String())
	assert.Equal(t, "hey", gjson.GetBytes(body, "contents.1.parts.0.text").String())
	assert.Equal(t, "be cool", gjson.GetBytes(body, "system_instruction.parts.0.text").String())
}

// =============================================================================
// REPLY CLASSIFICATION
// =============================================================================

func TestGenerate_Classification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind model.ReplyKind
		wantText string
	}{
		{
			name:     "success",
			status:   200,
			body:     `{"candidates":[{"content":{"parts":[{"text":"no cap"}]}}]}`,
			wantKind: model.ReplySuccess,
			wantText: "no cap",
		},
		{
			name:     "blocked",
			status:   200,
			body:     `{"promptFeedback":{"blockReason":"SAFETY"}}`,
			wantKind: model.ReplyBlocked,
		},
		{
			name:     "no candidates and no block reason",
			status:   200,
			body:     `{"usageMetadata":{"promptTokenCount":3}}`,
			wantKind: model.ReplyMalformed,
		},
		{
			name:     "candidate without parts",
			status:   200,
			body:     `{"candidates":[{"content":{}}]}`,
			wantKind: model.ReplyMalformed,
		},
		{
			name:     "empty text",
			status:   200,
			body:     `{"candidates":[{"content":{"parts":[{"text":"  "}]}}]}`,
			wantKind: model.ReplyMalformed,
		},
		{
			name:     "not json",
			status:   200,
			body:     `<html>oops</html>`,
			wantKind: model.ReplyMalformed,
		},
		{
			name:     "server error",
			status:   500,
			body:     `{"error":{"message":"boom"}}`,
			wantKind: model.ReplyFailed,
		},
		{
			name:     "rate limited with non-json body",
			status:   429,
			body:     `slow down`,
			wantKind: model.ReplyFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, tt.status, tt.body)
			reply := NewClient(srv.URL).Generate(context.Background(), nil, "")
			assert.Equal(t, tt.wantKind, reply.Kind, "kind")
			assert.Equal(t, tt.wantText, reply.Text, "text")
		})
	}
}

func TestGenerate_StatusErrorMessage(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusServiceUnavailable, `down`)

	reply := NewClient(srv.URL).Generate(context.Background(), nil, "")
	require.Equal(t, model.ReplyFailed, reply.Kind)

	var statusErr *StatusError
	require.True(t, errors.As(reply.Err, &statusErr))
	assert.Equal(t, 503, statusErr.Code)
	assert.Equal(t, "down", string(statusErr.Body))
	assert.Equal(t, "The server responded with status: 503 Service Unavailable", reply.Err.Error())
}

func TestGenerate_BlockReasonCarried(t *testing.T) {
	srv, _ := newTestServer(t, 200, `{"promptFeedback":{"blockReason":"OTHER"}}`)
	reply := NewClient(srv.URL).Generate(context.Background(), nil, "")
	assert.Equal(t, "OTHER", reply.BlockReason)
}

// =============================================================================
// FAILURES
// =============================================================================

func TestGenerate_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	reply := NewClient(url).Generate(context.Background(), nil, "")
	require.Equal(t, model.ReplyFailed, reply.Kind)
	assert.True(t, errors.Is(reply.Err, ErrBackendUnavailable), "got %v", reply.Err)
}

func TestGenerate_ContextCanceled(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	reply := NewClient(srv.URL).Generate(ctx, nil, "")
	require.Equal(t, model.ReplyFailed, reply.Kind)
	assert.True(t, errors.Is(reply.Err, context.DeadlineExceeded), "got %v", reply.Err)
}

func TestReadResponse_SizeLimit(t *testing.T) {
	resp := &http.Response{Body: io.NopCloser(strings.NewReader(strings.Repeat("a", MaxResponseSize+10)))}
	_, err := readResponse(resp)
	assert.True(t, errors.Is(err, ErrResponseTooLarge))

	resp = &http.Response{Body: io.NopCloser(strings.NewReader(strings.Repeat("a", MaxResponseSize)))}
	body, err := readResponse(resp)
	require.NoError(t, err)
	assert.Len(t, body, MaxResponseSize)
}

func TestNewClient_DefaultURL(t *testing.T) {
	assert.Equal(t, DefaultBackendURL, NewClient("").URL())
}
