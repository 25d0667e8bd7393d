// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
	"google.golang.org/genai"

	"github.com/jeranaias/kryptonite/internal/config"
)

// Generator is the part of the Gemini client the proxy uses.
// *genai.Models satisfies it.
type Generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// NewGeminiGenerator creates a Gemini API client for apiKey.
func NewGeminiGenerator(ctx context.Context, apiKey string) (Generator, error) {
	if apiKey == "" {
		return nil, errors.New("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return client.Models, nil
}

// safetySettings blocks medium-and-above for every category the chat uses.
func safetySettings() []*genai.SafetySetting {
	categories := []genai.HarmCategory{
		genai.HarmCategoryHarassment,
		genai.HarmCategoryHateSpeech,
		genai.HarmCategorySexuallyExplicit,
		genai.HarmCategoryDangerousContent,
	}
	settings := make([]*genai.SafetySetting, 0, len(categories))
	for _, c := range categories {
		settings = append(settings, &genai.SafetySetting{
			Category:  c,
			Threshold: genai.HarmBlockThresholdBlockMediumAndAbove,
		})
	}
	return settings
}

// generationConfig builds the request config from server settings.
func generationConfig(cfg config.ServerConfig, instruction *genai.Content) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		SystemInstruction: instruction,
		Temperature:       genai.Ptr(float32(cfg.Temperature)),
		TopK:              genai.Ptr(float32(cfg.TopK)),
		TopP:              genai.Ptr(float32(cfg.TopP)),
		MaxOutputTokens:   int32(cfg.MaxOutputTokens),
		SafetySettings:    safetySettings(),
	}
}

// chatRequest is a decoded POST /api/chat body.
type chatRequest struct {
	contents    []*genai.Content
	instruction *genai.Content
}

// parseChatRequest validates and converts the client body. Roles must be
// "user" or "model" and every message needs at least one text part.
func parseChatRequest(body []byte) (*chatRequest, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("request body is not valid JSON")
	}
	root := gjson.ParseBytes(body)

	contents := root.Get("contents")
	if !contents.IsArray() || len(contents.Array()) == 0 {
		return nil, errors.New("contents must be a non-empty array")
	}

	req := &chatRequest{}
	for i, msg := range contents.Array() {
		role := msg.Get("role").String()
		if role != genai.RoleUser && role != genai.RoleModel {
			return nil, fmt.Errorf("contents[%d]: invalid role %q", i, role)
		}
		parts := textParts(msg.Get("parts"))
		if len(parts) == 0 {
			return nil, fmt.Errorf("contents[%d]: no text parts", i)
		}
		req.contents = append(req.contents, &genai.Content{Role: role, Parts: parts})
	}

	if parts := textParts(root.Get("system_instruction.parts")); len(parts) > 0 {
		req.instruction = &genai.Content{Parts: parts}
	}
	return req, nil
}

func textParts(v gjson.Result) []*genai.Part {
	var parts []*genai.Part
	for _, p := range v.Array() {
		if t := p.Get("text"); t.Type == gjson.String {
			parts = append(parts, &genai.Part{Text: t.String()})
		}
	}
	return parts
}

// upstreamError maps a Gemini error to the status and message returned to
// the client. API errors keep their status; anything else is a 500.
func upstreamError(err error) (int, string) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiStatus(apiErr.Code), apiErr.Message
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiStatus(apiErrPtr.Code), apiErrPtr.Message
	}
	return http.StatusInternalServerError, err.Error()
}

func apiStatus(code int) int {
	if code < 400 || code > 599 {
		return http.StatusBadGateway
	}
	return code
}
