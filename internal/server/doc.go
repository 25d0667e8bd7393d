// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server implements kryptonite-backend, the small HTTP proxy that
// sits between chat clients and the Gemini API so the API key never leaves
// the server.
//
// # Endpoints
//
//   - POST /api/chat - forward {contents, system_instruction} to Gemini
//   - GET  /         - liveness text
//   - GET  /metrics  - Prometheus metrics
//
// # Middleware
//
// Requests pass through recovery, zap request logging, CORS (only for
// /api/*), and per-IP rate limiting, in that order. See Chain.
//
// # Usage
//
//	gen, err := server.NewGeminiGenerator(ctx, cfg.Server.APIKey)
//	srv := server.New(cfg.Server, server.WithGenerator(gen), server.WithLogger(logger))
//	go srv.ListenAndServe()
//	defer srv.Shutdown(context.Background())
package server
