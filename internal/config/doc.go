// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads kryptonite's settings.
//
// Precedence, lowest first: built-in defaults, the config file
// (TOML, YAML or JSON), environment variables, command-line flags (applied
// by package cli).
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	path, _ := cfg.StoragePath()
//
// The backend proxy can follow edits to its config file:
//
//	go config.Watch(ctx, path, func(cfg *config.Config, err error) { ... })
package config
