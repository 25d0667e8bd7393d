// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the kryptonite command line.
//
// With no subcommand kryptonite opens the full-screen chat when stdin and
// stdout are terminals, and a line-mode REPL otherwise.
//
// Commands:
//
//	kryptonite                      TUI or REPL
//	kryptonite chat                 line-mode REPL
//	kryptonite ask "text"           one turn on the current chat, reply on stdout
//	kryptonite history list         list chats, newest first
//	kryptonite history switch N     make chat N current
//	kryptonite history clear        delete every chat (--yes to skip the prompt)
//	kryptonite history export       write a chat as md, json or html
//	kryptonite theme [light|dark|toggle]
//	kryptonite config show|path
//
// Global flags:
//
//	--config PATH     config file (toml, yaml or json)
//	--storage DRIVER  file, sqlite or memory
//	--backend URL     chat endpoint
//	--ephemeral       keep nothing on disk
//	--log-level LVL   debug, info, warn or error
package cli
