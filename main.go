// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Kryptonite is a terminal chat client for the Kryptonite backend.
//
// Usage:
//
//	kryptonite [flags]
//	kryptonite [command]
//
// Run "kryptonite --help" for the command list.
package main

import (
	"os"

	"github.com/jeranaias/kryptonite/internal/cli"
)

// Set by the release build with -ldflags "-X main.version=...".
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	cli.Version = version
	cli.GitCommit = gitCommit
	cli.BuildDate = buildDate
	os.Exit(cli.Execute())
}
