// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/jeranaias/kryptonite/internal/ui/styles"
)

// Version information, set at build time with -ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Execute runs the root command and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lipgloss.SetColorProfile(ColorProfile())

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		return 1
	}
	return 0
}

// NewRootCmd builds the command tree. Each call returns an independent
// tree so tests can run commands side by side.
func NewRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "kryptonite",
		Short: "Kryptonite, a chatbot with opinions",
		Long: `Kryptonite is a terminal chat client for a Gemini-backed assistant.

Run without arguments to open the full-screen chat. When stdin or stdout is
not a terminal the line-mode REPL is used instead.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", Version, GitCommit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if IsTTY() && IsStdoutTTY() {
				return runTUI(cmd.Context(), flags)
			}
			return runChat(cmd, flags)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file (toml, yaml or json)")
	pf.StringVar(&flags.storage, "storage", "", "storage driver: file, sqlite or memory")
	pf.StringVar(&flags.backend, "backend", "", "chat endpoint URL")
	pf.BoolVar(&flags.ephemeral, "ephemeral", false, "keep chats in memory only")
	pf.StringVar(&flags.logLevel, "log-level", "", "debug, info, warn or error")

	root.AddCommand(
		newChatCmd(flags),
		newAskCmd(flags),
		newHistoryCmd(flags),
		newThemeCmd(flags),
		newConfigCmd(flags),
	)
	return root
}

func paletteFor(dark bool) styles.Palette {
	if dark {
		return styles.DarkPalette
	}
	return styles.LightPalette
}
