// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/kryptonite/internal/config"
	"github.com/jeranaias/kryptonite/internal/conversation"
	"github.com/jeranaias/kryptonite/internal/export"
	"github.com/jeranaias/kryptonite/internal/storage"
)

// =============================================================================
// CHAT
// =============================================================================

func newChatCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Line-mode chat with slash commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChat(cmd, flags)
		},
	}
}

func runChat(cmd *cobra.Command, flags *globalFlags) error {
	a, err := flags.openApp(false)
	if err != nil {
		return err
	}
	defer a.Close()
	return runREPL(cmd.Context(), a, cmd.OutOrStdout())
}

// =============================================================================
// ASK
// =============================================================================

func newAskCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "ask TEXT...",
		Short: "Send one message on the current chat and print the reply",
		Example: `  kryptonite ask "explain goroutines like I'm five"
  kryptonite --ephemeral ask what is a monad`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := flags.openApp(false)
			if err != nil {
				return err
			}
			defer a.Close()
			return runAsk(cmd.Context(), a, cmd.OutOrStdout(), strings.Join(args, " "))
		},
	}
}

func runAsk(ctx context.Context, a *app, out io.Writer, text string) error {
	r := newPlainRenderer(out, paletteFor(a.dark()))
	r.replyOnly = true
	ctrl := a.controller(r)

	outcome, err := ctrl.SendMessage(ctx, text, false)
	if err != nil {
		return err
	}
	switch outcome {
	case conversation.OutcomeIgnored:
		return fmt.Errorf("nothing to send")
	case conversation.OutcomeFailed:
		return fmt.Errorf("request failed")
	}
	return nil
}

// =============================================================================
// HISTORY
// =============================================================================

func newHistoryCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List, switch, clear or export chats",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List chats, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := flags.openApp(false)
			if err != nil {
				return err
			}
			defer a.Close()
			writeHistory(cmd.OutOrStdout(), a.store.List(), a.store.CurrentID())
			return nil
		},
	}

	switchCmd := &cobra.Command{
		Use:   "switch N",
		Short: "Make chat N (from history list) current",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("N must be a number: %w", err)
			}
			a, err := flags.openApp(false)
			if err != nil {
				return err
			}
			defer a.Close()
			id, err := a.chatAt(n)
			if err != nil {
				return err
			}
			if _, err := a.store.SetCurrent(id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Switched to chat %d.\n", n)
			return nil
		},
	}

	var yes bool
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every chat",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := flags.openApp(false)
			if err != nil {
				return err
			}
			defer a.Close()
			return runClear(cmd.Context(), a, cmd.InOrStdin(), cmd.OutOrStdout(), yes)
		},
	}
	clearCmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")

	var (
		format string
		output string
		open   bool
	)
	exportCmd := &cobra.Command{
		Use:   "export [N]",
		Short: "Write a chat to a file (current chat unless N is given)",
		Example: `  kryptonite history export
  kryptonite history export --format html -o chat.html --open
  kryptonite history export 3 --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := flags.openApp(false)
			if err != nil {
				return err
			}
			defer a.Close()

			id := a.store.CurrentID()
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("N must be a number: %w", err)
				}
				if id, err = a.chatAt(n); err != nil {
					return err
				}
			}
			if format == "" {
				format = export.FormatFromPath(output)
			}
			path, err := exportChat(a, id, format, output, open)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", path)
			return nil
		},
	}
	exportCmd.Flags().StringVarP(&format, "format", "f", "", "md, json or html (default from -o, else md)")
	exportCmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: generated name)")
	exportCmd.Flags().BoolVar(&open, "open", false, "open the file when done")

	cmd.AddCommand(list, switchCmd, clearCmd, exportCmd)
	return cmd
}

// runClear deletes all history. Without yes it asks on in and refuses when
// the answer is not "y".
func runClear(ctx context.Context, a *app, in io.Reader, out io.Writer, yes bool) error {
	confirm := conversation.ConfirmFunc(func(_ context.Context, prompt string) bool {
		if yes {
			return true
		}
		fmt.Fprintf(out, "%s [y/N] ", prompt)
		answer, _ := bufio.NewReader(in).ReadString('\n')
		return strings.EqualFold(strings.TrimSpace(answer), "y")
	})

	r := newPlainRenderer(io.Discard, paletteFor(true))
	ok, err := a.controller(r, conversation.WithConfirmer(confirm)).DeleteAllHistory(ctx)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(out, "Kept your history.")
		return nil
	}
	fmt.Fprintln(out, "History cleared.")
	return nil
}

// exportCurrent writes the current chat.
func exportCurrent(a *app, format, path string, open bool) (string, error) {
	return exportChat(a, a.store.CurrentID(), format, path, open)
}

func exportChat(a *app, id, format, path string, open bool) (string, error) {
	conv, err := a.store.Conversation(id)
	if err != nil {
		return "", err
	}
	opts := export.DefaultOptions()
	opts.OpenAfterExport = open
	if !a.dark() {
		opts.Theme = string(storage.ThemeLight)
	}
	exporter, err := export.New(format, opts)
	if err != nil {
		return "", err
	}
	return export.ExportToFile(conv, exporter, path, opts)
}

// =============================================================================
// THEME
// =============================================================================

func newThemeCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:       "theme [light|dark|toggle]",
		Short:     "Show or change the colour theme",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"light", "dark", "toggle"},
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := flags.openApp(false)
			if err != nil {
				return err
			}
			defer a.Close()

			var t storage.Theme
			switch {
			case len(args) == 0:
				t, err = a.prefs.Theme()
			case args[0] == "toggle":
				t, err = a.prefs.ToggleTheme()
			default:
				t, err = storage.ParseTheme(args[0])
				if err == nil {
					err = a.prefs.SetTheme(t)
				}
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), t)
			return nil
		},
	}
}

// =============================================================================
// CONFIG
// =============================================================================

func newConfigCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration (secrets masked)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := flags.loadConfig()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cfg.String())
				return nil
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the config file in use, or where one would go",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				path := flags.configPath
				if path == "" {
					path = config.ExistingPath()
				}
				if path == "" {
					dir, err := config.ConfigDir()
					if err != nil {
						return err
					}
					path = dir + "/config.toml"
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			},
		},
	)
	return cmd
}
