// kryptonite-backend - HTTP proxy between kryptonite clients and Gemini.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jeranaias/kryptonite/internal/config"
	"github.com/jeranaias/kryptonite/internal/logging"
	"github.com/jeranaias/kryptonite/internal/server"
)

// Version information (set at build time)
var Version = "dev"

const shutdownTimeout = 10 * time.Second

var (
	configPath string
	addrFlag   string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:           "kryptonite-backend",
	Short:         "Kryptonite chat backend (Gemini proxy)",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "", "config file (default: first of ~/.kryptonite/config.{toml,yaml,json})")
	rootCmd.Flags().StringVar(&addrFlag, "addr", "", "listen address, overrides server.addr and PORT")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, string, error) {
	path := configPath
	if path == "" {
		path = config.ExistingPath()
	}
	if path == "" {
		cfg, err := config.Load()
		return cfg, "", err
	}
	cfg, err := config.LoadFromPath(path)
	return cfg, path, err
}

func applyFlags(cfg *config.Config) {
	if addrFlag != "" {
		cfg.Server.Addr = addrFlag
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, path, err := loadConfig()
	if err != nil {
		return err
	}
	applyFlags(cfg)

	logger, err := logging.New(logging.Options{Level: cfg.Logging.Level, File: cfg.Logging.File, Console: cfg.Logging.File == ""})
	if err != nil {
		return err
	}
	defer logging.Sync(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []server.Option{server.WithLogger(logger)}
	if cfg.Server.APIKey != "" {
		gen, err := server.NewGeminiGenerator(ctx, cfg.Server.APIKey)
		if err != nil {
			return err
		}
		opts = append(opts, server.WithGenerator(gen))
	} else {
		logger.Warn("GEMINI_API_KEY is not set; chat requests will fail")
	}
	srv := server.New(cfg.Server, opts...)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("kryptonite-backend starting", zap.String("addr", cfg.Server.Addr), zap.String("version", Version))
		return srv.ListenAndServe()
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if path != "" {
		currentKey := cfg.Server.APIKey
		g.Go(func() error {
			return config.Watch(gctx, path, func(next *config.Config, err error) {
				if err != nil {
					logger.Warn("config reload failed", zap.Error(err))
					return
				}
				applyFlags(next)
				srv.Apply(next.Server)
				if next.Server.APIKey != currentKey && next.Server.APIKey != "" {
					gen, err := server.NewGeminiGenerator(gctx, next.Server.APIKey)
					if err != nil {
						logger.Warn("gemini client rebuild failed", zap.Error(err))
						return
					}
					srv.SetGenerator(gen)
					currentKey = next.Server.APIKey
				}
			})
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("kryptonite-backend stopped")
	return nil
}
