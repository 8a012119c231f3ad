// Copyright (c) 2026 Waitgate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the Waitgate HTTP API server.
//
// # Commands
//
//   - serve (default): run the HTTP API with graceful shutdown.
//   - migrate: apply pending database migrations and exit.
//   - set-role: assign a role to an existing identity by email.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/taibuivan/waitgate/internal/platform/config"
)

// app carries what every command needs after the root pre-run.
type app struct {
	log *slog.Logger
	cfg *config.Config
}

func main() {
	// Initialize first so that subsequent startup errors are structured JSON.
	log := newLogger(slog.LevelInfo)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := newRootCommand(log).ExecuteContext(ctx); err != nil {
		log.Error("command_failed", slog.Any("error", err))
		stop()
		os.Exit(1)
	}
}

func newRootCommand(log *slog.Logger) *cobra.Command {
	application := &app{log: log}

	serve := newServeCommand(application)

	root := &cobra.Command{
		Use:           "waitgate",
		Short:         "Authentication and waitlist API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return application.load()
		},
		RunE: serve.RunE,
	}

	root.AddCommand(serve, newMigrateCommand(application), newSetRoleCommand(application))
	return root
}

// load reads configuration and switches to debug logging when asked.
func (application *app) load() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if cfg.Debug {
		application.log = newLogger(slog.LevelDebug)
		slog.SetDefault(application.log)
		application.log.Debug("debug_logging_enabled")
	}

	application.cfg = cfg
	application.log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.String("store_backend", cfg.StoreBackend),
		slog.String("rate_limit_backend", cfg.RateLimitBackend),
	)
	return nil
}

func newLogger(level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With(slog.String("app", "waitgate"))
}
