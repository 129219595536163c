package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/channelhub/internal/app"
	"github.com/vovakirdan/channelhub/internal/config"
	"github.com/vovakirdan/channelhub/internal/log"
)

type serveOptions struct {
	configPath string
	override   config.Config
}

func newRootCmd() *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:          "channelhub",
		Short:        "Real-time channel messaging server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.configPath, "config", "", "path to config.yaml")
	flags.StringVar(&opts.override.Addr, "addr", "", "HTTP listen address")
	flags.StringVar(&opts.override.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&opts.override.DatabasePath, "db", "", "SQLite database path")
	flags.IntVar(&opts.override.KickThreshold, "kick-threshold", 0, "distinct kicks that ban a member")

	cmd.AddCommand(newChatCmd())
	return cmd
}

func runServe(parent context.Context, opts *serveOptions) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bootLog := log.New("info", "console")
	cfg, path, err := config.Load(bootLog, opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.UpdateFrom(opts.override)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := log.New(cfg.LogLevel, cfg.LogFormat)
	logger.Info().Str("config", path).Str("addr", cfg.Addr).Msg("starting channelhub")

	application, err := app.New(&cfg, logger)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	if err := application.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("server exited with error")
		return err
	}

	logger.Info().Msg("server stopped")
	return nil
}
