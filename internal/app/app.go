package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/channelhub/internal/auth"
	"github.com/vovakirdan/channelhub/internal/channels"
	"github.com/vovakirdan/channelhub/internal/config"
	"github.com/vovakirdan/channelhub/internal/core"
	"github.com/vovakirdan/channelhub/internal/store"
	"github.com/vovakirdan/channelhub/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/channelhub/internal/transport/http"
)

// App wires together storage, domain, core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	store           store.Store
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	authService := auth.NewService(st, auth.JWTConfigFrom(cfg))
	channelSvc := channels.New(st, channels.Options{
		KickThreshold: cfg.KickThreshold,
		HistoryLimit:  cfg.HistoryLimit,
	}, logger)

	hub := core.NewHub(channelSvc, core.Options{TypingTTL: cfg.TypingTTL}, logger)
	server := transporthttp.NewServer(hub, authService, channelSvc, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		store:           st,
		log:             logger,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	hubCtx, stopHub := context.WithCancel(ctx)
	hubDone := make(chan struct{})
	go func() {
		defer close(hubDone)
		a.hub.Run(hubCtx)
	}()

	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	var runErr error
	select {
	case runErr = <-serverErr:
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			runErr = err
		} else {
			runErr = <-serverErr
		}
	}

	stopHub()
	<-hubDone
	a.cleanup()
	return runErr
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
