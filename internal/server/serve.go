package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/todoapuestas/tap-bridge/internal/config"
)

// Serve runs server until ctx is cancelled or the process receives SIGINT or
// SIGTERM, then shuts it down gracefully and executes the hooks.
func Serve(ctx context.Context, cfg config.ServerConfig, server *http.Server, hooks *ShutdownHooks) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("server: listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	var listenErr error
	select {
	case listenErr = <-serverErr:
		if listenErr != nil {
			log.Error().Err(listenErr).Msg("server: listen failed")
			listenErr = fmt.Errorf("listen failed: %w", listenErr)
		}
	case <-ctx.Done():
		log.Info().Msg("server: shutdown requested")
	}

	timeout := time.Duration(cfg.ShutdownTimeoutSeconds) * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	shutdownErr := server.Shutdown(shutdownCtx)
	if shutdownErr != nil {
		log.Warn().Err(shutdownErr).Msg("server: graceful shutdown incomplete")
	}

	// hooks release the stores even when the server never started listening
	if hooks != nil {
		if err := hooks.Execute(shutdownCtx); err != nil {
			shutdownErr = errors.Join(shutdownErr, err)
		}
	}

	log.Info().Msg("server: stopped")

	return errors.Join(listenErr, shutdownErr)
}
