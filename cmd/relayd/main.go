// Command relayd runs the image relay HTTP service.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"

	"github.com/tolven/imgrelay/internal/env"
	"github.com/tolven/imgrelay/relay"
)

func main() {
	// A .env file is optional; real env vars win either way.
	_ = godotenv.Load()

	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	var logger zerolog.Logger
	if env.GetBool("LOG_PRETTY", false) {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	} else {
		logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	cfg := relay.DefaultConfig()
	cfg.Port = env.GetInt("PORT", cfg.Port)
	cfg.DefaultHeaders = env.GetBool("RELAY_DEFAULT_HEADERS", cfg.DefaultHeaders)

	server := relay.NewServer(cfg, &logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.ListenAndServe(ctx); err != nil && err != http.ErrServerClosed {
		logger.Fatal().Err(err).Msg("[relayd] server exited")
	}
	logger.Info().Msg("[relayd] shutdown complete")
}
