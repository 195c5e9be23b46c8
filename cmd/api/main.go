package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"BMRCalculator/internal/config"
	"BMRCalculator/internal/database"
	"BMRCalculator/internal/recommendation"
	"BMRCalculator/internal/server"

	"github.com/rs/zerolog/log"
)

func gracefulShutdown(apiServer *http.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	log.Info().Msg("shutting down gracefully, press Ctrl+C again to force")
	stop() // Allow Ctrl+C to force shutdown

	// Five seconds to finish in-flight requests.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")
	done <- true
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("could not load configuration")
	}
	cfg.SetupLogger()

	dbService := database.NewService(cfg.StorePath)
	defer dbService.Close()

	client := recommendation.NewClient(cfg.Recommendation, nil)
	if client.Configured() {
		log.Info().
			Str("model", client.Model()).
			Str("key", cfg.Recommendation.MaskedKey()).
			Msg("Recommendation service configured")
	} else {
		log.Warn().Msg("No API key found; meal recommendations are unavailable")
	}

	srv := server.NewServer(cfg, dbService, client)

	done := make(chan bool, 1)
	go gracefulShutdown(srv, done)

	log.Info().Str("addr", srv.Addr).Str("store", cfg.StorePath).Msg("Server starting")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server error")
	}

	<-done
	log.Info().Msg("Graceful shutdown complete.")
}
