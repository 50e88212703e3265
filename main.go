package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog"

	"sweetshop/internal/backend"
	"sweetshop/internal/config"
	"sweetshop/internal/logger"
	"sweetshop/internal/router"
	"sweetshop/internal/session"
	"sweetshop/internal/storage"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(1)
	}

	log := logger.InitLogger(cfg.LogLevel)
	log.Info().Str("backend", cfg.BackendURL).Msg("Starting sweet shop gateway")

	store, err := openStorage(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open session storage")
	}
	defer store.Close()

	sessions := session.NewStore(store, log)
	defer sessions.Close()

	api := backend.NewClient(cfg.BackendURL, 30*time.Second, log)

	r := router.SetupRouter(api, sessions, log)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Gateway listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit
	log.Info().Msg("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}

	log.Info().Msg("Gateway stopped")
}

func openStorage(cfg config.Config, log zerolog.Logger) (storage.Store, error) {
	switch cfg.StorageBackend {
	case "file", "":
		return storage.NewFileStore(cfg.StoragePath, log)
	case "redis":
		return storage.NewRedisStore(cfg.RedisAddr, log)
	case "sql":
		return storage.NewSQLStore(cfg.StorageDriver, cfg.StorageDSN, log)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
