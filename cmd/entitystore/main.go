// Package main runs the reference entity store: a SQLite-backed REST service
// holding clients, assets and allocations, with a websocket change feed.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/folio/internal/config"
	"github.com/aristath/folio/internal/database"
	"github.com/aristath/folio/internal/entitystore"
	"github.com/aristath/folio/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
	})
	logger.SetGlobalLogger(log)

	db, err := database.New(database.Config{
		Path: cfg.EntityStore.DBPath,
		Name: "entitystore",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open entity store database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate entity store database")
	}
	log.Info().Str("path", db.Path()).Msg("Entity store database ready")

	srv := entitystore.NewServer(entitystore.ServerConfig{
		Log:  log,
		DB:   db,
		Port: cfg.EntityStore.Port,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start entity store")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Entity store forced to shutdown")
	}

	log.Info().Msg("Entity store stopped")
}
