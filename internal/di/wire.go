// Package di provides dependency injection wiring and initialization.
package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/folio/internal/config"
)

// Wire initializes all dependencies and returns a fully configured container.
// Order of operations:
// 1. Validate configuration
// 2. Initialize services
// 3. Register jobs
//
// Nothing is started: the caller starts the scheduler and the watcher.
func Wire(cfg *config.Config, log zerolog.Logger) (*Container, *JobInstances, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	container := InitializeServices(cfg, log)

	jobs, err := RegisterJobs(container, cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to register jobs: %w", err)
	}

	log.Info().
		Str("entity_store", cfg.EntityStore.URL).
		Bool("watch", container.Watcher != nil).
		Msg("Dependency injection wiring completed successfully")

	return container, jobs, nil
}
