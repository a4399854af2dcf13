package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/folio/internal/config"
	"github.com/aristath/folio/internal/querycache"
)

// RegisterJobs registers the background jobs with the scheduler
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	jobs := &JobInstances{
		CacheSweep: querycache.NewSweepJob(container.Cache, log),
	}

	if err := container.Scheduler.AddJob(cfg.CacheSweepSchedule, jobs.CacheSweep); err != nil {
		return nil, fmt.Errorf("failed to register %s job: %w", jobs.CacheSweep.Name(), err)
	}

	return jobs, nil
}
