package querycache

import "github.com/rs/zerolog"

// SweepJob removes expired entries from the cache.
// It is scheduled by the scheduler every CACHE_SWEEP_SCHEDULE.
type SweepJob struct {
	cache *Cache
	log   zerolog.Logger
}

// NewSweepJob creates a new cache sweep job
func NewSweepJob(cache *Cache, log zerolog.Logger) *SweepJob {
	return &SweepJob{
		cache: cache,
		log:   log.With().Str("job", "query_cache_sweep").Logger(),
	}
}

// Run executes the sweep
func (j *SweepJob) Run() error {
	if removed := j.cache.Sweep(); removed > 0 {
		j.log.Debug().
			Int("removed", removed).
			Int("remaining", j.cache.Len()).
			Msg("Swept expired cache entries")
	}
	return nil
}

// Name returns the job name for scheduling and logging
func (j *SweepJob) Name() string {
	return "query_cache_sweep"
}
