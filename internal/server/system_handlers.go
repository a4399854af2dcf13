package server

import (
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/folio/internal/di"
	"github.com/aristath/folio/internal/domain"
)

// SystemHandlers serves health, cache control and job endpoints
type SystemHandlers struct {
	responder
	container *di.Container
	started   time.Time

	mu   sync.RWMutex
	jobs *di.JobInstances
}

// NewSystemHandlers creates the system handlers
func NewSystemHandlers(container *di.Container, log zerolog.Logger) *SystemHandlers {
	return &SystemHandlers{
		responder: responder{log: log.With().Str("handler", "system").Logger()},
		container: container,
		started:   time.Now(),
	}
}

// SetJobs registers job instances for manual triggering
func (h *SystemHandlers) SetJobs(jobs *di.JobInstances) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.jobs = jobs
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status      string  `json:"status"`
	Service     string  `json:"service"`
	Uptime      string  `json:"uptime"`
	EntityStore string  `json:"entityStore"`
	Watching    bool    `json:"watching"`
	CacheSize   int     `json:"cacheSize"`
	Subscribers int     `json:"subscribers"`
	CPUPercent  float64 `json:"cpuPercent"`
	RAMPercent  float64 `json:"ramPercent"`
}

// HandleHealth handles health check requests
// GET /health
func (h *SystemHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	cpuPercent, ramPercent := h.getSystemStats()

	h.writeJSON(w, http.StatusOK, HealthResponse{
		Status:      "healthy",
		Service:     "folio",
		Uptime:      time.Since(h.started).Round(time.Second).String(),
		EntityStore: h.container.StoreClient.BaseURL(),
		Watching:    h.container.Watcher != nil,
		CacheSize:   h.container.Cache.Len(),
		Subscribers: h.container.EventBus.Subscribers(),
		CPUPercent:  cpuPercent,
		RAMPercent:  ramPercent,
	})
}

// getSystemStats calculates CPU and RAM usage percentages.
// The CPU sample is short so the health check stays fast.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

// HandleInvalidateCache drops every cached read, forcing a refetch from the
// entity store
// POST /api/cache/invalidate
func (h *SystemHandlers) HandleInvalidateCache(w http.ResponseWriter, r *http.Request) {
	removed := h.container.Cache.Invalidate("manual refresh", domain.AllResources...)
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"removed": removed,
	})
}

// HandleJobs lists the scheduled jobs
// GET /api/jobs
func (h *SystemHandlers) HandleJobs(w http.ResponseWriter, r *http.Request) {
	jobs := h.container.Scheduler.Jobs()
	sort.Strings(jobs)
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"jobs": jobs})
}

// HandleTriggerCacheSweep runs the cache sweep job immediately
// POST /api/jobs/cache-sweep
func (h *SystemHandlers) HandleTriggerCacheSweep(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	jobs := h.jobs
	h.mu.RUnlock()

	if jobs == nil || jobs.CacheSweep == nil {
		h.log.Warn().Msg("Cache sweep job not registered yet")
		h.writeError(w, http.StatusServiceUnavailable, "cache sweep job not registered")
		return
	}

	if err := h.container.Scheduler.RunNow(jobs.CacheSweep); err != nil {
		h.log.Error().Err(err).Msg("Cache sweep failed")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"job":       jobs.CacheSweep.Name(),
		"cacheSize": h.container.Cache.Len(),
	})
}
