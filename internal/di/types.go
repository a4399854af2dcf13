package di

import (
	"github.com/aristath/folio/internal/clients/entitystore"
	"github.com/aristath/folio/internal/config"
	"github.com/aristath/folio/internal/dashboard"
	"github.com/aristath/folio/internal/events"
	"github.com/aristath/folio/internal/mutation"
	"github.com/aristath/folio/internal/querycache"
	"github.com/aristath/folio/internal/scheduler"
)

// Container holds every long-lived dependency of the dashboard
type Container struct {
	Config *config.Config

	// Events
	EventBus     *events.Bus
	EventManager *events.Manager

	// Clients - the remote entity store
	StoreClient *entitystore.Client
	Watcher     *entitystore.Watcher // nil unless ENTITY_STORE_WATCH is set

	// Services
	Cache       *querycache.Cache
	Dashboard   *dashboard.Service
	Coordinator *mutation.Coordinator

	// Background jobs
	Scheduler *scheduler.Scheduler
}

// JobInstances holds the registered jobs for manual triggering
type JobInstances struct {
	CacheSweep scheduler.Job
}
