package di

import (
	"github.com/rs/zerolog"

	"github.com/aristath/folio/internal/clients/entitystore"
	"github.com/aristath/folio/internal/config"
	"github.com/aristath/folio/internal/dashboard"
	"github.com/aristath/folio/internal/events"
	"github.com/aristath/folio/internal/mutation"
	"github.com/aristath/folio/internal/querycache"
	"github.com/aristath/folio/internal/scheduler"
)

// InitializeServices creates the events bus, the entity store client and the
// services reading and writing through it
func InitializeServices(cfg *config.Config, log zerolog.Logger) *Container {
	container := &Container{Config: cfg}

	container.EventBus = events.NewBus()
	container.EventManager = events.NewManager(container.EventBus, log)

	container.StoreClient = entitystore.NewClient(cfg.EntityStore.URL, cfg.EntityStore.Timeout, log)

	container.Cache = querycache.New(container.EventManager, log)
	container.Dashboard = dashboard.NewService(container.StoreClient, container.Cache, log)
	container.Coordinator = mutation.NewCoordinator(
		container.StoreClient,
		container.Dashboard,
		container.Cache,
		container.EventManager,
		log,
	)

	container.Scheduler = scheduler.New(log)

	if cfg.EntityStore.Watch {
		container.Watcher = newChangeWatcher(container, log)
	}

	return container
}
