package di

import (
	"github.com/rs/zerolog"

	"github.com/aristath/folio/internal/clients/entitystore"
	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/events"
	"github.com/aristath/folio/internal/mutation"
)

const watcherModule = "entitystore_watcher"

// newChangeWatcher follows the entity store change feed. Each change
// invalidates what the matching local mutation would have; a (re)connection
// invalidates everything since changes missed while offline are not replayed.
func newChangeWatcher(container *Container, log zerolog.Logger) *entitystore.Watcher {
	log = log.With().Str("component", watcherModule).Logger()

	watcher := container.StoreClient.NewWatcher(func(change domain.Change) {
		resources := mutation.InvalidatedByChange(change)
		container.Cache.Invalidate("entity store "+string(change.Action)+" "+string(change.Resource), resources...)
		container.EventManager.EmitTyped(watcherModule, &events.EntityStoreChangedData{
			Resource: string(change.Resource),
			Action:   string(change.Action),
			ID:       change.ID,
		})
		log.Debug().
			Str("resource", string(change.Resource)).
			Str("action", string(change.Action)).
			Str("id", change.ID).
			Msg("Applied entity store change")
	})

	watcher.OnConnect = func() {
		container.Cache.Invalidate("entity store reconnected", domain.AllResources...)
		container.EventManager.Emit(events.EntityStoreConnected, watcherModule, map[string]interface{}{
			"url": container.StoreClient.BaseURL(),
		})
	}

	return watcher
}
