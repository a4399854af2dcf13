package di

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"github.com/aristath/folio/internal/config"
	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/events"
	"github.com/aristath/folio/internal/querycache"
)

func testConfig(url string, watch bool) *config.Config {
	return &config.Config{
		LogLevel: "info",
		Port:     8001,
		Currency: "USD",
		EntityStore: config.EntityStoreConfig{
			URL:     url,
			Timeout: time.Second,
			Watch:   watch,
			Port:    8080,
			DBPath:  "/tmp/entitystore.db",
		},
		CacheSweepSchedule: "@every 1m",
	}
}

func TestWire(t *testing.T) {
	container, jobs, err := Wire(testConfig("http://localhost:8080", false), zerolog.Nop())
	require.NoError(t, err)

	assert.NotNil(t, container.EventManager)
	assert.NotNil(t, container.StoreClient)
	assert.NotNil(t, container.Cache)
	assert.NotNil(t, container.Dashboard)
	assert.NotNil(t, container.Coordinator)
	assert.Nil(t, container.Watcher)

	require.NotNil(t, jobs.CacheSweep)
	assert.Equal(t, []string{"query_cache_sweep"}, container.Scheduler.Jobs())
}

func TestWire_RejectsInvalidConfig(t *testing.T) {
	cfg := testConfig("localhost:8080", false)

	_, _, err := Wire(cfg, zerolog.Nop())
	assert.ErrorContains(t, err, "ENTITY_STORE_URL")
}

func TestWire_RejectsBadSchedule(t *testing.T) {
	cfg := testConfig("http://localhost:8080", false)
	cfg.CacheSweepSchedule = "every now and then"

	_, _, err := Wire(cfg, zerolog.Nop())
	assert.ErrorContains(t, err, "query_cache_sweep")
}

func TestWatcher_InvalidatesOnChanges(t *testing.T) {
	send := make(chan domain.Change)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/changes" {
			http.NotFound(w, r)
			return
		}
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")
		for {
			select {
			case <-r.Context().Done():
				return
			case change := <-send:
				data, _ := json.Marshal(change)
				if err := conn.Write(r.Context(), websocket.MessageText, data); err != nil {
					return
				}
			}
		}
	}))
	defer server.Close()

	container, _, err := Wire(testConfig(server.URL, true), zerolog.Nop())
	require.NoError(t, err)
	require.NotNil(t, container.Watcher)

	received := make(chan events.Event, 8)
	container.EventBus.Subscribe(func(e events.Event) { received <- e }, events.EntityStoreConnected, events.EntityStoreChanged)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = container.Watcher.Run(ctx) }()

	waitFor := func(eventType events.EventType) events.Event {
		t.Helper()
		for {
			select {
			case e := <-received:
				if e.Type == eventType {
					return e
				}
			case <-time.After(2 * time.Second):
				t.Fatalf("no %s event", eventType)
			}
		}
	}
	waitFor(events.EntityStoreConnected)

	key := querycache.ListKey(domain.ResourceAssets)
	_, err = querycache.Fetch(ctx, container.Cache, key, time.Minute, func(context.Context) (string, error) {
		return "cached", nil
	})
	require.NoError(t, err)
	require.True(t, container.Cache.Has(key))

	send <- domain.Change{Resource: domain.ResourceAssets, Action: domain.ChangeUpdated, ID: "a1"}

	changed := waitFor(events.EntityStoreChanged)
	assert.Equal(t, "assets", changed.Data["resource"])
	assert.Equal(t, "a1", changed.Data["id"])
	assert.False(t, container.Cache.Has(key))
}
