package server

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/folio/internal/config"
	"github.com/aristath/folio/internal/database"
	"github.com/aristath/folio/internal/di"
	"github.com/aristath/folio/internal/entitystore"
)

func testConfig(storeURL string) *config.Config {
	return &config.Config{
		LogLevel: "info",
		Port:     8001,
		Currency: "USD",
		EntityStore: config.EntityStoreConfig{
			URL:     storeURL,
			Timeout: 2 * time.Second,
			Port:    8080,
			DBPath:  "/tmp/entitystore.db",
		},
		CacheSweepSchedule: "@every 1m",
	}
}

// startStore runs the reference entity store on an in-memory database
func startStore(t *testing.T) *httptest.Server {
	t.Helper()
	db, err := database.New(database.Config{Path: "file::memory:", Name: "entitystore"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())

	store := httptest.NewServer(entitystore.NewServer(entitystore.ServerConfig{Log: zerolog.Nop(), DB: db}).Handler())
	t.Cleanup(store.Close)
	return store
}

func newTestServer(t *testing.T, storeURL string) (*Server, *httptest.Server) {
	t.Helper()
	cfg := testConfig(storeURL)
	container, jobs, err := di.Wire(cfg, zerolog.Nop())
	require.NoError(t, err)

	s := New(Config{Log: zerolog.Nop(), Config: cfg, Container: container})
	s.SetJobs(jobs)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		s.eventsStream.Close()
		ts.Close()
	})
	return s, ts
}

func do(t *testing.T, method, url, body string) (int, map[string]interface{}) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]interface{}{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func TestDashboard_AllocationFlow(t *testing.T) {
	store := startStore(t)
	_, ts := newTestServer(t, store.URL)
	api := ts.URL + "/api"

	status, overview := do(t, http.MethodGet, api+"/overview", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(0), overview["clients"])

	status, client := do(t, http.MethodPost, api+"/clients", `{"name":"Ana","email":"ana@example.com"}`)
	require.Equal(t, http.StatusCreated, status)
	clientID := client["id"].(string)
	assert.Equal(t, "active", client["status"])

	status, asset := do(t, http.MethodPost, api+"/assets", `{"name":"Treasury Bond","currentValue":"1000"}`)
	require.Equal(t, http.StatusCreated, status)
	assetID := asset["id"].(string)

	// Prime the cache so the mutation below must invalidate it
	status, detail := do(t, http.MethodGet, api+"/clients/"+clientID, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(0), detail["total"])

	status, alloc := do(t, http.MethodPost, api+"/allocations",
		`{"clientId":"`+clientID+`","assetId":"`+assetID+`","amount":250}`)
	require.Equal(t, http.StatusCreated, status)
	allocID := alloc["id"].(string)

	status, detail = do(t, http.MethodGet, api+"/clients/"+clientID, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(250), detail["total"])
	rows := detail["allocations"].([]interface{})
	require.Len(t, rows, 1)
	assert.Equal(t, 0.25, rows[0].(map[string]interface{})["share"])

	status, assetDetail := do(t, http.MethodGet, api+"/assets/"+assetID, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), assetDetail["holders"])

	status, list := do(t, http.MethodGet, api+"/allocations?client="+clientID, "")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, list["rows"], 1)
	assert.Equal(t, float64(0), list["invalid"])

	status, _ = do(t, http.MethodDelete, api+"/allocations/"+allocID, "")
	require.Equal(t, http.StatusNoContent, status)

	status, list = do(t, http.MethodGet, api+"/allocations", "")
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, list["rows"])
}

func TestDashboard_ValidationFailureNeverReachesStore(t *testing.T) {
	store := startStore(t)
	_, ts := newTestServer(t, store.URL)

	status, body := do(t, http.MethodPost, ts.URL+"/api/clients", `{"name":"A","email":"not-an-email"}`)
	require.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "validation failed", body["error"])
	fields := body["fields"].(map[string]interface{})
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "email")

	status, list := do(t, http.MethodGet, ts.URL+"/api/clients", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(0), list["total"])
}

func TestDashboard_InactiveClientCannotReceiveAllocations(t *testing.T) {
	store := startStore(t)
	_, ts := newTestServer(t, store.URL)
	api := ts.URL + "/api"

	_, client := do(t, http.MethodPost, api+"/clients", `{"name":"Bruno","email":"bruno@example.com"}`)
	clientID := client["id"].(string)
	_, asset := do(t, http.MethodPost, api+"/assets", `{"name":"Gold","currentValue":500}`)
	assetID := asset["id"].(string)

	status, updated := do(t, http.MethodPatch, api+"/clients/"+clientID+"/status", `{"status":"inactive"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "inactive", updated["status"])

	status, options := do(t, http.MethodGet, api+"/allocations/options", "")
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, options["clients"])
	assert.Len(t, options["assets"], 1)

	status, body := do(t, http.MethodPost, api+"/allocations",
		`{"clientId":"`+clientID+`","assetId":"`+assetID+`","amount":"10"}`)
	require.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "client is inactive", body["fields"].(map[string]interface{})["clientId"])

	status, list := do(t, http.MethodGet, api+"/clients?status=inactive", "")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, list["rows"], 1)

	status, _ = do(t, http.MethodGet, api+"/clients?status=archived", "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestDashboard_RelaysStoreErrors(t *testing.T) {
	store := startStore(t)
	_, ts := newTestServer(t, store.URL)

	status, body := do(t, http.MethodGet, ts.URL+"/api/clients/missing", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "client missing not found", body["error"])

	status, body = do(t, http.MethodPut, ts.URL+"/api/assets/missing", `{"name":"Gold","currentValue":1}`)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "asset missing not found", body["error"])
}

func TestDashboard_BlankIDIsNotFound(t *testing.T) {
	store := startStore(t)
	_, ts := newTestServer(t, store.URL)

	status, _ := do(t, http.MethodGet, ts.URL+"/api/clients", "")
	require.Equal(t, http.StatusOK, status)

	status, body := do(t, http.MethodGet, ts.URL+"/api/clients/%20", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "client id is required: not found", body["error"])

	status, _ = do(t, http.MethodGet, ts.URL+"/api/assets/%20", "")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = do(t, http.MethodGet, ts.URL+"/health", "")
	assert.Equal(t, http.StatusOK, status)
}

func TestDashboard_StoreDownIsBadGateway(t *testing.T) {
	down := httptest.NewServer(http.NotFoundHandler())
	url := down.URL
	down.Close()

	_, ts := newTestServer(t, url)

	status, body := do(t, http.MethodGet, ts.URL+"/api/overview", "")
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, "entity store unavailable", body["error"])
}

func TestDashboard_UpstreamServerErrorIsBadGateway(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"message":"disk full"}`)
	}))
	defer broken.Close()

	_, ts := newTestServer(t, broken.URL)

	status, body := do(t, http.MethodGet, ts.URL+"/api/assets", "")
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, "disk full", body["error"])
}

func TestDashboard_AllocationChart(t *testing.T) {
	store := startStore(t)
	_, ts := newTestServer(t, store.URL)
	api := ts.URL + "/api"

	status, body := do(t, http.MethodGet, api+"/charts/allocations.svg", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "no allocation data to chart", body["error"])

	_, client := do(t, http.MethodPost, api+"/clients", `{"name":"Ana","email":"ana@example.com"}`)
	_, asset := do(t, http.MethodPost, api+"/assets", `{"name":"Gold","currentValue":500}`)
	status, _ = do(t, http.MethodPost, api+"/allocations",
		`{"clientId":"`+client["id"].(string)+`","assetId":"`+asset["id"].(string)+`","amount":"10"}`)
	require.Equal(t, http.StatusCreated, status)

	resp, err := http.Get(api + "/charts/allocations.svg?client=" + client["id"].(string))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/svg+xml", resp.Header.Get("Content-Type"))
	svg, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(svg), "<svg")
}

func TestEventsStream_DeliversMutationEvents(t *testing.T) {
	store := startStore(t)
	_, ts := newTestServer(t, store.URL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/events/stream?types=CLIENT_CREATED", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	frames := make(chan map[string]interface{}, 8)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			var frame map[string]interface{}
			if json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &frame) == nil {
				frames <- frame
			}
		}
		close(frames)
	}()

	next := func() map[string]interface{} {
		t.Helper()
		select {
		case frame, ok := <-frames:
			require.True(t, ok, "stream closed")
			return frame
		case <-time.After(3 * time.Second):
			t.Fatal("no event received")
			return nil
		}
	}

	assert.Equal(t, "connected", next()["type"])

	status, _ := do(t, http.MethodPost, ts.URL+"/api/clients", `{"name":"Ana","email":"ana@example.com"}`)
	require.Equal(t, http.StatusCreated, status)

	frame := next()
	assert.Equal(t, "CLIENT_CREATED", frame["type"])
	assert.Equal(t, "Ana", frame["data"].(map[string]interface{})["name"])
}

func TestSystem_HealthAndJobs(t *testing.T) {
	store := startStore(t)
	_, ts := newTestServer(t, store.URL)

	status, health := do(t, http.MethodGet, ts.URL+"/health", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, "folio", health["service"])
	assert.Equal(t, store.URL, health["entityStore"])

	status, jobs := do(t, http.MethodGet, ts.URL+"/api/jobs", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []interface{}{"query_cache_sweep"}, jobs["jobs"])

	status, swept := do(t, http.MethodPost, ts.URL+"/api/jobs/cache-sweep", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "query_cache_sweep", swept["job"])

	do(t, http.MethodGet, ts.URL+"/api/overview", "")
	status, invalidated := do(t, http.MethodPost, ts.URL+"/api/cache/invalidate", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(3), invalidated["removed"])
}

func TestFormValue(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"amount":12.5}`, "12.5"},
		{`{"amount":"12.5"}`, "12.5"},
		{`{"amount":"ten"}`, "ten"},
		{`{"amount":null}`, ""},
		{`{}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			var req allocationRequest
			require.NoError(t, json.Unmarshal([]byte(tt.body), &req))
			assert.Equal(t, tt.want, string(req.Amount))
		})
	}
}
