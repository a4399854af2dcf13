package entitystore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"nhooyr.io/websocket"
)

func TestWatcher_ReceivesChanges(t *testing.T) {
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

		payload, _ := json.Marshal(domain.Change{Resource: domain.ResourceAllocations, Action: domain.ChangeDeleted, ID: "x1"})
		_ = conn.Write(r.Context(), websocket.MessageText, []byte("not json"))
		_ = conn.Write(r.Context(), websocket.MessageText, payload)

		<-conn.CloseRead(r.Context()).Done()
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second, zerolog.Nop())

	received := make(chan domain.Change, 1)
	var connects int32
	watcher := client.NewWatcher(func(c domain.Change) { received <- c })
	watcher.OnConnect = func() { atomic.AddInt32(&connects, 1) }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- watcher.Run(ctx) }()

	select {
	case change := <-received:
		assert.Equal(t, domain.ResourceAllocations, change.Resource)
		assert.Equal(t, domain.ChangeDeleted, change.Action)
		assert.Equal(t, "x1", change.ID)
	case <-time.After(5 * time.Second):
		t.Fatal("no change received")
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&connects))

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcher_Backoff(t *testing.T) {
	w := &Watcher{baseDelay: time.Second, maxDelay: 10 * time.Second}

	assert.Equal(t, time.Second, w.backoff(0))
	assert.Equal(t, 2*time.Second, w.backoff(1))
	assert.Equal(t, 8*time.Second, w.backoff(3))
	assert.Equal(t, 10*time.Second, w.backoff(4))
	assert.Equal(t, 10*time.Second, w.backoff(50))
}

func TestWatcher_StopsWhileRetrying(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", time.Second, zerolog.Nop())
	watcher := client.NewWatcher(func(domain.Change) {})
	watcher.baseDelay = 10 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := watcher.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
