package entitystore

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"

	"github.com/aristath/folio/internal/domain"
)

const (
	feedBuffer       = 32
	feedWriteTimeout = 5 * time.Second
)

// Feed broadcasts committed mutations to websocket subscribers.
// A subscriber that falls behind loses changes rather than blocking writers.
type Feed struct {
	mu   sync.Mutex
	subs map[chan domain.Change]struct{}
	now  func() time.Time
	log  zerolog.Logger
}

// NewFeed creates an empty change feed
func NewFeed(log zerolog.Logger) *Feed {
	return &Feed{
		subs: make(map[chan domain.Change]struct{}),
		now:  func() time.Time { return time.Now().UTC() },
		log:  log.With().Str("component", "change_feed").Logger(),
	}
}

// Publish announces one change to every subscriber
func (f *Feed) Publish(resource domain.Resource, action domain.ChangeAction, id string) {
	change := domain.Change{Resource: resource, Action: action, ID: id, Timestamp: f.now()}

	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subs {
		select {
		case ch <- change:
		default:
			f.log.Warn().Str("resource", string(resource)).Str("id", id).Msg("Subscriber too slow, change dropped")
		}
	}
}

// Subscribers returns the number of connected subscribers
func (f *Feed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func (f *Feed) subscribe() (<-chan domain.Change, func()) {
	ch := make(chan domain.Change, feedBuffer)
	f.mu.Lock()
	f.subs[ch] = struct{}{}
	f.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, ch)
			f.mu.Unlock()
		})
	}
}

// ServeHTTP upgrades the request and streams changes until either side goes away
func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		f.log.Error().Err(err).Msg("Failed to accept change feed connection")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "")

	// Subscribers never send anything; CloseRead handles control frames and
	// cancels ctx when the peer disconnects.
	ctx := conn.CloseRead(r.Context())

	changes, unsubscribe := f.subscribe()
	defer unsubscribe()

	f.log.Info().Str("remote", r.RemoteAddr).Msg("Change feed subscriber connected")

	for {
		select {
		case <-ctx.Done():
			f.log.Info().Str("remote", r.RemoteAddr).Msg("Change feed subscriber disconnected")
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case change := <-changes:
			if err := f.write(ctx, conn, change); err != nil {
				f.log.Debug().Err(err).Msg("Failed to write change")
				return
			}
		}
	}
}

func (f *Feed) write(ctx context.Context, conn *websocket.Conn, change domain.Change) error {
	data, err := json.Marshal(change)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, feedWriteTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, data)
}
