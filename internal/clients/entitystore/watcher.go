package entitystore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
)

const (
	dialTimeout = 15 * time.Second

	baseReconnectDelay = 1 * time.Second
	maxReconnectDelay  = 1 * time.Minute
)

// ChangeHandler receives one change from the feed
type ChangeHandler func(domain.Change)

// Watcher follows the entity store change feed and reconnects when the
// connection drops. Changes made while disconnected are not replayed, so
// OnConnect is called after every successful (re)connection.
type Watcher struct {
	url       string
	onChange  ChangeHandler
	OnConnect func()
	log       zerolog.Logger

	baseDelay time.Duration
	maxDelay  time.Duration
}

// NewWatcher creates a watcher for the /changes feed of the client's store
func (c *Client) NewWatcher(onChange ChangeHandler) *Watcher {
	return &Watcher{
		url:       c.baseURL + "/changes",
		onChange:  onChange,
		log:       c.log.With().Str("component", "change_watcher").Logger(),
		baseDelay: baseReconnectDelay,
		maxDelay:  maxReconnectDelay,
	}
}

// Run follows the feed until ctx is cancelled
func (w *Watcher) Run(ctx context.Context) error {
	attempt := 0
	for {
		connected, err := w.session(ctx)
		if ctx.Err() != nil {
			w.log.Info().Msg("Change watcher stopped")
			return ctx.Err()
		}
		if connected {
			attempt = 0
		}

		delay := w.backoff(attempt)
		attempt++
		w.log.Warn().Err(err).Dur("retry_in", delay).Int("attempt", attempt).Msg("Change feed disconnected")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// session dials once and reads until the connection ends
func (w *Watcher) session(ctx context.Context) (connected bool, err error) {
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	conn, _, err := websocket.Dial(dialCtx, w.url, nil)
	cancel()
	if err != nil {
		return false, fmt.Errorf("failed to dial change feed: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	w.log.Info().Str("url", w.url).Msg("Connected to change feed")
	if w.OnConnect != nil {
		w.OnConnect()
	}

	for {
		msgType, message, err := conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				return true, errors.New("change feed closed by server")
			}
			return true, fmt.Errorf("failed to read change feed: %w", err)
		}

		if msgType != websocket.MessageText {
			continue
		}

		var change domain.Change
		if err := json.Unmarshal(message, &change); err != nil {
			w.log.Error().Err(err).Str("message", string(message)).Msg("Failed to parse change")
			continue
		}
		w.onChange(change)
	}
}

// backoff doubles the delay per attempt up to the maximum
func (w *Watcher) backoff(attempt int) time.Duration {
	delay := w.baseDelay
	for i := 0; i < attempt && delay < w.maxDelay; i++ {
		delay *= 2
	}
	if delay > w.maxDelay {
		delay = w.maxDelay
	}
	return delay
}
