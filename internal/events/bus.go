package events

import (
	"sync"
	"time"
)

// Handler receives published events. Handlers run synchronously on the
// publishing goroutine and must not block.
type Handler func(Event)

// Bus fans events out to subscribers
type Bus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[int]subscription
}

type subscription struct {
	types   map[EventType]struct{}
	handler Handler
}

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{handlers: make(map[int]subscription)}
}

// Subscribe registers handler for the given event types, or for every event
// when no type is given. The returned function removes the subscription.
func (b *Bus) Subscribe(handler Handler, types ...EventType) (unsubscribe func()) {
	sub := subscription{handler: handler}
	if len(types) > 0 {
		sub.types = make(map[EventType]struct{}, len(types))
		for _, t := range types {
			sub.types[t] = struct{}{}
		}
	}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = sub
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.handlers, id)
			b.mu.Unlock()
		})
	}
}

// Emit publishes an event to every matching subscriber
func (b *Bus) Emit(eventType EventType, module string, data map[string]interface{}) {
	b.Publish(Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
		Module:    module,
	})
}

// Publish delivers a prepared event
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	targets := make([]Handler, 0, len(b.handlers))
	for _, sub := range b.handlers {
		if sub.types != nil {
			if _, ok := sub.types[event.Type]; !ok {
				continue
			}
		}
		targets = append(targets, sub.handler)
	}
	b.mu.RUnlock()

	for _, h := range targets {
		h(event)
	}
}

// Subscribers returns the number of live subscriptions
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers)
}
