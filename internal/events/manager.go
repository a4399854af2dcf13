package events

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
)

// Manager handles event emission and logging
type Manager struct {
	bus *Bus
	log zerolog.Logger
}

// NewManager creates a new event manager
func NewManager(bus *Bus, log zerolog.Logger) *Manager {
	return &Manager{
		bus: bus,
		log: log.With().Str("service", "events").Logger(),
	}
}

// Bus returns the underlying bus for subscribers
func (m *Manager) Bus() *Bus {
	return m.bus
}

// Emit emits an event with untyped data
func (m *Manager) Emit(eventType EventType, module string, data map[string]interface{}) {
	m.publish(Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
		Module:    module,
	})
}

// EmitTyped emits an event with typed data. The event type comes from the data.
func (m *Manager) EmitTyped(module string, data EventData) {
	m.publish(Event{
		Type:      data.EventType(),
		Timestamp: time.Now(),
		Data:      convertEventDataToMap(data),
		Module:    module,
	})
}

// EmitError emits an error event
func (m *Manager) EmitError(module string, err error, context map[string]interface{}) {
	m.EmitTyped(module, &ErrorEventData{Error: err.Error(), Context: context})
}

func (m *Manager) publish(event Event) {
	m.bus.Publish(event)

	eventJSON, _ := json.Marshal(event)
	m.log.Debug().
		Str("event_type", string(event.Type)).
		Str("module", event.Module).
		RawJSON("event", eventJSON).
		Msg("Event emitted")
}
