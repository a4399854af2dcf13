package events

import (
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_DeliversToMatchingSubscribers(t *testing.T) {
	bus := NewBus()

	var all, allocOnly []EventType
	bus.Subscribe(func(e Event) { all = append(all, e.Type) })
	bus.Subscribe(func(e Event) { allocOnly = append(allocOnly, e.Type) }, AllocationCreated, AllocationDeleted)

	bus.Emit(ClientCreated, "test", nil)
	bus.Emit(AllocationCreated, "test", nil)
	bus.Emit(AllocationDeleted, "test", nil)

	assert.Equal(t, []EventType{ClientCreated, AllocationCreated, AllocationDeleted}, all)
	assert.Equal(t, []EventType{AllocationCreated, AllocationDeleted}, allocOnly)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()

	calls := 0
	unsubscribe := bus.Subscribe(func(Event) { calls++ })
	require.Equal(t, 1, bus.Subscribers())

	bus.Emit(CacheInvalidated, "test", nil)
	unsubscribe()
	unsubscribe()
	bus.Emit(CacheInvalidated, "test", nil)

	assert.Equal(t, 1, calls)
	assert.Zero(t, bus.Subscribers())
}

func TestBus_ConcurrentEmit(t *testing.T) {
	bus := NewBus()

	var mu sync.Mutex
	count := 0
	bus.Subscribe(func(Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Emit(EntityStoreChanged, "test", nil)
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, count)
}

func TestManager_EmitTyped(t *testing.T) {
	bus := NewBus()
	m := NewManager(bus, zerolog.Nop())

	var got Event
	bus.Subscribe(func(e Event) { got = e })

	m.EmitTyped("cache", &CacheInvalidatedData{Resources: []string{"allocations", "clients"}, Reason: "allocation created"})

	assert.Equal(t, CacheInvalidated, got.Type)
	assert.Equal(t, "cache", got.Module)
	assert.False(t, got.Timestamp.IsZero())
	assert.Equal(t, []interface{}{"allocations", "clients"}, got.Data["resources"])
	assert.Equal(t, "allocation created", got.Data["reason"])
}

func TestManager_EmitEntity(t *testing.T) {
	bus := NewBus()
	m := NewManager(bus, zerolog.Nop())

	var got Event
	bus.Subscribe(func(e Event) { got = e }, AllocationDeleted)

	m.EmitTyped("mutation", &EntityData{Type: AllocationDeleted, Resource: "allocations", ID: "x1"})

	assert.Equal(t, AllocationDeleted, got.Type)
	assert.Equal(t, "x1", got.Data["id"])
	assert.NotContains(t, got.Data, "Type")
}

func TestManager_EmitError(t *testing.T) {
	bus := NewBus()
	m := NewManager(bus, zerolog.Nop())

	var got Event
	bus.Subscribe(func(e Event) { got = e })

	m.EmitError("watcher", errors.New("connection refused"), map[string]interface{}{"attempt": 3})

	assert.Equal(t, ErrorOccurred, got.Type)
	assert.Equal(t, "connection refused", got.Data["error"])
}
