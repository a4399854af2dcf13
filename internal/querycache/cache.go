// Package querycache provides the process-wide cache of entity store reads.
// Entries are keyed by resource and invalidated by resource after mutations.
package querycache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/events"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Key identifies one cached read: a whole resource list, or one item of it.
// Item keys never equal list keys, whatever their ID.
type Key struct {
	Resource domain.Resource
	Item     bool
	ID       string
}

// ListKey is the key of the full list of a resource
func ListKey(r domain.Resource) Key {
	return Key{Resource: r}
}

// ItemKey is the key of one entity of a resource
func ItemKey(r domain.Resource, id string) Key {
	return Key{Resource: r, Item: true, ID: id}
}

func (k Key) String() string {
	if !k.Item {
		return string(k.Resource)
	}
	return string(k.Resource) + "/" + k.ID
}

// EventEmitter receives cache invalidation notices
type EventEmitter interface {
	EmitTyped(module string, data events.EventData)
}

type entry struct {
	value   interface{}
	expires time.Time
}

// Cache holds loaded values until they expire or their resource is invalidated.
//
// Every resource carries a generation that Invalidate bumps. A load records
// the generation it started under and is only stored if that generation is
// still current, so a read racing a mutation never repopulates stale data.
type Cache struct {
	mu          sync.Mutex
	entries     map[Key]entry
	generations map[domain.Resource]uint64
	group       singleflight.Group
	events      EventEmitter
	now         func() time.Time
	log         zerolog.Logger
}

// New creates an empty cache. events may be nil.
func New(emitter EventEmitter, log zerolog.Logger) *Cache {
	return &Cache{
		entries:     make(map[Key]entry),
		generations: make(map[domain.Resource]uint64),
		events:      emitter,
		now:         time.Now,
		log:         log.With().Str("component", "query_cache").Logger(),
	}
}

// Fetch returns the cached value of key, loading it when missing or expired.
//
// Concurrent fetches of the same key share one load. The load runs detached
// from the caller's cancellation; a caller whose ctx ends stops waiting and
// gets ctx.Err(), never a result.
func Fetch[T any](ctx context.Context, c *Cache, key Key, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	var zero T

	if v, ok := c.lookup(key); ok {
		if t, ok := v.(T); ok {
			return t, nil
		}
		return zero, fmt.Errorf("cached value of %s is %T, not %T", key, v, zero)
	}

	gen := c.generation(key.Resource)
	flight := fmt.Sprintf("%s@%d", key, gen)
	loadCtx := context.WithoutCancel(ctx)

	ch := c.group.DoChan(flight, func() (interface{}, error) {
		v, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		c.store(key, gen, v, ttl)
		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		t, ok := res.Val.(T)
		if !ok {
			return zero, fmt.Errorf("shared load of %s returned %T, not %T", key, res.Val, zero)
		}
		return t, nil
	}
}

func (c *Cache) lookup(key Key) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expires) {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

func (c *Cache) generation(r domain.Resource) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[r]
}

func (c *Cache) store(key Key, gen uint64, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generations[key.Resource] != gen {
		c.log.Debug().Str("key", key.String()).Msg("Discarding load that raced an invalidation")
		return
	}
	c.entries[key] = entry{value: value, expires: c.now().Add(ttl)}
}

// Invalidate drops every entry of the given resources, list and items alike,
// and bumps their generations. It returns the number of entries dropped.
func (c *Cache) Invalidate(reason string, resources ...domain.Resource) int {
	if len(resources) == 0 {
		return 0
	}

	set := make(map[domain.Resource]struct{}, len(resources))
	for _, r := range resources {
		set[r] = struct{}{}
	}

	c.mu.Lock()
	dropped := 0
	for key := range c.entries {
		if _, ok := set[key.Resource]; ok {
			delete(c.entries, key)
			dropped++
		}
	}
	for r := range set {
		c.generations[r]++
	}
	c.mu.Unlock()

	names := make([]string, len(resources))
	for i, r := range resources {
		names[i] = string(r)
	}

	c.log.Debug().
		Strs("resources", names).
		Int("dropped", dropped).
		Str("reason", reason).
		Msg("Cache invalidated")

	if c.events != nil {
		c.events.EmitTyped("query_cache", &events.CacheInvalidatedData{Resources: names, Reason: reason})
	}

	return dropped
}

// Sweep removes expired entries and returns how many were removed
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, expired or not
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Has reports whether a fresh entry exists for key
func (c *Cache) Has(key Key) bool {
	_, ok := c.lookup(key)
	return ok
}
