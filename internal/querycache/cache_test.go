package querycache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/events"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingEmitter struct {
	mu   sync.Mutex
	data []events.EventData
}

func (r *recordingEmitter) EmitTyped(_ string, data events.EventData) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data = append(r.data, data)
}

func counter(value string, calls *int32) func(context.Context) (string, error) {
	return func(context.Context) (string, error) {
		atomic.AddInt32(calls, 1)
		return value, nil
	}
}

func TestFetch_CachesUntilExpiry(t *testing.T) {
	c := New(nil, zerolog.Nop())
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	var calls int32
	key := ListKey(domain.ResourceClients)

	v, err := Fetch(context.Background(), c, key, time.Minute, counter("a", &calls))
	require.NoError(t, err)
	assert.Equal(t, "a", v)

	v, err = Fetch(context.Background(), c, key, time.Minute, counter("b", &calls))
	require.NoError(t, err)
	assert.Equal(t, "a", v)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	now = now.Add(time.Minute)
	v, err = Fetch(context.Background(), c, key, time.Minute, counter("b", &calls))
	require.NoError(t, err)
	assert.Equal(t, "b", v)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestFetch_ErrorsAreNotCached(t *testing.T) {
	c := New(nil, zerolog.Nop())
	key := ListKey(domain.ResourceAssets)

	_, err := Fetch(context.Background(), c, key, time.Minute, func(context.Context) (int, error) {
		return 0, errors.New("unavailable")
	})
	require.Error(t, err)
	assert.False(t, c.Has(key))

	v, err := Fetch(context.Background(), c, key, time.Minute, func(context.Context) (int, error) {
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestFetch_CollapsesConcurrentLoads(t *testing.T) {
	c := New(nil, zerolog.Nop())
	key := ListKey(domain.ResourceAllocations)

	release := make(chan struct{})
	var calls int32
	load := func(context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "shared", nil
	}

	const callers = 10
	var wg sync.WaitGroup
	results := make([]string, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = Fetch(context.Background(), c, key, time.Minute, load)
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, r := range results {
		assert.Equal(t, "shared", r)
	}
}

func TestFetch_LoadRacingInvalidationIsNotStored(t *testing.T) {
	c := New(nil, zerolog.Nop())
	key := ListKey(domain.ResourceAllocations)

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan string)
	go func() {
		v, _ := Fetch(context.Background(), c, key, time.Minute, func(context.Context) (string, error) {
			close(started)
			<-release
			return "stale", nil
		})
		done <- v
	}()

	<-started
	c.Invalidate("allocation created", domain.ResourceAllocations)
	close(release)

	assert.Equal(t, "stale", <-done, "the caller still gets its own result")
	assert.False(t, c.Has(key), "but the cache must not keep it")

	var calls int32
	v, err := Fetch(context.Background(), c, key, time.Minute, counter("fresh", &calls))
	require.NoError(t, err)
	assert.Equal(t, "fresh", v)
}

func TestFetch_CancelledCallerGetsContextError(t *testing.T) {
	c := New(nil, zerolog.Nop())
	key := ListKey(domain.ResourceClients)

	release := make(chan struct{})
	loaded := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error)
	go func() {
		_, err := Fetch(ctx, c, key, time.Minute, func(loadCtx context.Context) (string, error) {
			<-release
			assert.NoError(t, loadCtx.Err())
			defer close(loaded)
			return "late", nil
		})
		errCh <- err
	}()

	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)

	close(release)
	<-loaded
	assert.Eventually(t, func() bool { return c.Has(key) }, time.Second, 10*time.Millisecond)
}

func TestInvalidate_DropsListAndItemKeys(t *testing.T) {
	emitter := &recordingEmitter{}
	c := New(emitter, zerolog.Nop())
	ctx := context.Background()

	load := func(v string) func(context.Context) (string, error) {
		return func(context.Context) (string, error) { return v, nil }
	}

	_, _ = Fetch(ctx, c, ListKey(domain.ResourceClients), time.Minute, load("list"))
	_, _ = Fetch(ctx, c, ItemKey(domain.ResourceClients, "c1"), time.Minute, load("c1"))
	_, _ = Fetch(ctx, c, ListKey(domain.ResourceAssets), time.Minute, load("assets"))
	_, _ = Fetch(ctx, c, ListKey(domain.ResourceAllocations), time.Minute, load("allocs"))
	require.Equal(t, 4, c.Len())

	dropped := c.Invalidate("client updated", domain.ResourceClients, domain.ResourceAllocations)

	assert.Equal(t, 3, dropped)
	assert.False(t, c.Has(ListKey(domain.ResourceClients)))
	assert.False(t, c.Has(ItemKey(domain.ResourceClients, "c1")))
	assert.False(t, c.Has(ListKey(domain.ResourceAllocations)))
	assert.True(t, c.Has(ListKey(domain.ResourceAssets)))

	require.Len(t, emitter.data, 1)
	data := emitter.data[0].(*events.CacheInvalidatedData)
	assert.Equal(t, []string{"clients", "allocations"}, data.Resources)
	assert.Equal(t, "client updated", data.Reason)
}

func TestInvalidate_NothingToDo(t *testing.T) {
	emitter := &recordingEmitter{}
	c := New(emitter, zerolog.Nop())

	assert.Zero(t, c.Invalidate("noop"))
	assert.Empty(t, emitter.data)
}

func TestSweep(t *testing.T) {
	c := New(nil, zerolog.Nop())
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	_, _ = Fetch(ctx, c, ListKey(domain.ResourceClients), time.Second, func(context.Context) (int, error) { return 1, nil })
	_, _ = Fetch(ctx, c, ListKey(domain.ResourceAssets), time.Hour, func(context.Context) (int, error) { return 2, nil })

	now = now.Add(time.Minute)
	assert.Equal(t, 1, c.Sweep())
	assert.Equal(t, 1, c.Len())

	job := NewSweepJob(c, zerolog.Nop())
	assert.Equal(t, "query_cache_sweep", job.Name())
	now = now.Add(2 * time.Hour)
	require.NoError(t, job.Run())
	assert.Zero(t, c.Len())
}

func TestKeyString(t *testing.T) {
	assert.Equal(t, "clients", ListKey(domain.ResourceClients).String())
	assert.Equal(t, "clients/c1", ItemKey(domain.ResourceClients, "c1").String())
}

func TestItemKey_NeverMatchesListKey(t *testing.T) {
	assert.NotEqual(t, ListKey(domain.ResourceClients), ItemKey(domain.ResourceClients, ""))
	assert.Equal(t, "clients/", ItemKey(domain.ResourceClients, "").String())
}

func TestFetch_TypeMismatchIsAnError(t *testing.T) {
	c := New(nil, zerolog.Nop())
	ctx := context.Background()
	key := ListKey(domain.ResourceClients)

	_, err := Fetch(ctx, c, key, time.Minute, func(context.Context) ([]string, error) {
		return []string{"a"}, nil
	})
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		_, err = Fetch(ctx, c, key, time.Minute, func(context.Context) (int, error) { return 1, nil })
	})
	assert.Error(t, err)
}

func TestTTLFor(t *testing.T) {
	assert.Equal(t, TTLClients, TTLFor(domain.ResourceClients))
	assert.Equal(t, TTLAssets, TTLFor(domain.ResourceAssets))
	assert.Equal(t, TTLAllocations, TTLFor(domain.ResourceAllocations))
}
