package query

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gate is a fetch function that blocks until released.
type gate struct {
	calls   int64
	release chan struct{}
	value   string
}

func newGate(value string) *gate {
	return &gate{release: make(chan struct{}), value: value}
}

func (g *gate) fetch(ctx context.Context) (string, error) {
	atomic.AddInt64(&g.calls, 1)
	select {
	case <-g.release:
		return g.value, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (g *gate) count() int64 { return atomic.LoadInt64(&g.calls) }

func waitStatus(t *testing.T, c *Cache, key Key, status Status) {
	t.Helper()
	require.Eventually(t, func() bool {
		return c.Peek(key).Status == status
	}, time.Second, 5*time.Millisecond)
}

// next reads snapshots until cond holds.
func next(t *testing.T, ch <-chan Snapshot, cond func(Snapshot) bool) Snapshot {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case s, ok := <-ch:
			require.True(t, ok, "watch channel closed")
			if cond(s) {
				return s
			}
		case <-timeout:
			t.Fatal("timed out waiting for snapshot")
		}
	}
}

func TestFetch_CoalescesConcurrentCalls(t *testing.T) {
	c := New(Options{})
	key := NewKey("companies", "list")
	g := newGate("acme")

	const callers = 10
	var wg sync.WaitGroup
	results := make([]string, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = Fetch(context.Background(), c, key, g.fetch)
		}(i)
	}

	require.Eventually(t, func() bool {
		return c.Stats().Misses == callers
	}, time.Second, time.Millisecond)
	// let the last caller reach the shared flight
	time.Sleep(20 * time.Millisecond)
	close(g.release)
	wg.Wait()

	assert.Equal(t, int64(1), g.count())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "acme", results[i])
	}
	assert.Equal(t, int64(1), c.Stats().Fetches)
}

func TestFetch_ServesFreshValue(t *testing.T) {
	c := New(Options{})
	key := NewKey("companies", "list")
	calls := 0
	fn := func(ctx context.Context) ([]string, error) {
		calls++
		return []string{"acme"}, nil
	}

	first, err := Fetch(context.Background(), c, key, fn)
	require.NoError(t, err)
	second, err := Fetch(context.Background(), c, key, fn)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
	assert.Equal(t, int64(1), c.Stats().Hits)
	assert.Equal(t, StatusSuccess, c.Peek(key).Status)
}

func TestFetch_ErrorIsSharedUntilRefetch(t *testing.T) {
	c := New(Options{})
	key := NewKey("claims", "detail", int64(1))
	boom := errors.New("boom")
	calls := 0
	fn := func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", boom
		}
		return "claim", nil
	}

	_, err := Fetch(context.Background(), c, key, fn)
	assert.ErrorIs(t, err, boom)
	_, err = Fetch(context.Background(), c, key, fn)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)

	snap := c.Peek(key)
	assert.Equal(t, StatusError, snap.Status)
	assert.ErrorIs(t, snap.Err, boom)

	v, err := Refetch(context.Background(), c, key, fn)
	require.NoError(t, err)
	assert.Equal(t, "claim", v)
	assert.Equal(t, 2, calls)
	assert.NoError(t, c.Peek(key).Err)
}

func TestFetch_StaleAfterTTL(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	c := New(Options{TTL: time.Minute, Now: clock})
	key := NewKey("products", "list")
	calls := 0
	fn := func(ctx context.Context) (int, error) {
		calls++
		return calls, nil
	}

	v, _ := Fetch(context.Background(), c, key, fn)
	assert.Equal(t, 1, v)

	mu.Lock()
	now = now.Add(30 * time.Second)
	mu.Unlock()
	v, _ = Fetch(context.Background(), c, key, fn)
	assert.Equal(t, 1, v)

	mu.Lock()
	now = now.Add(time.Minute)
	mu.Unlock()
	assert.True(t, c.Peek(key).Stale)
	v, _ = Fetch(context.Background(), c, key, fn)
	assert.Equal(t, 2, v)
}

func TestFetch_CallerCancellationIsIsolated(t *testing.T) {
	c := New(Options{})
	key := NewKey("warranties", "list")
	g := newGate("w1")

	ctx, cancel := context.WithCancel(context.Background())
	cancelled := make(chan error, 1)
	go func() {
		_, err := Fetch(ctx, c, key, g.fetch)
		cancelled <- err
	}()
	waitStatus(t, c, key, StatusLoading)

	other := make(chan string, 1)
	go func() {
		v, err := Fetch(context.Background(), c, key, g.fetch)
		assert.NoError(t, err)
		other <- v
	}()
	require.Eventually(t, func() bool { return c.Stats().Misses == 2 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-cancelled, context.Canceled)

	close(g.release)
	assert.Equal(t, "w1", <-other)
	assert.Equal(t, int64(1), g.count())

	snap := c.Peek(key)
	assert.Equal(t, StatusSuccess, snap.Status)
	assert.Equal(t, "w1", snap.Data)
}

func TestFetch_CancelledKeyDoesNotTouchOtherKeys(t *testing.T) {
	c := New(Options{})
	keyA := NewKey("claims", "warranty", 1)
	keyB := NewKey("claims", "warranty", 2)
	ga := newGate("claim-a")

	ctx, cancel := context.WithCancel(context.Background())
	cancelled := make(chan error, 1)
	go func() {
		_, err := Fetch(ctx, c, keyA, ga.fetch)
		cancelled <- err
	}()
	waitStatus(t, c, keyA, StatusLoading)
	cancel()
	assert.ErrorIs(t, <-cancelled, context.Canceled)

	ch, stop := c.Watch(keyB)
	defer stop()
	v, err := Fetch(context.Background(), c, keyB, func(context.Context) (string, error) {
		return "claim-b", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "claim-b", v)
	next(t, ch, func(s Snapshot) bool { return s.Status == StatusSuccess })

	close(ga.release)
	waitStatus(t, c, keyA, StatusSuccess)

	select {
	case s := <-ch:
		assert.Failf(t, "unexpected snapshot", "key B saw %+v after key A settled", s)
	case <-time.After(20 * time.Millisecond):
	}
	snap := c.Peek(keyB)
	assert.Equal(t, StatusSuccess, snap.Status)
	assert.Equal(t, "claim-b", snap.Data)
	assert.Equal(t, "claim-a", c.Peek(keyA).Data)
}

func TestFetch_FetchTimeoutBoundsSharedRequest(t *testing.T) {
	c := New(Options{FetchTimeout: 20 * time.Millisecond})
	key := NewKey("users", "current")
	g := newGate("never")

	_, err := Fetch(context.Background(), c, key, g.fetch)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StatusError, c.Peek(key).Status)
}

func TestInvalidate_DuringFlightDropsResult(t *testing.T) {
	c := New(Options{})
	key := NewKey("warranties", "list")
	g := newGate("old")

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = Fetch(context.Background(), c, key, g.fetch)
	}()
	waitStatus(t, c, key, StatusLoading)

	c.Invalidate(context.Background(), key)
	close(g.release)
	<-done

	snap := c.Peek(key)
	assert.Equal(t, StatusIdle, snap.Status)
	assert.Nil(t, snap.Data)

	v, err := Fetch(context.Background(), c, key, g.fetch)
	require.NoError(t, err)
	assert.Equal(t, "old", v)
	assert.Equal(t, int64(2), g.count())
}

func TestInvalidatePrefix_SkipsExcept(t *testing.T) {
	c := New(Options{})
	ctx := context.Background()
	list := NewKey("claims", "list")
	byStatus := NewKey("claims", "status", "PENDING")
	detail := NewKey("claims", "detail", int64(3))
	other := NewKey("warranties", "list")
	for _, k := range []Key{list, byStatus, detail, other} {
		c.Set(ctx, k, "v")
	}

	c.InvalidatePrefix(ctx, NewKey("claims"), NewKey("claims", "detail"))

	assert.True(t, c.Peek(list).Stale)
	assert.True(t, c.Peek(byStatus).Stale)
	assert.False(t, c.Peek(detail).Stale)
	assert.False(t, c.Peek(other).Stale)
}

func TestSetAndRemove(t *testing.T) {
	c := New(Options{})
	ctx := context.Background()
	key := NewKey("companies", "detail", int64(1))

	c.Set(ctx, key, "acme")
	v, err := Fetch(ctx, c, key, func(context.Context) (string, error) {
		assert.Fail(t, "fetch must not run for a set key")
		return "", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "acme", v)

	c.Remove(ctx, key)
	assert.Equal(t, StatusIdle, c.Peek(key).Status)

	c.Set(ctx, key, "acme")
	c.Clear()
	assert.Equal(t, StatusIdle, c.Peek(key).Status)
}

func TestWatch_Transitions(t *testing.T) {
	c := New(Options{})
	key := NewKey("warranties", "detail", int64(9))
	ch, cancel := c.Watch(key)
	defer cancel()

	initial := <-ch
	assert.Equal(t, StatusIdle, initial.Status)

	g := newGate("v1")
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = Fetch(context.Background(), c, key, g.fetch)
	}()
	next(t, ch, func(s Snapshot) bool { return s.Status == StatusLoading })
	close(g.release)
	<-done
	s := next(t, ch, func(s Snapshot) bool { return s.Status == StatusSuccess })
	assert.Equal(t, "v1", s.Data)

	// an invalidated watched key is refetched in the background
	c.Invalidate(context.Background(), key)
	next(t, ch, func(s Snapshot) bool { return s.Status == StatusSuccess && !s.Stale })
	assert.Equal(t, int64(2), g.count())
}

func TestWatch_NothingDeliveredAfterCancel(t *testing.T) {
	c := New(Options{})
	key := NewKey("users", "current")
	ch, cancel := c.Watch(key)
	<-ch

	cancel()
	cancel()
	c.Set(context.Background(), key, "alice")

	_, ok := <-ch
	assert.False(t, ok)
}

func TestWatch_SlowReaderSeesLatest(t *testing.T) {
	c := New(Options{})
	ctx := context.Background()
	key := NewKey("companies", "list")
	ch, cancel := c.Watch(key)
	defer cancel()

	c.Set(ctx, key, 1)
	c.Set(ctx, key, 2)
	c.Set(ctx, key, 3)

	s := <-ch
	assert.Equal(t, 3, s.Data)
}
