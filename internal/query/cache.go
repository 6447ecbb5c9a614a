package query

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// DefaultFetchTimeout bounds a shared fetch that no caller can cancel on its own.
const DefaultFetchTimeout = 30 * time.Second

// FetchFunc loads the value for one key.
type FetchFunc func(ctx context.Context) (any, error)

// Options configure a Cache.
type Options struct {
	// TTL after which a settled entry is stale. Zero keeps entries fresh until invalidated.
	TTL          time.Duration
	FetchTimeout time.Duration
	// Store is an optional shared second tier for successful results.
	Store Store
	Now   func() time.Time
}

// Cache deduplicates and caches reads per Key.
//
// Concurrent reads of one key share a single in-flight fetch. Successful and
// failed results are both kept so every consumer of the key sees the same
// outcome until it goes stale, is invalidated or is refetched.
type Cache struct {
	id           string
	mu           sync.Mutex
	entries      map[string]*entry
	group        singleflight.Group
	ttl          time.Duration
	fetchTimeout time.Duration
	store        Store
	now          func() time.Time
	nextGen      uint64
	nextWatcher  int

	hits    int64
	misses  int64
	fetches int64
}

type entry struct {
	key       Key
	status    Status
	settled   Status // status to fall back to when a fetch is abandoned
	data      any
	err       error
	updatedAt time.Time
	stale     bool
	fetching  bool
	gen       uint64
	fetcher   FetchFunc
	watchers  map[int]*watcher
}

// New creates an empty Cache.
func New(opts Options) *Cache {
	timeout := opts.FetchTimeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Cache{
		id:           uuid.NewString(),
		entries:      map[string]*entry{},
		ttl:          opts.TTL,
		fetchTimeout: timeout,
		store:        opts.Store,
		now:          now,
	}
}

// Stats returns the activity counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:    atomic.LoadInt64(&c.hits),
		Misses:  atomic.LoadInt64(&c.misses),
		Fetches: atomic.LoadInt64(&c.fetches),
	}
}

func (c *Cache) entryLocked(key Key) *entry {
	k := key.String()
	e, ok := c.entries[k]
	if !ok {
		c.nextGen++
		e = &entry{key: key, gen: c.nextGen, watchers: map[int]*watcher{}}
		c.entries[k] = e
	}
	return e
}

func (c *Cache) freshLocked(e *entry) bool {
	if e.fetching || e.stale {
		return false
	}
	if e.status != StatusSuccess && e.status != StatusError {
		return false
	}
	return c.ttl == 0 || c.now().Sub(e.updatedAt) < c.ttl
}

func (e *entry) snapshot(now time.Time, ttl time.Duration) Snapshot {
	stale := e.stale
	if !stale && ttl > 0 && !e.updatedAt.IsZero() && now.Sub(e.updatedAt) >= ttl {
		stale = true
	}
	return Snapshot{
		Key:       e.key,
		Status:    e.status,
		Data:      e.data,
		Err:       e.err,
		UpdatedAt: e.updatedAt,
		Stale:     stale,
	}
}

func (c *Cache) notifyLocked(e *entry) {
	if len(e.watchers) == 0 {
		return
	}
	snap := e.snapshot(c.now(), c.ttl)
	for _, w := range e.watchers {
		w.send(snap)
	}
}

// Peek returns the current snapshot of key without fetching.
func (c *Cache) Peek(key Key) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key.String()]; ok {
		return e.snapshot(c.now(), c.ttl)
	}
	return Snapshot{Key: key, Status: StatusIdle}
}

// Fetch returns the cached value for key, or runs fn once for all concurrent
// callers of the same key. If ctx ends first Fetch returns ctx.Err(); the
// shared fetch continues for the remaining callers.
func Fetch[T any](ctx context.Context, c *Cache, key Key, fn func(context.Context) (T, error)) (T, error) {
	return fetch(ctx, c, key, fn, false)
}

// Refetch bypasses freshness and issues fn (joining a fetch already in flight).
func Refetch[T any](ctx context.Context, c *Cache, key Key, fn func(context.Context) (T, error)) (T, error) {
	return fetch(ctx, c, key, fn, true)
}

func fetch[T any](ctx context.Context, c *Cache, key Key, fn func(context.Context) (T, error), force bool) (T, error) {
	var zero T
	fetcher := func(ctx context.Context) (any, error) { return fn(ctx) }

	c.mu.Lock()
	e := c.entryLocked(key)
	e.fetcher = fetcher
	if !force && c.freshLocked(e) {
		data, err := e.data, e.err
		c.mu.Unlock()
		if err != nil {
			atomic.AddInt64(&c.hits, 1)
			return zero, err
		}
		if v, ok := data.(T); ok {
			atomic.AddInt64(&c.hits, 1)
			return v, nil
		}
	} else {
		c.mu.Unlock()
	}

	if !force && c.store != nil {
		if v, ok := loadFromStore[T](ctx, c, key); ok {
			atomic.AddInt64(&c.hits, 1)
			return v, nil
		}
	}

	atomic.AddInt64(&c.misses, 1)
	ch := c.start(ctx, key, fetcher)
	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		v, _ := res.Val.(T)
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func loadFromStore[T any](ctx context.Context, c *Cache, key Key) (T, bool) {
	var v T
	data, ok, err := c.store.Get(ctx, key.String())
	if err != nil {
		log.Printf("[warn] operation=cache_store_get key=%s error=%v", key, err)
		return v, false
	}
	if !ok {
		return v, false
	}
	if err := json.Unmarshal(data, &v); err != nil {
		log.Printf("[warn] operation=cache_store_decode key=%s error=%v", key, err)
		return v, false
	}
	c.mu.Lock()
	e := c.entryLocked(key)
	if !e.fetching {
		c.settleLocked(e, v, nil)
	}
	c.mu.Unlock()
	return v, true
}

// start joins or launches the shared fetch for key.
func (c *Cache) start(ctx context.Context, key Key, fn FetchFunc) <-chan singleflight.Result {
	k := key.String()
	return c.group.DoChan(k, func() (any, error) {
		c.mu.Lock()
		e := c.entryLocked(key)
		gen := e.gen
		e.fetching = true
		e.status = StatusLoading
		c.notifyLocked(e)
		c.mu.Unlock()

		atomic.AddInt64(&c.fetches, 1)
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
		defer cancel()

		v, err := fn(fctx)
		c.complete(fctx, key, gen, v, err)
		return v, err
	})
}

func (c *Cache) settleLocked(e *entry, v any, err error) {
	e.fetching = false
	e.stale = false
	e.updatedAt = c.now()
	if err != nil {
		e.status = StatusError
		e.err = err
	} else {
		e.status = StatusSuccess
		e.data = v
		e.err = nil
	}
	e.settled = e.status
	c.notifyLocked(e)
}

// complete stores a fetch result unless the entry was invalidated or removed
// while the fetch was in flight, in which case the result is dropped.
func (c *Cache) complete(ctx context.Context, key Key, gen uint64, v any, err error) {
	c.mu.Lock()
	e, ok := c.entries[key.String()]
	if !ok || e.gen != gen {
		c.mu.Unlock()
		return
	}
	c.settleLocked(e, v, err)
	c.mu.Unlock()

	if err == nil {
		c.writeThrough(ctx, key, gen, v)
	}
}

// Set stores v as a fresh successful result for key.
func (c *Cache) Set(ctx context.Context, key Key, v any) {
	c.mu.Lock()
	e := c.entryLocked(key)
	if e.fetching {
		// the in-flight result is older than v
		c.nextGen++
		e.gen = c.nextGen
		c.group.Forget(key.String())
	}
	c.settleLocked(e, v, nil)
	gen := e.gen
	c.mu.Unlock()

	c.writeThrough(ctx, key, gen, v)
}

// writeThrough copies a settled value of generation gen to the store. If the
// entry moved on while the write was in flight, the written copy is deleted
// again so an invalidation that raced the write is not undone.
func (c *Cache) writeThrough(ctx context.Context, key Key, gen uint64, v any) {
	if c.store == nil {
		return
	}
	k := key.String()
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("[warn] operation=cache_store_encode key=%s error=%v", k, err)
		return
	}
	if err := c.store.Set(ctx, k, data, c.ttl); err != nil {
		log.Printf("[warn] operation=cache_store_set key=%s error=%v", k, err)
		return
	}

	c.mu.Lock()
	e, ok := c.entries[k]
	current := ok && e.gen == gen
	c.mu.Unlock()
	if current {
		return
	}
	if err := c.store.Delete(ctx, k); err != nil {
		log.Printf("[warn] operation=cache_store_delete key=%s error=%v", k, err)
	}
}

// Invalidate marks key stale. A watched key with a known fetcher is refetched
// in the background.
func (c *Cache) Invalidate(ctx context.Context, key Key) {
	c.invalidate(ctx, key, false, nil, true)
}

// InvalidatePrefix marks every key starting with prefix stale, skipping keys
// that start with any of except.
func (c *Cache) InvalidatePrefix(ctx context.Context, prefix Key, except ...Key) {
	c.invalidate(ctx, prefix, true, except, true)
}

func (c *Cache) invalidate(ctx context.Context, key Key, prefix bool, except []Key, propagate bool) {
	var refetch []*entry

	c.mu.Lock()
	for _, e := range c.entries {
		if prefix {
			if !e.key.HasPrefix(key) || hasAnyPrefix(e.key, except) {
				continue
			}
		} else if !e.key.Equal(key) {
			continue
		}
		c.nextGen++
		e.gen = c.nextGen
		e.stale = true
		// a call may still be writing through after it settled
		c.group.Forget(e.key.String())
		if e.fetching {
			e.fetching = false
			e.status = e.settled
		}
		c.notifyLocked(e)
		if len(e.watchers) > 0 && e.fetcher != nil {
			refetch = append(refetch, e)
		}
	}
	fetchers := make([]FetchFunc, len(refetch))
	keys := make([]Key, len(refetch))
	for i, e := range refetch {
		fetchers[i] = e.fetcher
		keys[i] = e.key
	}
	c.mu.Unlock()

	// DoChan channels are buffered, nobody has to receive from them.
	for i := range keys {
		c.start(ctx, keys[i], fetchers[i])
	}

	if c.store == nil {
		return
	}
	// Remote invalidations delete too: a slow writer in this process may have
	// put the value back after the publisher deleted it.
	var err error
	switch {
	case prefix && len(except) == 0:
		err = c.store.DeletePrefix(ctx, key.String())
	case prefix:
		err = c.store.DeleteMatching(ctx, key.String(), func(k string) bool {
			parsed, perr := ParseKey(k)
			return perr == nil && parsed.HasPrefix(key) && !hasAnyPrefix(parsed, except)
		})
	default:
		err = c.store.Delete(ctx, key.String())
	}
	if err != nil {
		log.Printf("[warn] operation=cache_store_invalidate key=%s error=%v", key, err)
	}
	if n, ok := c.store.(Notifier); ok && propagate {
		msg := Invalidation{Origin: c.id, Key: key.String(), Prefix: prefix}
		for _, ex := range except {
			msg.Except = append(msg.Except, ex.String())
		}
		if err := n.PublishInvalidation(ctx, msg); err != nil {
			log.Printf("[warn] operation=cache_publish_invalidation key=%s error=%v", key, err)
		}
	}
}

func hasAnyPrefix(k Key, prefixes []Key) bool {
	for _, p := range prefixes {
		if k.HasPrefix(p) {
			return true
		}
	}
	return false
}

// Remove drops the cached value for key. Watchers stay attached and see an
// idle snapshot; a fetch in flight for key will not repopulate it.
func (c *Cache) Remove(ctx context.Context, key Key) {
	k := key.String()
	c.mu.Lock()
	if e, ok := c.entries[k]; ok {
		c.group.Forget(k)
		if len(e.watchers) == 0 {
			delete(c.entries, k)
		} else {
			c.nextGen++
			*e = entry{key: e.key, gen: c.nextGen, watchers: e.watchers, fetcher: e.fetcher}
			c.notifyLocked(e)
		}
	}
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.Delete(ctx, k); err != nil {
			log.Printf("[warn] operation=cache_store_delete key=%s error=%v", k, err)
		}
	}
}

// Clear drops every entry from the first tier.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		c.group.Forget(k)
		if len(e.watchers) == 0 {
			delete(c.entries, k)
			continue
		}
		c.nextGen++
		*e = entry{key: e.key, gen: c.nextGen, watchers: e.watchers, fetcher: e.fetcher}
		c.notifyLocked(e)
	}
}

// ListenRemote applies invalidations published by other processes sharing the
// store until ctx ends. It returns immediately if the store cannot publish.
func (c *Cache) ListenRemote(ctx context.Context) error {
	n, ok := c.store.(Notifier)
	if !ok {
		return nil
	}
	msgs, err := n.SubscribeInvalidations(ctx)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			if msg.Origin == c.id {
				continue
			}
			key, err := ParseKey(msg.Key)
			if err != nil {
				log.Printf("[warn] operation=cache_remote_invalidation error=%v", err)
				continue
			}
			var except []Key
			for _, s := range msg.Except {
				if ek, err := ParseKey(s); err == nil {
					except = append(except, ek)
				}
			}
			c.invalidate(ctx, key, msg.Prefix, except, false)
		}
	}
}
