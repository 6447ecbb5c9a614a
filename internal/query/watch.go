package query

import "sync"

type watcher struct {
	mu     sync.Mutex
	ch     chan Snapshot
	closed bool
}

// send delivers s, replacing an undelivered older snapshot so a slow reader
// always gets the latest state.
func (w *watcher) send(s Snapshot) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	select {
	case w.ch <- s:
		return
	default:
	}
	select {
	case <-w.ch:
	default:
	}
	select {
	case w.ch <- s:
	default:
	}
}

func (w *watcher) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.closed {
		w.closed = true
		close(w.ch)
	}
}

// Watch observes state transitions of key. The current snapshot is delivered
// first. After cancel returns nothing more is delivered and the channel is closed.
func (c *Cache) Watch(key Key) (<-chan Snapshot, func()) {
	w := &watcher{ch: make(chan Snapshot, 1)}

	c.mu.Lock()
	e := c.entryLocked(key)
	c.nextWatcher++
	id := c.nextWatcher
	e.watchers[id] = w
	w.send(e.snapshot(c.now(), c.ttl))
	c.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			c.mu.Lock()
			if cur, ok := c.entries[key.String()]; ok {
				delete(cur.watchers, id)
			}
			c.mu.Unlock()
			w.close()
		})
	}
	return w.ch, cancel
}
