package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
)

var ErrNotFound = errors.New("not found")

// Persister keeps table rows outside the process as JSON documents.
type Persister interface {
	Load(ctx context.Context, collection string) (map[int64][]byte, error)
	Save(ctx context.Context, collection string, id int64, doc []byte) error
	Delete(ctx context.Context, collection string, id int64) error
}

// table is an in-memory collection with sequential ids starting at 1,
// optionally written through to a Persister.
type table[T any] struct {
	mu         sync.RWMutex
	collection string
	rows       map[int64]T
	nextID     int64
	persist    Persister
}

func newTable[T any](collection string) *table[T] {
	return &table[T]{collection: collection, rows: map[int64]T{}}
}

// restore replaces the rows with the persisted documents.
func (t *table[T]) restore(ctx context.Context, p Persister) error {
	docs, err := p.Load(ctx, t.collection)
	if err != nil {
		return fmt.Errorf("load %s: %w", t.collection, err)
	}
	rows := make(map[int64]T, len(docs))
	var maxID int64
	for id, doc := range docs {
		var row T
		if err := json.Unmarshal(doc, &row); err != nil {
			return fmt.Errorf("decode %s %d: %w", t.collection, id, err)
		}
		rows[id] = row
		if id > maxID {
			maxID = id
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows, t.nextID, t.persist = rows, maxID, p
	return nil
}

func (t *table[T]) save(ctx context.Context, id int64, row T) error {
	if t.persist == nil {
		return nil
	}
	doc, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("encode %s %d: %w", t.collection, id, err)
	}
	return t.persist.Save(ctx, t.collection, id, doc)
}

// insert assigns the next id and stores the row built for it.
func (t *table[T]) insert(ctx context.Context, build func(id int64) T) (T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.nextID + 1
	row := build(id)
	if err := t.save(ctx, id, row); err != nil {
		var zero T
		return zero, err
	}
	t.nextID = id
	t.rows[id] = row
	return row, nil
}

func (t *table[T]) get(id int64) (T, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	row, ok := t.rows[id]
	if !ok {
		var zero T
		return zero, ErrNotFound
	}
	return row, nil
}

// list returns the rows accepted by keep in id order. A nil keep accepts all.
func (t *table[T]) list(keep func(T) bool) []T {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ids := make([]int64, 0, len(t.rows))
	for id := range t.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]T, 0, len(ids))
	for _, id := range ids {
		if row := t.rows[id]; keep == nil || keep(row) {
			out = append(out, row)
		}
	}
	return out
}

// update replaces the row at id with the result of change.
func (t *table[T]) update(ctx context.Context, id int64, change func(T) (T, error)) (T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var zero T
	row, ok := t.rows[id]
	if !ok {
		return zero, ErrNotFound
	}
	row, err := change(row)
	if err != nil {
		return zero, err
	}
	if err := t.save(ctx, id, row); err != nil {
		return zero, err
	}
	t.rows[id] = row
	return row, nil
}

func (t *table[T]) delete(ctx context.Context, id int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.rows[id]; !ok {
		return ErrNotFound
	}
	if t.persist != nil {
		if err := t.persist.Delete(ctx, t.collection, id); err != nil {
			return err
		}
	}
	delete(t.rows, id)
	return nil
}
