package query

import (
	"context"

	"github.com/warranty-tracker/warranty-client/internal/api"
)

const (
	opList   = "list"
	opDetail = "detail"
)

// Resource is an api.Resource whose reads go through a Cache.
//
// Keys are [name, "list"], [name, "detail", id] and [name, op, args...] for
// extension reads. A successful mutation invalidates every key of name except
// the detail keys; an update also stores the returned record under its detail
// key and a delete removes it. Failed mutations leave the cache alone.
type Resource[T api.Entity[ID], ID comparable] struct {
	api   *api.Resource[T, ID]
	cache *Cache
	name  string
}

// NewResource wraps r. name is the key namespace, e.g. "warranties".
func NewResource[T api.Entity[ID], ID comparable](c *Cache, r *api.Resource[T, ID], name string) *Resource[T, ID] {
	return &Resource[T, ID]{api: r, cache: c, name: name}
}

func (r *Resource[T, ID]) API() *api.Resource[T, ID] { return r.api }
func (r *Resource[T, ID]) Cache() *Cache             { return r.cache }

// Namespace is the prefix shared by every key of this resource.
func (r *Resource[T, ID]) Namespace() Key { return NewKey(r.name) }

func (r *Resource[T, ID]) ListKey() Key { return NewKey(r.name, opList) }

func (r *Resource[T, ID]) DetailKey(id ID) Key { return NewKey(r.name, opDetail, id) }

// Key builds an extension key such as ["warranties","status","ACTIVE"].
func (r *Resource[T, ID]) Key(op string, args ...any) Key {
	return NewKey(r.name, append([]any{op}, args...)...)
}

func checkID[ID comparable](id ID) error {
	var zero ID
	if id == zero {
		return &api.ValidationError{Field: "id", Reason: "is required"}
	}
	return nil
}

func (r *Resource[T, ID]) List(ctx context.Context, authRequired bool) ([]T, error) {
	return Fetch(ctx, r.cache, r.ListKey(), func(ctx context.Context) ([]T, error) {
		return r.api.List(ctx, authRequired)
	})
}

func (r *Resource[T, ID]) Get(ctx context.Context, id ID, authRequired bool) (T, error) {
	if err := checkID(id); err != nil {
		var zero T
		return zero, err
	}
	return Fetch(ctx, r.cache, r.DetailKey(id), func(ctx context.Context) (T, error) {
		return r.api.Get(ctx, id, authRequired)
	})
}

// Find is a cached extension read returning a list.
func (r *Resource[T, ID]) Find(ctx context.Context, key Key, segments []string, params api.Params, authRequired bool) ([]T, error) {
	return Fetch(ctx, r.cache, key, func(ctx context.Context) ([]T, error) {
		return r.api.Find(ctx, segments, params, authRequired)
	})
}

// FindFresh is Find that ignores a cached value.
func (r *Resource[T, ID]) FindFresh(ctx context.Context, key Key, segments []string, params api.Params, authRequired bool) ([]T, error) {
	return Refetch(ctx, r.cache, key, func(ctx context.Context) ([]T, error) {
		return r.api.Find(ctx, segments, params, authRequired)
	})
}

// FindOne is a cached extension read returning one record.
func (r *Resource[T, ID]) FindOne(ctx context.Context, key Key, segments []string, params api.Params, authRequired bool) (T, error) {
	return Fetch(ctx, r.cache, key, func(ctx context.Context) (T, error) {
		return r.api.FindOne(ctx, segments, params, authRequired)
	})
}

func (r *Resource[T, ID]) Create(ctx context.Context, payload any, authRequired bool) (T, error) {
	return r.Mutate(ctx, func(ctx context.Context) (T, error) {
		return r.api.Create(ctx, payload, authRequired)
	})
}

func (r *Resource[T, ID]) Update(ctx context.Context, entity T, authRequired bool) (T, error) {
	id := entity.EntityID()
	return r.Mutate(ctx, func(ctx context.Context) (T, error) {
		return r.api.Update(ctx, entity, authRequired)
	}, r.DetailKey(id))
}

func (r *Resource[T, ID]) UpdateFields(ctx context.Context, id ID, payload any, authRequired bool) (T, error) {
	return r.Mutate(ctx, func(ctx context.Context) (T, error) {
		return r.api.UpdateFields(ctx, id, payload, authRequired)
	}, r.DetailKey(id))
}

func (r *Resource[T, ID]) Delete(ctx context.Context, id ID, authRequired bool) error {
	if err := r.api.Delete(ctx, id, authRequired); err != nil {
		return err
	}
	r.InvalidateCollections(ctx)
	r.cache.Remove(ctx, r.DetailKey(id))
	return nil
}

// Mutate runs fn and, on success, invalidates the collection keys and stores
// the result under each of setKeys.
func (r *Resource[T, ID]) Mutate(ctx context.Context, fn func(context.Context) (T, error), setKeys ...Key) (T, error) {
	v, err := fn(ctx)
	if err != nil {
		return v, err
	}
	r.InvalidateCollections(ctx)
	for _, k := range setKeys {
		r.cache.Set(ctx, k, v)
	}
	return v, nil
}

// InvalidateCollections marks every key of the resource stale except detail keys.
func (r *Resource[T, ID]) InvalidateCollections(ctx context.Context) {
	r.cache.InvalidatePrefix(ctx, r.Namespace(), NewKey(r.name, opDetail))
}
