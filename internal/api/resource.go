package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// Entity is a record with a server-assigned identifier.
type Entity[ID comparable] interface {
	EntityID() ID
}

// Resource is the typed client for one REST collection, e.g. /warranty.
type Resource[T Entity[ID], ID comparable] struct {
	t        *Transport
	segments []string
}

// NewResource binds a collection path such as "warranty" or "user/admin".
func NewResource[T Entity[ID], ID comparable](t *Transport, path string) *Resource[T, ID] {
	var segments []string
	for _, s := range strings.Split(strings.Trim(path, "/"), "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return &Resource[T, ID]{t: t, segments: segments}
}

// Path returns the collection path without leading slash.
func (r *Resource[T, ID]) Path() string {
	return strings.Join(r.segments, "/")
}

// Transport returns the underlying transport.
func (r *Resource[T, ID]) Transport() *Transport {
	return r.t
}

func (r *Resource[T, ID]) join(extra ...string) []string {
	out := make([]string, 0, len(r.segments)+len(extra))
	out = append(out, r.segments...)
	return append(out, extra...)
}

func (r *Resource[T, ID]) checkPath() error {
	if len(r.segments) == 0 {
		return &ValidationError{Field: "resource", Reason: "path is required"}
	}
	return nil
}

func idSegment[ID comparable](id ID) (string, error) {
	var zero ID
	if id == zero {
		return "", &ValidationError{Field: "id", Reason: "is required"}
	}
	return fmt.Sprint(id), nil
}

// List fetches the whole collection. An empty collection is a success.
func (r *Resource[T, ID]) List(ctx context.Context, authRequired bool) ([]T, error) {
	return r.Find(ctx, nil, nil, authRequired)
}

// Get fetches one record; a 404 matches ErrNotFound.
func (r *Resource[T, ID]) Get(ctx context.Context, id ID, authRequired bool) (T, error) {
	var zero T
	seg, err := idSegment(id)
	if err != nil {
		return zero, err
	}
	return r.FindOne(ctx, []string{seg}, nil, authRequired)
}

// Create posts payload and returns the created record with its new id.
func (r *Resource[T, ID]) Create(ctx context.Context, payload any, authRequired bool) (T, error) {
	var zero T
	if err := r.checkPath(); err != nil {
		return zero, err
	}
	if err := r.t.ValidatePayload(payload); err != nil {
		return zero, err
	}
	return Call[T](ctx, r.t, Request{
		Method:       http.MethodPost,
		Segments:     r.segments,
		Body:         payload,
		AuthRequired: authRequired,
	})
}

// Update puts the full record at its own id.
func (r *Resource[T, ID]) Update(ctx context.Context, entity T, authRequired bool) (T, error) {
	return r.UpdateFields(ctx, entity.EntityID(), entity, authRequired)
}

// UpdateFields puts a partial payload at id.
func (r *Resource[T, ID]) UpdateFields(ctx context.Context, id ID, payload any, authRequired bool) (T, error) {
	var zero T
	if err := r.checkPath(); err != nil {
		return zero, err
	}
	seg, err := idSegment(id)
	if err != nil {
		return zero, err
	}
	if payload == nil {
		return zero, &ValidationError{Field: "payload", Reason: "is required"}
	}
	return Call[T](ctx, r.t, Request{
		Method:       http.MethodPut,
		Segments:     r.join(seg),
		Body:         payload,
		AuthRequired: authRequired,
	})
}

// Delete removes the record at id. Errors, including 404 for an already
// deleted id, are returned to the caller.
func (r *Resource[T, ID]) Delete(ctx context.Context, id ID, authRequired bool) error {
	if err := r.checkPath(); err != nil {
		return err
	}
	seg, err := idSegment(id)
	if err != nil {
		return err
	}
	return r.t.Do(ctx, Request{
		Method:       http.MethodDelete,
		Segments:     r.join(seg),
		AuthRequired: authRequired,
	}, nil)
}

// Find issues GET /<resource>/<segments...>?<params> for a list result.
func (r *Resource[T, ID]) Find(ctx context.Context, segments []string, params Params, authRequired bool) ([]T, error) {
	if err := r.checkPath(); err != nil {
		return nil, err
	}
	items, err := Call[[]T](ctx, r.t, Request{
		Method:       http.MethodGet,
		Segments:     r.join(segments...),
		Params:       params,
		AuthRequired: authRequired,
	})
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// FindOne issues GET /<resource>/<segments...>?<params> for a single record.
func (r *Resource[T, ID]) FindOne(ctx context.Context, segments []string, params Params, authRequired bool) (T, error) {
	var zero T
	if err := r.checkPath(); err != nil {
		return zero, err
	}
	return Call[T](ctx, r.t, Request{
		Method:       http.MethodGet,
		Segments:     r.join(segments...),
		Params:       params,
		AuthRequired: authRequired,
	})
}
