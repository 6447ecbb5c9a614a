package service

import (
	"context"
	"net/http"
	"strconv"

	"github.com/warranty-tracker/warranty-client/internal/api"
	"github.com/warranty-tracker/warranty-client/internal/query"
)

// catalogAdmin issues the /<resource>/admin mutations of a catalog resource.
// The plain collection routes of catalog resources are read-only.
type catalogAdmin[T api.Entity[int64]] struct {
	res *query.Resource[T, int64]
	t   *api.Transport
}

func (a catalogAdmin[T]) segments(id int64) []string {
	segs := []string{a.res.API().Path(), "admin"}
	if id != 0 {
		segs = append(segs, strconv.FormatInt(id, 10))
	}
	return segs
}

func (a catalogAdmin[T]) send(ctx context.Context, method string, id int64, payload any, authRequired bool) (T, error) {
	if err := a.t.ValidatePayload(payload); err != nil {
		var zero T
		return zero, err
	}
	return api.Call[T](ctx, a.t, api.Request{
		Method:       method,
		Segments:     a.segments(id),
		Body:         payload,
		AuthRequired: authRequired,
	})
}

func (a catalogAdmin[T]) create(ctx context.Context, payload any, authRequired bool) (T, error) {
	v, err := a.res.Mutate(ctx, func(ctx context.Context) (T, error) {
		return a.send(ctx, http.MethodPost, 0, payload, authRequired)
	})
	if err != nil {
		return v, err
	}
	a.res.Cache().Set(ctx, a.res.DetailKey(v.EntityID()), v)
	return v, nil
}

func (a catalogAdmin[T]) update(ctx context.Context, id int64, payload any, authRequired bool) (T, error) {
	if id == 0 {
		var zero T
		return zero, &api.ValidationError{Field: "id", Reason: "is required"}
	}
	return a.res.Mutate(ctx, func(ctx context.Context) (T, error) {
		return a.send(ctx, http.MethodPut, id, payload, authRequired)
	}, a.res.DetailKey(id))
}

func (a catalogAdmin[T]) delete(ctx context.Context, id int64, authRequired bool) error {
	if id == 0 {
		return &api.ValidationError{Field: "id", Reason: "is required"}
	}
	err := a.t.Do(ctx, api.Request{
		Method:       http.MethodDelete,
		Segments:     a.segments(id),
		AuthRequired: authRequired,
	}, nil)
	if err != nil {
		return err
	}
	a.res.InvalidateCollections(ctx)
	a.res.Cache().Remove(ctx, a.res.DetailKey(id))
	return nil
}
