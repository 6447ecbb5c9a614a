package service

import (
	"context"
	"net/http"
	"strconv"

	"github.com/warranty-tracker/warranty-client/internal/api"
	"github.com/warranty-tracker/warranty-client/internal/query"
	"github.com/warranty-tracker/warranty-client/internal/warranty/domain"
)

// Users is the client for /user. The plain collection routes act on the
// signed-in user; the admin routes act on any user.
type Users struct {
	*query.Resource[domain.User, int64]
	t *api.Transport
}

func NewUsers(t *api.Transport, c *query.Cache) *Users {
	return &Users{
		Resource: query.NewResource(c, api.NewResource[domain.User, int64](t, "user"), "users"),
		t:        t,
	}
}

// CurrentKey caches the signed-in user's profile.
func (r *Users) CurrentKey() query.Key { return r.Key("current") }

func (r *Users) adminKey(id int64) query.Key { return r.Key("admin", "user", id) }

// Current returns the profile of the signed-in user.
func (r *Users) Current(ctx context.Context, authRequired bool) (domain.User, error) {
	return r.FindOne(ctx, r.CurrentKey(), nil, nil, authRequired)
}

// Register creates the profile of the signed-in user. A nil payload sends no
// body and the server fills the profile from the token.
func (r *Users) Register(ctx context.Context, payload *domain.CreateUserRequest, authRequired bool) (domain.User, error) {
	return r.Mutate(ctx, func(ctx context.Context) (domain.User, error) {
		req := api.Request{
			Method:       http.MethodPost,
			Segments:     []string{r.API().Path()},
			AuthRequired: authRequired,
		}
		if payload != nil {
			if err := r.t.ValidatePayload(payload); err != nil {
				return domain.User{}, err
			}
			req.Body = payload
		}
		return api.Call[domain.User](ctx, r.t, req)
	}, r.CurrentKey())
}

// UpdateCurrent updates the signed-in user's profile with a partial payload.
func (r *Users) UpdateCurrent(ctx context.Context, payload any, authRequired bool) (domain.User, error) {
	return r.Mutate(ctx, func(ctx context.Context) (domain.User, error) {
		if err := r.t.ValidatePayload(payload); err != nil {
			return domain.User{}, err
		}
		return api.Call[domain.User](ctx, r.t, api.Request{
			Method:       http.MethodPut,
			Segments:     []string{r.API().Path()},
			Body:         payload,
			AuthRequired: authRequired,
		})
	}, r.CurrentKey())
}

func (r *Users) AdminAll(ctx context.Context, authRequired bool) ([]domain.User, error) {
	return r.Find(ctx, r.Key("admin", "all"), []string{"admin", "all"}, nil, authRequired)
}

func (r *Users) AdminGet(ctx context.Context, id int64, authRequired bool) (domain.User, error) {
	if id == 0 {
		return domain.User{}, &api.ValidationError{Field: "id", Reason: "is required"}
	}
	return r.FindOne(ctx, r.adminKey(id), []string{"admin", strconv.FormatInt(id, 10)}, nil, authRequired)
}

func (r *Users) AdminUpdate(ctx context.Context, id int64, payload any, authRequired bool) (domain.User, error) {
	if id == 0 {
		return domain.User{}, &api.ValidationError{Field: "id", Reason: "is required"}
	}
	return r.Mutate(ctx, func(ctx context.Context) (domain.User, error) {
		if err := r.t.ValidatePayload(payload); err != nil {
			return domain.User{}, err
		}
		return api.Call[domain.User](ctx, r.t, api.Request{
			Method:       http.MethodPut,
			Segments:     []string{r.API().Path(), "admin", strconv.FormatInt(id, 10)},
			Body:         payload,
			AuthRequired: authRequired,
		})
	}, r.adminKey(id))
}

func (r *Users) AdminDelete(ctx context.Context, id int64, authRequired bool) error {
	if id == 0 {
		return &api.ValidationError{Field: "id", Reason: "is required"}
	}
	err := r.t.Do(ctx, api.Request{
		Method:       http.MethodDelete,
		Segments:     []string{r.API().Path(), "admin", strconv.FormatInt(id, 10)},
		AuthRequired: authRequired,
	}, nil)
	if err != nil {
		return err
	}
	r.InvalidateCollections(ctx)
	r.Cache().Remove(ctx, r.adminKey(id))
	r.Cache().Remove(ctx, r.DetailKey(id))
	return nil
}
