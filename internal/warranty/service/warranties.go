package service

import (
	"context"
	"strconv"

	"github.com/warranty-tracker/warranty-client/internal/api"
	"github.com/warranty-tracker/warranty-client/internal/query"
	"github.com/warranty-tracker/warranty-client/internal/warranty/domain"
)

// Warranties is the client for /warranty, including the admin views.
type Warranties struct {
	*query.Resource[domain.Warranty, int64]
}

func NewWarranties(t *api.Transport, c *query.Cache) *Warranties {
	return &Warranties{query.NewResource(c, api.NewResource[domain.Warranty, int64](t, "warranty"), "warranties")}
}

func (r *Warranties) ByStatus(ctx context.Context, status domain.WarrantyStatus, authRequired bool) ([]domain.Warranty, error) {
	if status == "" {
		return nil, &api.ValidationError{Field: "status", Reason: "is required"}
	}
	return r.Find(ctx, r.Key("status", status), []string{"status", string(status)}, nil, authRequired)
}

// ExpiringWithinDays lists the caller's warranties ending in the next days days.
func (r *Warranties) ExpiringWithinDays(ctx context.Context, days int, authRequired bool) ([]domain.Warranty, error) {
	key, params, err := r.expiring(days)
	if err != nil {
		return nil, err
	}
	return r.Find(ctx, key, []string{"expiring"}, params, authRequired)
}

// RefreshExpiringWithinDays is ExpiringWithinDays bypassing the cached value.
func (r *Warranties) RefreshExpiringWithinDays(ctx context.Context, days int, authRequired bool) ([]domain.Warranty, error) {
	key, params, err := r.expiring(days)
	if err != nil {
		return nil, err
	}
	return r.FindFresh(ctx, key, []string{"expiring"}, params, authRequired)
}

func (r *Warranties) expiring(days int) (query.Key, api.Params, error) {
	if days <= 0 {
		return query.Key{}, nil, &api.ValidationError{Field: "days", Reason: "must be positive"}
	}
	return r.Key("expiring", days), api.Params{}.Set("days", strconv.Itoa(days)), nil
}

func (r *Warranties) AdminAll(ctx context.Context, authRequired bool) ([]domain.Warranty, error) {
	return r.Find(ctx, r.Key("admin", "all"), []string{"admin", "all"}, nil, authRequired)
}

func (r *Warranties) AdminByUser(ctx context.Context, userID int64, authRequired bool) ([]domain.Warranty, error) {
	if userID == 0 {
		return nil, &api.ValidationError{Field: "userId", Reason: "is required"}
	}
	seg := strconv.FormatInt(userID, 10)
	return r.Find(ctx, r.Key("admin", "user", userID), []string{"admin", "user", seg}, nil, authRequired)
}

func (r *Warranties) AdminByCompany(ctx context.Context, companyID int64, authRequired bool) ([]domain.Warranty, error) {
	if companyID == 0 {
		return nil, &api.ValidationError{Field: "companyId", Reason: "is required"}
	}
	seg := strconv.FormatInt(companyID, 10)
	return r.Find(ctx, r.Key("admin", "company", companyID), []string{"admin", "company", seg}, nil, authRequired)
}

func (r *Warranties) AdminExpired(ctx context.Context, authRequired bool) ([]domain.Warranty, error) {
	return r.Find(ctx, r.Key("admin", "expired"), []string{"admin", "expired"}, nil, authRequired)
}

// AdminExpiringBetween lists warranties of all users ending between start and end.
func (r *Warranties) AdminExpiringBetween(ctx context.Context, start, end domain.Date, authRequired bool) ([]domain.Warranty, error) {
	if start.IsZero() || end.IsZero() {
		return nil, &api.ValidationError{Field: "startDate", Reason: "and endDate are required"}
	}
	if end.Before(start.Time) {
		return nil, &api.ValidationError{Field: "endDate", Reason: "must not be before startDate"}
	}
	params := api.Params{}.
		Set("startDate", start.String()).
		Set("endDate", end.String())
	return r.Find(ctx, r.Key("admin", "expiring", params), []string{"admin", "expiring"}, params, authRequired)
}
