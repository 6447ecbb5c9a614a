package service

import (
	"context"
	"strconv"

	"github.com/warranty-tracker/warranty-client/internal/api"
	"github.com/warranty-tracker/warranty-client/internal/query"
	"github.com/warranty-tracker/warranty-client/internal/warranty/domain"
)

// Claims is the client for /claim.
type Claims struct {
	*query.Resource[domain.Claim, int64]
}

func NewClaims(t *api.Transport, c *query.Cache) *Claims {
	return &Claims{query.NewResource(c, api.NewResource[domain.Claim, int64](t, "claim"), "claims")}
}

func (r *Claims) ByWarrantyID(ctx context.Context, warrantyID int64, authRequired bool) ([]domain.Claim, error) {
	if warrantyID == 0 {
		return nil, &api.ValidationError{Field: "warrantyId", Reason: "is required"}
	}
	seg := strconv.FormatInt(warrantyID, 10)
	return r.Find(ctx, r.Key("warranty", warrantyID), []string{"warranty", seg}, nil, authRequired)
}

func (r *Claims) ByStatus(ctx context.Context, status domain.ClaimStatus, authRequired bool) ([]domain.Claim, error) {
	if status == "" {
		return nil, &api.ValidationError{Field: "status", Reason: "is required"}
	}
	return r.Find(ctx, r.Key("status", status), []string{"status", string(status)}, nil, authRequired)
}
