package service

import (
	"context"
	"strconv"

	"github.com/warranty-tracker/warranty-client/internal/api"
	"github.com/warranty-tracker/warranty-client/internal/query"
	"github.com/warranty-tracker/warranty-client/internal/warranty/domain"
)

// UserProducts is the client for /user-product, the products a user owns.
type UserProducts struct {
	*query.Resource[domain.UserProduct, int64]
}

func NewUserProducts(t *api.Transport, c *query.Cache) *UserProducts {
	return &UserProducts{query.NewResource(c, api.NewResource[domain.UserProduct, int64](t, "user-product"), "userProducts")}
}

func (r *UserProducts) ByProductID(ctx context.Context, productID int64, authRequired bool) ([]domain.UserProduct, error) {
	if productID == 0 {
		return nil, &api.ValidationError{Field: "productId", Reason: "is required"}
	}
	seg := strconv.FormatInt(productID, 10)
	return r.Find(ctx, r.Key("product", productID), []string{"product", seg}, nil, authRequired)
}
