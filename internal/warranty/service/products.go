package service

import (
	"context"

	"github.com/warranty-tracker/warranty-client/internal/api"
	"github.com/warranty-tracker/warranty-client/internal/query"
	"github.com/warranty-tracker/warranty-client/internal/warranty/domain"
)

// ProductSearch filters products. Empty fields are left out of the query.
type ProductSearch struct {
	Name        string
	Brand       string
	ModelNumber string
}

func (s ProductSearch) params() api.Params {
	return api.Params{}.
		Set("name", s.Name).
		Set("brand", s.Brand).
		Set("modelNumber", s.ModelNumber)
}

// Products is the client for /product.
type Products struct {
	*query.Resource[domain.Product, int64]
	admin catalogAdmin[domain.Product]
}

func NewProducts(t *api.Transport, c *query.Cache) *Products {
	res := query.NewResource(c, api.NewResource[domain.Product, int64](t, "product"), "products")
	return &Products{Resource: res, admin: catalogAdmin[domain.Product]{res: res, t: t}}
}

func (r *Products) Search(ctx context.Context, search ProductSearch, authRequired bool) ([]domain.Product, error) {
	params := search.params()
	return r.Find(ctx, r.Key("search", params), []string{"search"}, params, authRequired)
}

func (r *Products) AdminCreate(ctx context.Context, payload domain.CreateProductRequest, authRequired bool) (domain.Product, error) {
	return r.admin.create(ctx, payload, authRequired)
}

func (r *Products) AdminUpdate(ctx context.Context, id int64, payload any, authRequired bool) (domain.Product, error) {
	return r.admin.update(ctx, id, payload, authRequired)
}

func (r *Products) AdminDelete(ctx context.Context, id int64, authRequired bool) error {
	return r.admin.delete(ctx, id, authRequired)
}
