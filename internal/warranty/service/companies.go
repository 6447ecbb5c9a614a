package service

import (
	"context"

	"github.com/warranty-tracker/warranty-client/internal/api"
	"github.com/warranty-tracker/warranty-client/internal/query"
	"github.com/warranty-tracker/warranty-client/internal/warranty/domain"
)

// Companies is the client for /company.
type Companies struct {
	*query.Resource[domain.Company, int64]
	admin catalogAdmin[domain.Company]
}

func NewCompanies(t *api.Transport, c *query.Cache) *Companies {
	res := query.NewResource(c, api.NewResource[domain.Company, int64](t, "company"), "companies")
	return &Companies{Resource: res, admin: catalogAdmin[domain.Company]{res: res, t: t}}
}

// SearchByName finds companies whose name matches name.
func (r *Companies) SearchByName(ctx context.Context, name string, authRequired bool) ([]domain.Company, error) {
	params := api.Params{}.Set("name", name)
	return r.Find(ctx, r.Key("search", params), []string{"search"}, params, authRequired)
}

// AdminCreate adds a company through POST /company/admin.
func (r *Companies) AdminCreate(ctx context.Context, payload domain.CreateCompanyRequest, authRequired bool) (domain.Company, error) {
	return r.admin.create(ctx, payload, authRequired)
}

// AdminUpdate changes a company through PUT /company/admin/{id}. payload may be partial.
func (r *Companies) AdminUpdate(ctx context.Context, id int64, payload any, authRequired bool) (domain.Company, error) {
	return r.admin.update(ctx, id, payload, authRequired)
}

func (r *Companies) AdminDelete(ctx context.Context, id int64, authRequired bool) error {
	return r.admin.delete(ctx, id, authRequired)
}
