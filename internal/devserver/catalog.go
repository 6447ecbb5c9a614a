package devserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/warranty-tracker/warranty-client/internal/warranty/domain"
)

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func (s *Server) registerCompanies(read, write gin.IRoutes) {
	r := &resource[domain.Company, domain.CreateCompanyRequest]{
		s:    s,
		name: "company",
		rows: s.companies,
		build: func(c *gin.Context, req domain.CreateCompanyRequest, now time.Time) (domain.Company, bool) {
			ts := domain.Timestamp{Time: now}
			return domain.Company{
				Name:               req.Name,
				ContactPhone:       req.ContactPhone,
				ContactEmail:       req.ContactEmail,
				Website:            req.Website,
				Address:            req.Address,
				ClaimProcess:       req.ClaimProcess,
				ClaimURL:           req.ClaimURL,
				SupportHours:       req.SupportHours,
				ReturnInstructions: req.ReturnInstructions,
				CreatedAt:          ts,
				UpdatedAt:          ts,
			}, true
		},
		assign: func(row *domain.Company, id int64) { row.ID = id },
		touch: func(row *domain.Company, prev domain.Company, now time.Time) {
			row.ID, row.CreatedAt, row.UpdatedAt = prev.ID, prev.CreatedAt, domain.Timestamp{Time: now}
		},
	}

	read.GET("/company/search", func(c *gin.Context) {
		name := strings.TrimSpace(c.Query("name"))
		c.JSON(http.StatusOK, s.companies.list(func(co domain.Company) bool {
			return containsFold(co.Name, name)
		}))
	})
	r.register(read, write, "/company")
	r.registerAdmin(write, "/company")
}

func (s *Server) registerProducts(read, write gin.IRoutes) {
	r := &resource[domain.Product, domain.CreateProductRequest]{
		s:    s,
		name: "product",
		rows: s.products,
		build: func(c *gin.Context, req domain.CreateProductRequest, now time.Time) (domain.Product, bool) {
			ts := domain.Timestamp{Time: now}
			return domain.Product{
				Name:        req.Name,
				Brand:       req.Brand,
				ModelNumber: req.ModelNumber,
				CreatedAt:   ts,
				UpdatedAt:   ts,
			}, true
		},
		assign: func(row *domain.Product, id int64) { row.ID = id },
		touch: func(row *domain.Product, prev domain.Product, now time.Time) {
			row.ID, row.CreatedAt, row.UpdatedAt = prev.ID, prev.CreatedAt, domain.Timestamp{Time: now}
		},
	}

	// Every given filter must match; absent ones match anything.
	read.GET("/product/search", func(c *gin.Context) {
		name, brand, model := c.Query("name"), c.Query("brand"), c.Query("modelNumber")
		c.JSON(http.StatusOK, s.products.list(func(p domain.Product) bool {
			return containsFold(p.Name, name) &&
				containsFold(p.Brand, brand) &&
				containsFold(p.ModelNumber, model)
		}))
	})
	r.register(read, write, "/product")
	r.registerAdmin(write, "/product")
}
