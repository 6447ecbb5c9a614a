// Package devserver is an in-memory implementation of the warranty REST
// backend for local development and end-to-end tests.
package devserver

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/warranty-tracker/warranty-client/internal/warranty/domain"
)

type Server struct {
	companies    *table[domain.Company]
	products     *table[domain.Product]
	userProducts *table[domain.UserProduct]
	warranties   *table[domain.Warranty]
	claims       *table[domain.Claim]
	users        *table[domain.User]

	validate *validator.Validate
	now      func() time.Time
}

type Option func(*Server)

// WithClock replaces time.Now, mostly for tests around expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

func New(opts ...Option) *Server {
	s := &Server{
		companies:    newTable[domain.Company]("company"),
		products:     newTable[domain.Product]("product"),
		userProducts: newTable[domain.UserProduct]("user_product"),
		warranties:   newTable[domain.Warranty]("warranty"),
		claims:       newTable[domain.Claim]("claim"),
		users:        newTable[domain.User]("user"),
		validate:     domain.NewValidator(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Restore loads every table from p and writes later changes through to it.
func (s *Server) Restore(ctx context.Context, p Persister) error {
	restorers := []func(context.Context, Persister) error{
		s.companies.restore,
		s.products.restore,
		s.userProducts.restore,
		s.warranties.restore,
		s.claims.restore,
		s.users.restore,
	}
	for _, restore := range restorers {
		if err := restore(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Register mounts every resource. Catalog reads (companies, products) go on
// public, everything else on protected.
func (s *Server) Register(public, protected gin.IRoutes) {
	s.registerCompanies(public, protected)
	s.registerProducts(public, protected)
	s.registerUserProducts(protected)
	s.registerWarranties(protected)
	s.registerClaims(protected)
	s.registerUsers(protected)
}

func (s *Server) today() domain.Date {
	return domain.DateOf(s.now())
}

func abort(c *gin.Context, status int, format string, args ...any) {
	c.AbortWithStatusJSON(status, gin.H{"message": fmt.Sprintf(format, args...)})
}

func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		abort(c, http.StatusBadRequest, "invalid %s", name)
		return 0, false
	}
	return id, true
}

// bind decodes the JSON body into dst and runs the struct validations.
func (s *Server) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		abort(c, http.StatusBadRequest, "invalid body: %v", err)
		return false
	}
	return s.check(c, dst)
}

func (s *Server) check(c *gin.Context, v any) bool {
	if err := s.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			abort(c, http.StatusBadRequest, "%s failed on %s", verrs[0].Field(), verrs[0].Tag())
			return false
		}
		abort(c, http.StatusBadRequest, "invalid body: %v", err)
		return false
	}
	return true
}

func notFound(c *gin.Context, what string, err error) {
	if errors.Is(err, ErrNotFound) {
		abort(c, http.StatusNotFound, "%s not found", what)
		return
	}
	internalError(c, err)
}

func internalError(c *gin.Context, err error) {
	log.Printf("[error] request_id=%s error=%v", c.GetString("request_id"), err)
	abort(c, http.StatusInternalServerError, "internal error")
}
