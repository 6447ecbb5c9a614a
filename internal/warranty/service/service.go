package service

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"

	"github.com/warranty-tracker/warranty-client/config"
	"github.com/warranty-tracker/warranty-client/internal/api"
	"github.com/warranty-tracker/warranty-client/internal/auth"
	"github.com/warranty-tracker/warranty-client/internal/query"
	"github.com/warranty-tracker/warranty-client/internal/warranty/domain"
)

// Service bundles the domain clients of one backend. All of them share the
// transport, the query cache and the credential holder.
type Service struct {
	Companies    *Companies
	Products     *Products
	UserProducts *UserProducts
	Warranties   *Warranties
	Claims       *Claims
	Users        *Users

	Holder    *auth.Holder
	Cache     *query.Cache
	Transport *api.Transport

	redis *redis.Client
}

// New wires a Service from configuration. The holder is seeded from API_TOKEN,
// or from the OAuth2 token endpoint when one is configured. When REDIS_ADDR is
// set the cache gets a shared redis tier.
func New(ctx context.Context, cfg *config.Config) (*Service, error) {
	holder := auth.NewHolder()
	switch {
	case cfg.API.Token != "":
		holder.Set(cfg.API.Token)
	case cfg.OAuth.Enabled():
		cc := &clientcredentials.Config{
			ClientID:     cfg.OAuth.ClientID,
			ClientSecret: cfg.OAuth.ClientSecret,
			TokenURL:     cfg.OAuth.TokenURL,
			Scopes:       cfg.OAuth.Scopes,
		}
		if err := holder.SetFromSource(ctx, cc.TokenSource(ctx)); err != nil {
			return nil, fmt.Errorf("failed to obtain access token: %w", err)
		}
	}

	opts := api.Options{
		BaseURL:     cfg.API.BaseURL,
		Timeout:     cfg.API.Timeout,
		Credentials: holder,
		Validator:   domain.NewValidator(),
	}
	if cfg.API.RateLimit > 0 {
		opts.Limiter = rate.NewLimiter(rate.Limit(cfg.API.RateLimit), cfg.API.Burst)
	}
	transport, err := api.NewTransport(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}

	cacheOpts := query.Options{TTL: cfg.Cache.TTL, FetchTimeout: cfg.API.Timeout}
	var rdb *redis.Client
	if cfg.Redis.Enabled() {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		log.Printf("Query cache shared through redis at %s", cfg.Redis.Addr)
		cacheOpts.Store = query.NewRedisStore(rdb)
	}

	s := NewWithTransport(transport, query.New(cacheOpts))
	s.Holder = holder
	s.redis = rdb
	return s, nil
}

// NewWithTransport builds the clients on an existing transport and cache.
func NewWithTransport(t *api.Transport, c *query.Cache) *Service {
	return &Service{
		Companies:    NewCompanies(t, c),
		Products:     NewProducts(t, c),
		UserProducts: NewUserProducts(t, c),
		Warranties:   NewWarranties(t, c),
		Claims:       NewClaims(t, c),
		Users:        NewUsers(t, c),
		Cache:        c,
		Transport:    t,
	}
}

// Close releases the redis connection, if any.
func (s *Service) Close() error {
	if s.redis == nil {
		return nil
	}
	return s.redis.Close()
}
