package query

import (
	"context"
	"time"
)

// Store is a shared second cache tier holding JSON-encoded successful results.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// DeletePrefix removes every key whose parts start with the parts of prefix.
	DeletePrefix(ctx context.Context, prefix string) error
	// DeleteMatching removes keys under prefix for which match returns true.
	DeleteMatching(ctx context.Context, prefix string, match func(key string) bool) error
}

// Invalidation is broadcast to other caches sharing a Store.
type Invalidation struct {
	Origin string   `json:"origin"`
	Key    string   `json:"key"`
	Prefix bool     `json:"prefix"`
	Except []string `json:"except,omitempty"`
}

// Notifier is implemented by stores that can broadcast invalidations.
type Notifier interface {
	PublishInvalidation(ctx context.Context, msg Invalidation) error
	SubscribeInvalidations(ctx context.Context) (<-chan Invalidation, error)
}
