package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix         = "wt:q:"           // Cached result: wt:q:{key}
	redisInvalidateChannel = "wt:q:invalidate" // Pub/Sub channel for invalidations
	redisScanCount         = 200
	redisDefaultTTL        = 24 * time.Hour // Used when the cache has no TTL
)

// RedisStore keeps cached results in redis so several processes share them.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an existing redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) key(k string) string {
	return redisKeyPrefix + k
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get cached value: %w", err)
	}
	return data, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = redisDefaultTTL
	}
	if err := s.client.Set(ctx, s.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cached value: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete cached value: %w", err)
	}
	return nil
}

func (s *RedisStore) DeletePrefix(ctx context.Context, prefix string) error {
	return s.DeleteMatching(ctx, prefix, func(string) bool { return true })
}

// DeleteMatching scans keys under prefix. A key matches the prefix when it is
// equal to it or continues with another part, so ["claims"] never matches
// ["claimsArchive"].
func (s *RedisStore) DeleteMatching(ctx context.Context, prefix string, match func(key string) bool) error {
	open := strings.TrimSuffix(prefix, "]")
	pattern := s.key(globEscape(open)) + "*"

	var cursor uint64
	pipe := s.client.Pipeline()
	queued := 0
	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, redisScanCount).Result()
		if err != nil {
			return fmt.Errorf("failed to scan cached values: %w", err)
		}
		for _, rk := range keys {
			k := strings.TrimPrefix(rk, redisKeyPrefix)
			if k != prefix && !strings.HasPrefix(k, open+",") {
				continue
			}
			if !match(k) {
				continue
			}
			pipe.Del(ctx, rk)
			queued++
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	if queued == 0 {
		return nil
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete cached values: %w", err)
	}
	return nil
}

func (s *RedisStore) PublishInvalidation(ctx context.Context, msg Invalidation) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal invalidation: %w", err)
	}
	if err := s.client.Publish(ctx, redisInvalidateChannel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish invalidation: %w", err)
	}
	return nil
}

// SubscribeInvalidations streams invalidations until ctx ends.
func (s *RedisStore) SubscribeInvalidations(ctx context.Context) (<-chan Invalidation, error) {
	sub := s.client.Subscribe(ctx, redisInvalidateChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("failed to subscribe to invalidations: %w", err)
	}

	out := make(chan Invalidation)
	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-msgs:
				if !ok {
					return
				}
				var inv Invalidation
				if err := json.Unmarshal([]byte(m.Payload), &inv); err != nil {
					log.Printf("[warn] operation=cache_invalidation_decode error=%v", err)
					continue
				}
				select {
				case out <- inv:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// globEscape escapes redis MATCH metacharacters.
func globEscape(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\', '^':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
