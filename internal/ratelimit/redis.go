package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a fixed-window counter shared by every instance pointing at
// the same Redis.
type RedisStore struct {
	rdb    redis.Cmdable
	prefix string
	limit  int
	window time.Duration
	now    func() time.Time
}

type RedisOption func(*RedisStore)

func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStore) { s.prefix = strings.Trim(prefix, ":") }
}

// NewRedisStore allows limit requests per key in each window.
func NewRedisStore(rdb redis.Cmdable, limit int, window time.Duration, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		rdb:    rdb,
		prefix: "ratelimit",
		limit:  limit,
		window: window,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) Allow(ctx context.Context, key string) (Decision, error) {
	now := s.now()
	slot := now.UnixMilli() / s.window.Milliseconds()
	windowEnd := time.UnixMilli((slot + 1) * s.window.Milliseconds())
	counterKey := fmt.Sprintf("%s:%s:%d", s.prefix, key, slot)

	pipe := s.rdb.Pipeline()
	incr := pipe.Incr(ctx, counterKey)
	pipe.PExpire(ctx, counterKey, s.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, fmt.Errorf("rate limit counter %s: %w", counterKey, err)
	}

	n := int(incr.Val())
	if n > s.limit {
		return Decision{Allowed: false, Limit: s.limit, RetryAfter: windowEnd.Sub(now)}, nil
	}
	return Decision{Allowed: true, Limit: s.limit, Remaining: s.limit - n}, nil
}
