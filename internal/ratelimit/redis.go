package ratelimit

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "storefront:ratelimit:"

// redisTimeout bounds a single Allow round trip; Allow has no context.
const redisTimeout = time.Second

// RedisStore shares fixed-window counters between instances.
//
// Each client has one key, incremented per request; the key expires one
// Period after the first request, which closes the window.
type RedisStore struct {
	client redis.UniversalClient
	limit  int
	period time.Duration
}

// NewRedisStore returns a store allowing limit requests per period.
func NewRedisStore(client redis.UniversalClient, limit int, period time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		limit:  limit,
		period: period,
	}
}

// Allow counts a request from identifier and reports whether it is within the limit.
//
// A Redis failure is returned as an error, which the middleware turns into
// a rejected request.
func (s *RedisStore) Allow(identifier string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	key := redisKeyPrefix + identifier

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	// NX keeps the expiry set by the first request of the window.
	pipe.ExpireNX(ctx, key, s.period)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, errors.Wrap(err, "rate limit counter")
	}

	return incr.Val() <= int64(s.limit), nil
}
