package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/eldtechnologies/contextstack/internal/metrics"
)

const defaultOpTimeout = 500 * time.Millisecond

// RedisOptions tunes a RedisCache.
type RedisOptions struct {
	// Timeout bounds each Get/Set round trip. Defaults to 500ms.
	Timeout time.Duration
	// OnFault, if set, is called for every absorbed store error.
	OnFault FaultHook
}

// RedisCache handles Redis operations for cached contexts.
type RedisCache struct {
	client  *redis.Client
	logger  zerolog.Logger
	timeout time.Duration
	onFault FaultHook
}

// NewRedisCache connects to Redis and checks the connection. Only a bad URL
// is an error: an unreachable server is logged and the cache starts degraded,
// absorbing faults until the client reconnects.
func NewRedisCache(ctx context.Context, redisURL string, logger zerolog.Logger, opts RedisOptions) (*RedisCache, error) {
	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	c := NewRedisCacheFromClient(redis.NewClient(redisOpts), logger, opts)

	pingCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.Ping(pingCtx); err != nil {
		c.logger.Warn().Err(err).Str("addr", redisOpts.Addr).Msg("redis unreachable at startup, serving uncached")
	}

	return c, nil
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(client *redis.Client, logger zerolog.Logger, opts RedisOptions) *RedisCache {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultOpTimeout
	}
	return &RedisCache{
		client:  client,
		logger:  logger.With().Str("component", "cache").Logger(),
		timeout: timeout,
		onFault: opts.OnFault,
	}
}

// Client exposes the underlying client for other Redis users such as the rate limiter.
func (c *RedisCache) Client() *redis.Client {
	return c.client
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Ping checks the Redis connection.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Get returns the cached value for key. Store errors are logged and reported as a miss.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	data, err := c.client.Get(ctx, key).Bytes()
	metrics.RedisLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.CacheLookups.WithLabelValues("miss").Inc()
			return nil, false
		}
		c.fault("get", key, err)
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}

	metrics.CacheLookups.WithLabelValues("hit").Inc()
	return data, true
}

// Set stores value under key with the given TTL. Store errors are logged and dropped.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	err := c.client.Set(ctx, key, value, ttl).Err()
	metrics.RedisLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		c.fault("set", key, err)
	}
}

func (c *RedisCache) fault(op, key string, err error) {
	metrics.CacheFaults.WithLabelValues(op).Inc()
	c.logger.Warn().
		Str("event", "cache_fault").
		Str("op", op).
		Str("key", key).
		Err(err).
		Msg("cache store unavailable")
	if c.onFault != nil {
		c.onFault(op, key, err)
	}
}
