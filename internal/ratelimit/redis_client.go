package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Connection tuning for the shared rate limit window store. Limits are
// advisory counters, so timeouts stay short: a slow Redis must not slow
// down claim traffic.
const (
	redisDialTimeout  = 5 * time.Second
	redisReadTimeout  = 3 * time.Second
	redisWriteTimeout = 3 * time.Second
	redisPoolTimeout  = 4 * time.Second
	redisPoolSize     = 10
	redisMinIdleConns = 2
	redisMaxRetries   = 3
)

// RedisClient holds the shared connection behind the sliding-window
// limiter. Redis is optional: without an address the client reports
// itself disabled and each instance enforces limits on its own.
type RedisClient struct {
	client  *redis.Client
	enabled bool
	addr    string
}

// NewRedisClient dials Redis and verifies the connection with a ping.
// An empty addr yields a disabled client, not an error.
func NewRedisClient(addr, password string, db int) (*RedisClient, error) {
	if addr == "" {
		slog.Warn("redis not configured, rate limits are per-instance only")
		return &RedisClient{}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		MaxRetries:   redisMaxRetries,
		DialTimeout:  redisDialTimeout,
		ReadTimeout:  redisReadTimeout,
		WriteTimeout: redisWriteTimeout,
		PoolSize:     redisPoolSize,
		MinIdleConns: redisMinIdleConns,
		PoolTimeout:  redisPoolTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisDialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		slog.Error("redis ping failed, rate limits are per-instance only", "addr", addr, "error", err)
		return &RedisClient{addr: addr}, fmt.Errorf("redis ping: %w", err)
	}

	slog.Info("redis connected for rate limiting", "addr", addr, "db", db)

	return &RedisClient{client: client, enabled: true, addr: addr}, nil
}

// IsEnabled reports whether the shared window store is available.
func (r *RedisClient) IsEnabled() bool {
	return r.enabled
}

// GetClient exposes the underlying connection for the limiter.
func (r *RedisClient) GetClient() *redis.Client {
	return r.client
}

// HealthCheck pings Redis. A disabled client reports an error so the
// health endpoint surfaces the per-instance degraded mode.
func (r *RedisClient) HealthCheck(ctx context.Context) error {
	if !r.enabled {
		return fmt.Errorf("redis disabled, per-instance rate limits in effect")
	}
	return r.client.Ping(ctx).Err()
}

// Close releases the connection pool.
func (r *RedisClient) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}

// GetPoolStats reports connection pool counters for the stats surface.
func (r *RedisClient) GetPoolStats() map[string]interface{} {
	if !r.enabled || r.client == nil {
		return map[string]interface{}{"enabled": false}
	}

	stats := r.client.PoolStats()
	return map[string]interface{}{
		"enabled":     true,
		"addr":        r.addr,
		"hits":        stats.Hits,
		"misses":      stats.Misses,
		"timeouts":    stats.Timeouts,
		"total_conns": stats.TotalConns,
		"idle_conns":  stats.IdleConns,
		"stale_conns": stats.StaleConns,
	}
}
