package health

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Pinger is the subset of a go-redis client used for health checks.
type Pinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

// RedisChecker reports whether the rate limit Redis is reachable.
type RedisChecker struct {
	client Pinger
}

// NewRedisChecker creates a new Redis health checker.
func NewRedisChecker(client Pinger) *RedisChecker {
	return &RedisChecker{client: client}
}

// HealthCheck sends PING and expects PONG.
func (c *RedisChecker) HealthCheck(ctx context.Context) error {
	pong, err := c.client.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	if pong != "PONG" {
		return fmt.Errorf("redis ping returned unexpected reply %q", pong)
	}
	return nil
}
