package rate

import (
	"context"
	"fmt"
	"time"

	rdb "github.com/redis/go-redis/v9"

	"github.com/dropDatabas3/para/internal/config"
)

const (
	DefaultLimit  = 20
	DefaultWindow = time.Minute
)

// FromConfig arma el limiter de los endpoints de credenciales.
// Con rate.redis.addr usa Redis (compartido entre réplicas); si no, memoria local.
// Retorna nil si rate.enabled es false.
func FromConfig(ctx context.Context, c *config.Config) (Limiter, func() error, error) {
	noop := func() error { return nil }
	if !c.Rate.Enabled {
		return nil, noop, nil
	}
	limit, window := c.Rate.Limit, c.Rate.Window
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}

	if c.Rate.Redis.Addr == "" {
		return NewMemoryLimiter(limit, window), noop, nil
	}

	client := rdb.NewClient(&rdb.Options{
		Addr: c.Rate.Redis.Addr,
		DB:   c.Rate.Redis.DB,
	})
	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		_ = client.Close()
		return nil, noop, fmt.Errorf("rate: redis ping %s: %w", c.Rate.Redis.Addr, err)
	}
	prefix := c.Rate.Redis.Prefix
	if prefix == "" {
		prefix = "para:rl:"
	}
	return NewRedisLimiter(client, prefix, limit, window), client.Close, nil
}
