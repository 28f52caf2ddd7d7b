package store

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// RedisOptions configures NewRedisClient.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient creates a Redis client and pings it, retrying while the
// server is still starting.
func NewRedisClient(ctx context.Context, opts RedisOptions, logger *slog.Logger) (*redis.Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	attempt := 0
	err := retry.Do(ctx, ConnectBackoff(), func(ctx context.Context) error {
		attempt++
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis not ready", "addr", opts.Addr, "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		_ = rdb.Close() //nolint:errcheck // connect error takes precedence
		return nil, oops.Code("REDIS_CONNECT_FAILED").With("addr", opts.Addr).With("attempts", attempt).Wrap(err)
	}
	return rdb, nil
}
