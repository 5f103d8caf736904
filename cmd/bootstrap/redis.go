package bootstrap

import (
	"context"
	"log/slog"

	"stayhub/internal/infra/cache"
	"stayhub/internal/pkg/config"
	"stayhub/internal/usecase/shared"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

var RedisModule = fx.Module("redis",
	fx.Provide(
		NewAvailabilityCache,
	),
)

func NewAvailabilityCache(lc fx.Lifecycle, cfg config.Config, logger *slog.Logger) shared.AvailabilityCache {
	if !cfg.Redis.Enabled {
		return cache.NoopAvailabilityCache{}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			// Availability reads fall back to the store while redis is down.
			if err := client.Ping(ctx).Err(); err != nil {
				logger.Warn("redis unreachable at startup", "addr", cfg.Redis.Addr, "error", err.Error())
			}
			return nil
		},
		OnStop: func(_ context.Context) error {
			return client.Close()
		},
	})

	return cache.NewRedisAvailabilityCache(client, cfg.Redis.AvailabilityTTL)
}
