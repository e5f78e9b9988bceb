package resultcache

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/smallbiznis/taxrail/internal/clock"
	"github.com/smallbiznis/taxrail/internal/config"
	"github.com/smallbiznis/taxrail/internal/resultcache/domain"
	"github.com/smallbiznis/taxrail/internal/resultcache/service"
	"github.com/smallbiznis/taxrail/internal/resultcache/store"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("resultcache.service",
	fx.Provide(
		provideStore,
		service.New,
	),
)

func provideStore(lc fx.Lifecycle, cfg config.Config, clk clock.Clock, log *zap.Logger) domain.Store {
	if cfg.Cache.Backend != "redis" {
		return store.NewMemory(cfg.Cache.MaxEntry, clk)
	}

	client := redis.NewClient(&redis.Options{
		Addr: cfg.Cache.RedisAddr,
		DB:   cfg.Cache.RedisDB,
	})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				log.Warn("redis unreachable at startup, cache will degrade", zap.Error(err))
			}
			return nil
		},
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return store.NewRedis(client)
}
