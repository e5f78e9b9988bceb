package service

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/smallbiznis/taxrail/internal/clock"
	"github.com/smallbiznis/taxrail/internal/config"
	"github.com/smallbiznis/taxrail/internal/observability/metrics"
	"github.com/smallbiznis/taxrail/internal/resultcache/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type Cache struct {
	store domain.Store
	log   *zap.Logger
	clock clock.Clock
	ttl   time.Duration

	group singleflight.Group

	hits       atomic.Int64
	misses     atomic.Int64
	calcCount  atomic.Int64
	calcTimeNS atomic.Int64
}

type Param struct {
	fx.In

	Config config.Config
	Log    *zap.Logger
	Clock  clock.Clock
	Store  domain.Store
}

func New(p Param) domain.Cache {
	ttl := time.Duration(p.Config.Cache.TTLSecond) * time.Second
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Cache{
		store: p.Store,
		log:   p.Log.Named("resultcache"),
		clock: p.Clock,
		ttl:   ttl,
	}
}

// GetOrCompute returns the cached payload for key, computing and storing it
// on a miss. Concurrent callers of the same key share one compute. Store
// failures are logged and degrade to a direct compute.
func (c *Cache) GetOrCompute(ctx context.Context, key string, tags []string, compute func(context.Context) ([]byte, error)) ([]byte, bool, error) {
	entry, err := c.store.Get(ctx, key)
	if err != nil {
		c.log.Warn("cache read failed, computing directly", zap.Error(err))
		metrics.Calculation().ObserveCacheRequest("error")
		payload, err := compute(ctx)
		return payload, false, err
	}
	if entry != nil {
		c.hits.Add(1)
		metrics.Calculation().ObserveCacheRequest("hit")
		return entry.Payload, true, nil
	}

	c.misses.Add(1)
	metrics.Calculation().ObserveCacheRequest("miss")

	value, err, _ := c.group.Do(key, func() (any, error) {
		// Another caller may have stored the entry while we waited.
		if entry, err := c.store.Get(ctx, key); err == nil && entry != nil {
			return entry.Payload, nil
		}

		start := c.clock.Now()
		payload, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		elapsed := c.clock.Now().Sub(start)
		c.calcCount.Add(1)
		c.calcTimeNS.Add(int64(elapsed))

		setErr := c.store.Set(ctx, key, domain.Entry{
			Payload:      payload,
			CalcDuration: elapsed,
			StoredAt:     c.clock.Now(),
		}, c.ttl, tags)
		if setErr != nil {
			c.log.Warn("cache write failed", zap.Error(setErr))
		}
		return payload, nil
	})
	if err != nil {
		return nil, false, err
	}
	return value.([]byte), false, nil
}

func (c *Cache) Invalidate(ctx context.Context, tag string) (int64, error) {
	removed, err := c.store.InvalidateByTag(ctx, tag)
	if err != nil {
		return 0, err
	}
	c.log.Info("cache invalidated", zap.String("tag", tag), zap.Int64("removed", removed))
	return removed, nil
}

func (c *Cache) Clear(ctx context.Context) (int64, error) {
	removed, err := c.store.Flush(ctx)
	if err != nil {
		return 0, err
	}
	c.log.Info("cache cleared", zap.Int64("removed", removed))
	return removed, nil
}

func (c *Cache) Stats(ctx context.Context) (domain.Stats, error) {
	hits := c.hits.Load()
	misses := c.misses.Load()

	stats := domain.Stats{
		Backend: c.store.Backend(),
		Hits:    hits,
		Misses:  misses,
	}
	if total := hits + misses; total > 0 {
		stats.HitRate = float64(hits) / float64(total)
	}
	if count := c.calcCount.Load(); count > 0 {
		stats.AvgCalcTimeMS = float64(c.calcTimeNS.Load()) / float64(count) / float64(time.Millisecond)
	}

	count, err := c.store.EntryCount(ctx)
	if err != nil {
		return stats, err
	}
	stats.EntryCount = count
	return stats, nil
}
