package domain

import (
	"context"
	"errors"
	"time"
)

// Entry is a cached calculation payload plus the bookkeeping needed for the
// cache statistics surface.
type Entry struct {
	Payload      []byte
	CalcDuration time.Duration
	StoredAt     time.Time
}

// Stats summarizes cache behavior since process start. Hit and miss counters
// are process-local even for the redis backend.
type Stats struct {
	Backend       string  `json:"backend"`
	Hits          int64   `json:"hits"`
	Misses        int64   `json:"misses"`
	HitRate       float64 `json:"hit_rate"`
	EntryCount    int64   `json:"entry_count"`
	AvgCalcTimeMS float64 `json:"avg_calc_time_ms"`
}

// Store is a tagged TTL key-value store for calculation results. Get returns
// nil on a miss.
type Store interface {
	Get(ctx context.Context, key string) (*Entry, error)
	Set(ctx context.Context, key string, entry Entry, ttl time.Duration, tags []string) error
	InvalidateByTag(ctx context.Context, tag string) (int64, error)
	Flush(ctx context.Context) (int64, error)
	EntryCount(ctx context.Context) (int64, error)
	Backend() string
}

// Cache is the read-through surface the calculation service consumes.
// Concurrent lookups of the same key collapse into one compute, and a broken
// store degrades to computing directly rather than failing the calculation.
type Cache interface {
	GetOrCompute(ctx context.Context, key string, tags []string, compute func(context.Context) ([]byte, error)) (payload []byte, hit bool, err error)
	Invalidate(ctx context.Context, tag string) (int64, error)
	Clear(ctx context.Context) (int64, error)
	Stats(ctx context.Context) (Stats, error)
}

var ErrCacheUnavailable = errors.New("cache_unavailable")
