package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/smallbiznis/taxrail/internal/resultcache/domain"
)

const (
	redisKeyPrefix = "taxrail:calc:"
	redisTagPrefix = "taxrail:calc:tag:"
)

type redisEntry struct {
	Payload      []byte    `json:"payload"`
	CalcDuration int64     `json:"calc_duration_ns"`
	StoredAt     time.Time `json:"stored_at"`
}

// Redis is a tagged TTL store backed by a shared redis instance, for
// deployments where multiple calculation workers should share results.
type Redis struct {
	client redis.UniversalClient
}

func NewRedis(client redis.UniversalClient) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Backend() string { return "redis" }

func (r *Redis) Get(ctx context.Context, key string) (*domain.Entry, error) {
	raw, err := r.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrCacheUnavailable, err)
	}

	var stored redisEntry
	if err := json.Unmarshal(raw, &stored); err != nil {
		// A corrupt entry is a miss, not a failure.
		_ = r.client.Del(ctx, redisKeyPrefix+key).Err()
		return nil, nil
	}
	return &domain.Entry{
		Payload:      stored.Payload,
		CalcDuration: time.Duration(stored.CalcDuration),
		StoredAt:     stored.StoredAt,
	}, nil
}

func (r *Redis) Set(ctx context.Context, key string, entry domain.Entry, ttl time.Duration, tags []string) error {
	raw, err := json.Marshal(redisEntry{
		Payload:      entry.Payload,
		CalcDuration: int64(entry.CalcDuration),
		StoredAt:     entry.StoredAt,
	})
	if err != nil {
		return err
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, redisKeyPrefix+key, raw, ttl)
	for _, tag := range tags {
		pipe.SAdd(ctx, redisTagPrefix+tag, key)
		// Tag sets outlive their newest member slightly so invalidation
		// still finds keys near expiry.
		pipe.Expire(ctx, redisTagPrefix+tag, ttl+time.Minute)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrCacheUnavailable, err)
	}
	return nil
}

func (r *Redis) InvalidateByTag(ctx context.Context, tag string) (int64, error) {
	keys, err := r.client.SMembers(ctx, redisTagPrefix+tag).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrCacheUnavailable, err)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	full := make([]string, 0, len(keys)+1)
	for _, key := range keys {
		full = append(full, redisKeyPrefix+key)
	}
	removed, err := r.client.Del(ctx, full...).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrCacheUnavailable, err)
	}
	_ = r.client.Del(ctx, redisTagPrefix+tag).Err()
	return removed, nil
}

func (r *Redis) Flush(ctx context.Context) (int64, error) {
	var removed int64
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, redisKeyPrefix+"*", 500).Result()
		if err != nil {
			return removed, fmt.Errorf("%w: %v", domain.ErrCacheUnavailable, err)
		}
		if len(keys) > 0 {
			n, err := r.client.Del(ctx, keys...).Result()
			if err != nil {
				return removed, fmt.Errorf("%w: %v", domain.ErrCacheUnavailable, err)
			}
			removed += n
		}
		cursor = next
		if cursor == 0 {
			return removed, nil
		}
	}
}

func (r *Redis) EntryCount(ctx context.Context) (int64, error) {
	var count int64
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, redisKeyPrefix+"*", 500).Result()
		if err != nil {
			return 0, fmt.Errorf("%w: %v", domain.ErrCacheUnavailable, err)
		}
		for _, key := range keys {
			if len(key) >= len(redisTagPrefix) && key[:len(redisTagPrefix)] == redisTagPrefix {
				continue
			}
			count++
		}
		cursor = next
		if cursor == 0 {
			return count, nil
		}
	}
}
