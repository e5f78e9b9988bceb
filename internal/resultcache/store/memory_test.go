package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/smallbiznis/taxrail/internal/clock"
	"github.com/smallbiznis/taxrail/internal/resultcache/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_SetGetAndTTL(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	m := NewMemory(100, fake)
	ctx := context.Background()

	entry := domain.Entry{Payload: []byte("result"), StoredAt: fake.Now()}
	require.NoError(t, m.Set(ctx, "k1", entry, time.Minute, nil))

	got, err := m.Get(ctx, "k1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []byte("result"), got.Payload)

	fake.Advance(2 * time.Minute)
	got, err = m.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Nil(t, got, "expired entry must read as a miss")

	count, err := m.EntryCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestMemory_InvalidateByTag(t *testing.T) {
	fake := clock.NewFakeClock(time.Now())
	m := NewMemory(100, fake)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "a", domain.Entry{Payload: []byte("a"), StoredAt: fake.Now()}, time.Minute, []string{"category:7"}))
	require.NoError(t, m.Set(ctx, "b", domain.Entry{Payload: []byte("b"), StoredAt: fake.Now()}, time.Minute, []string{"category:7", "org:1"}))
	require.NoError(t, m.Set(ctx, "c", domain.Entry{Payload: []byte("c"), StoredAt: fake.Now()}, time.Minute, []string{"category:8"}))

	removed, err := m.InvalidateByTag(ctx, "category:7")
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	got, _ := m.Get(ctx, "a")
	assert.Nil(t, got)
	got, _ = m.Get(ctx, "c")
	assert.NotNil(t, got)

	removed, err = m.InvalidateByTag(ctx, "category:7")
	require.NoError(t, err)
	assert.Equal(t, int64(0), removed)
}

func TestMemory_EvictsOldestAtCapacity(t *testing.T) {
	fake := clock.NewFakeClock(time.Now())
	m := NewMemory(2, fake)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "old", domain.Entry{Payload: []byte("old"), StoredAt: fake.Now()}, time.Hour, nil))
	fake.Advance(time.Second)
	require.NoError(t, m.Set(ctx, "mid", domain.Entry{Payload: []byte("mid"), StoredAt: fake.Now()}, time.Hour, nil))
	fake.Advance(time.Second)
	require.NoError(t, m.Set(ctx, "new", domain.Entry{Payload: []byte("new"), StoredAt: fake.Now()}, time.Hour, nil))

	got, _ := m.Get(ctx, "old")
	assert.Nil(t, got, "oldest entry should be evicted")
	got, _ = m.Get(ctx, "mid")
	assert.NotNil(t, got)
	got, _ = m.Get(ctx, "new")
	assert.NotNil(t, got)
}

func TestMemory_Flush(t *testing.T) {
	fake := clock.NewFakeClock(time.Now())
	m := NewMemory(100, fake)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, m.Set(ctx, fmt.Sprintf("k%d", i), domain.Entry{Payload: []byte("x"), StoredAt: fake.Now()}, time.Minute, []string{"org:1"}))
	}

	removed, err := m.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), removed)

	count, err := m.EntryCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}
