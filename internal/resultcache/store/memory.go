package store

import (
	"context"
	"sync"
	"time"

	"github.com/smallbiznis/taxrail/internal/clock"
	"github.com/smallbiznis/taxrail/internal/resultcache/domain"
)

type memoryEntry struct {
	entry     domain.Entry
	expiresAt time.Time
	tags      []string
}

// Memory is an in-process tagged TTL store. It bounds the entry count and
// evicts the oldest entry when full.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	tags    map[string]map[string]struct{}
	max     int
	clock   clock.Clock
}

func NewMemory(maxEntries int, clk clock.Clock) *Memory {
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	return &Memory{
		entries: make(map[string]memoryEntry),
		tags:    make(map[string]map[string]struct{}),
		max:     maxEntries,
		clock:   clk,
	}
}

func (m *Memory) Backend() string { return "memory" }

func (m *Memory) Get(_ context.Context, key string) (*domain.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.entries[key]
	if !ok {
		return nil, nil
	}
	if !m.clock.Now().Before(stored.expiresAt) {
		m.removeLocked(key)
		return nil, nil
	}
	entry := stored.entry
	return &entry, nil
}

func (m *Memory) Set(_ context.Context, key string, entry domain.Entry, ttl time.Duration, tags []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[key]; !exists && len(m.entries) >= m.max {
		m.evictOldestLocked()
	}

	m.removeLocked(key)
	m.entries[key] = memoryEntry{
		entry:     entry,
		expiresAt: m.clock.Now().Add(ttl),
		tags:      append([]string(nil), tags...),
	}
	for _, tag := range tags {
		keys, ok := m.tags[tag]
		if !ok {
			keys = make(map[string]struct{})
			m.tags[tag] = keys
		}
		keys[key] = struct{}{}
	}
	return nil
}

func (m *Memory) InvalidateByTag(_ context.Context, tag string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys, ok := m.tags[tag]
	if !ok {
		return 0, nil
	}
	var removed int64
	for key := range keys {
		m.removeLocked(key)
		removed++
	}
	return removed, nil
}

func (m *Memory) Flush(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := int64(len(m.entries))
	m.entries = make(map[string]memoryEntry)
	m.tags = make(map[string]map[string]struct{})
	return removed, nil
}

func (m *Memory) EntryCount(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	var count int64
	for key, stored := range m.entries {
		if now.Before(stored.expiresAt) {
			count++
			continue
		}
		m.removeLocked(key)
	}
	return count, nil
}

func (m *Memory) removeLocked(key string) {
	stored, ok := m.entries[key]
	if !ok {
		return
	}
	delete(m.entries, key)
	for _, tag := range stored.tags {
		if keys, ok := m.tags[tag]; ok {
			delete(keys, key)
			if len(keys) == 0 {
				delete(m.tags, tag)
			}
		}
	}
}

func (m *Memory) evictOldestLocked() {
	var oldestKey string
	var oldestAt time.Time
	for key, stored := range m.entries {
		if oldestKey == "" || stored.entry.StoredAt.Before(oldestAt) {
			oldestKey = key
			oldestAt = stored.entry.StoredAt
		}
	}
	if oldestKey != "" {
		m.removeLocked(oldestKey)
	}
}
