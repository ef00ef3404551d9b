package cache

import (
	"context"
	"hash/fnv"
	"sync"
	"time"
)

// shardCount must be a power of two
const shardCount = 32

type cacheItem[T any] struct {
	value     T
	expiresAt time.Time
}

type shard[T any] struct {
	mu    sync.RWMutex
	items map[string]cacheItem[T]
}

// Compile-time interface check.
var _ Cache[struct{}] = (*MemoryCache[struct{}])(nil)

// MemoryCache implements Cache with sharded in-memory storage. Keys hash to
// one of shardCount independently locked maps, so concurrent lookups of
// different tokens never contend on a global lock. Uses lazy expiration
// (checks expiry on Get). Suitable for single-instance deployments.
type MemoryCache[T any] struct {
	shards [shardCount]*shard[T]
}

// NewMemoryCache creates a new memory cache instance.
func NewMemoryCache[T any]() *MemoryCache[T] {
	m := &MemoryCache[T]{}
	for i := range m.shards {
		m.shards[i] = &shard[T]{items: make(map[string]cacheItem[T])}
	}
	return m
}

func (m *MemoryCache[T]) shardFor(key string) *shard[T] {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return m.shards[h.Sum32()&(shardCount-1)]
}

// Get retrieves a value from cache.
func (m *MemoryCache[T]) Get(ctx context.Context, key string) (T, error) {
	s := m.shardFor(key)
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, exists := s.items[key]
	if !exists {
		var zero T
		return zero, ErrCacheMiss
	}

	// Lazy expiration check
	if time.Now().After(item.expiresAt) {
		var zero T
		return zero, ErrCacheMiss
	}

	return item.value, nil
}

// Set stores a value in cache with TTL.
func (m *MemoryCache[T]) Set(ctx context.Context, key string, value T, ttl time.Duration) error {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[key] = cacheItem[T]{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

// Delete removes a key from cache.
func (m *MemoryCache[T]) Delete(ctx context.Context, key string) error {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, key)
	return nil
}

// Close cleans up resources.
func (m *MemoryCache[T]) Close() error {
	for _, s := range m.shards {
		s.mu.Lock()
		s.items = make(map[string]cacheItem[T])
		s.mu.Unlock()
	}
	return nil
}

// Health checks if the cache is healthy (always true for memory cache).
func (m *MemoryCache[T]) Health(ctx context.Context) error {
	return nil
}
