package routing

import (
	"context"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheCapacity bounds the in-memory route cache when no explicit
// capacity is configured.
const DefaultCacheCapacity = 1000

// CacheStats is the introspection snapshot exposed by GET /api/cache/info.
type CacheStats struct {
	Size     int
	Capacity int // 0 means unbounded (persistent backends)
	Hits     uint64
	Misses   uint64
}

// HitRate returns the fraction of lookups served from the cache, in [0, 1].
func (s CacheStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Store is the route cache contract. Implementations must make Get/Put safe
// under concurrent invocation from multiple in-flight batch lookups, with
// atomic entry visibility: a Get never observes a partially applied Put.
//
// A (nil, nil) return from Get is a cache miss. Store errors are advisory:
// the orchestrator treats a failing cache as a miss and keeps going.
type Store interface {
	Get(ctx context.Context, key CacheKey) (*RouteData, error)
	Put(ctx context.Context, key CacheKey, data *RouteData) error
	Clear(ctx context.Context) error
	Stats(ctx context.Context) (CacheStats, error)
}

// MemoryStore is the default Store: a bounded, thread-safe LRU keyed by the
// normalized route fingerprint. Route popularity is heavily skewed toward a
// small set of frequently replanned segments, so LRU adapts to shifting
// itinerary focus without manual tuning. Entries carry no TTL; routes
// between fixed points do not go stale quickly, and capacity pressure is the
// only eviction trigger.
type MemoryStore struct {
	cache    *lru.Cache[CacheKey, *RouteData]
	capacity int

	mu     sync.Mutex
	hits   uint64
	misses uint64
}

// NewMemoryStore creates a MemoryStore evicting least-recently-used entries
// beyond capacity. A capacity below 1 falls back to DefaultCacheCapacity.
func NewMemoryStore(capacity int) (*MemoryStore, error) {
	if capacity < 1 {
		capacity = DefaultCacheCapacity
	}
	c, err := lru.New[CacheKey, *RouteData](capacity)
	if err != nil {
		return nil, fmt.Errorf("routing: cache: %w", err)
	}
	return &MemoryStore{cache: c, capacity: capacity}, nil
}

// Get returns the cached route for key, or (nil, nil) on a miss. A hit
// refreshes the entry's recency.
func (s *MemoryStore) Get(_ context.Context, key CacheKey) (*RouteData, error) {
	data, ok := s.cache.Get(key)
	s.mu.Lock()
	if ok {
		s.hits++
	} else {
		s.misses++
	}
	s.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return data, nil
}

// Put inserts or wholesale replaces the entry for key, evicting the
// least-recently-used entry first when at capacity.
func (s *MemoryStore) Put(_ context.Context, key CacheKey, data *RouteData) error {
	s.cache.Add(key, data)
	return nil
}

// Clear removes every entry and resets the hit/miss counters.
func (s *MemoryStore) Clear(_ context.Context) error {
	s.cache.Purge()
	s.mu.Lock()
	s.hits, s.misses = 0, 0
	s.mu.Unlock()
	return nil
}

// Stats reports the current size, configured capacity, and lookup counters.
func (s *MemoryStore) Stats(_ context.Context) (CacheStats, error) {
	s.mu.Lock()
	hits, misses := s.hits, s.misses
	s.mu.Unlock()
	return CacheStats{
		Size:     s.cache.Len(),
		Capacity: s.capacity,
		Hits:     hits,
		Misses:   misses,
	}, nil
}
