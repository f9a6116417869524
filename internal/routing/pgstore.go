package routing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	// pgCacheTTL is how long a persisted route entry remains valid. Routes
	// between fixed geographic points change only when the underlying road
	// network does, so the TTL is generous; it exists to bound table growth,
	// not to chase freshness.
	pgCacheTTL = 7 * 24 * time.Hour

	// pgCacheQueryTimeout is the deadline for each cache read/write query.
	pgCacheQueryTimeout = 5 * time.Second
)

// PgStore is the swappable persistent Store backed by pgx. It lets multiple
// service instances share one route cache and survive restarts; single-node
// deployments use MemoryStore instead.
type PgStore struct {
	pool *pgxpool.Pool

	mu     sync.Mutex
	hits   uint64
	misses uint64
}

// NewPgStore creates a Store backed by the given connection pool.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// EnsureSchema creates the route_cache table when it does not exist yet.
// Called once at startup, before the store serves traffic.
func (s *PgStore) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pgCacheQueryTimeout)
	defer cancel()

	const q = `
		CREATE TABLE IF NOT EXISTS route_cache (
			cache_key    TEXT PRIMARY KEY,
			duration_min INTEGER          NOT NULL,
			distance_m   DOUBLE PRECISION NOT NULL,
			geometry     JSONB            NOT NULL,
			calc_ts      TIMESTAMPTZ      NOT NULL,
			expires_at   TIMESTAMPTZ      NOT NULL
		)`

	if _, err := s.pool.Exec(ctx, q); err != nil {
		return fmt.Errorf("routing: pg cache: ensure schema: %w", err)
	}
	return nil
}

// Get queries route_cache for a valid (non-expired) entry.
// Returns (nil, nil) on a miss.
func (s *PgStore) Get(ctx context.Context, key CacheKey) (*RouteData, error) {
	ctx, cancel := context.WithTimeout(ctx, pgCacheQueryTimeout)
	defer cancel()

	const q = `
		SELECT duration_min, distance_m, geometry
		FROM route_cache
		WHERE cache_key  = $1
		  AND expires_at > NOW()`

	var data RouteData
	err := s.pool.QueryRow(ctx, q, string(key)).Scan(&data.DurationMinutes, &data.DistanceMeters, &data.Geometry)
	if errors.Is(err, pgx.ErrNoRows) {
		s.count(false)
		return nil, nil // cache miss
	}
	if err != nil {
		s.count(false)
		return nil, fmt.Errorf("routing: pg cache: get: %w", err)
	}

	s.count(true)
	return &data, nil
}

// Put upserts a route entry. The expiry is computed in Go from pgCacheTTL so
// the constant is the single source of truth.
func (s *PgStore) Put(ctx context.Context, key CacheKey, data *RouteData) error {
	ctx, cancel := context.WithTimeout(ctx, pgCacheQueryTimeout)
	defer cancel()

	expiresAt := time.Now().Add(pgCacheTTL)

	const q = `
		INSERT INTO route_cache
			(cache_key, duration_min, distance_m, geometry, calc_ts, expires_at)
		VALUES
			($1, $2, $3, $4, NOW(), $5)
		ON CONFLICT (cache_key)
		DO UPDATE SET
			duration_min = EXCLUDED.duration_min,
			distance_m   = EXCLUDED.distance_m,
			geometry     = EXCLUDED.geometry,
			calc_ts      = EXCLUDED.calc_ts,
			expires_at   = EXCLUDED.expires_at`

	_, err := s.pool.Exec(ctx, q,
		string(key),
		data.DurationMinutes,
		data.DistanceMeters,
		data.Geometry,
		expiresAt,
	)
	if err != nil {
		return fmt.Errorf("routing: pg cache: put: %w", err)
	}
	return nil
}

// Clear drops every cached entry and resets the lookup counters.
func (s *PgStore) Clear(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pgCacheQueryTimeout)
	defer cancel()

	if _, err := s.pool.Exec(ctx, `TRUNCATE route_cache`); err != nil {
		return fmt.Errorf("routing: pg cache: clear: %w", err)
	}

	s.mu.Lock()
	s.hits, s.misses = 0, 0
	s.mu.Unlock()
	return nil
}

// Stats reports the number of live entries. Capacity is 0: the persistent
// store is unbounded and relies on expiry instead of LRU eviction.
func (s *PgStore) Stats(ctx context.Context) (CacheStats, error) {
	ctx, cancel := context.WithTimeout(ctx, pgCacheQueryTimeout)
	defer cancel()

	var size int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM route_cache WHERE expires_at > NOW()`).Scan(&size)
	if err != nil {
		return CacheStats{}, fmt.Errorf("routing: pg cache: stats: %w", err)
	}

	s.mu.Lock()
	hits, misses := s.hits, s.misses
	s.mu.Unlock()
	return CacheStats{Size: size, Capacity: 0, Hits: hits, Misses: misses}, nil
}

// count records one lookup outcome. Hit/miss counters are process-local even
// for the shared persistent store; they describe this instance's traffic.
func (s *PgStore) count(hit bool) {
	s.mu.Lock()
	if hit {
		s.hits++
	} else {
		s.misses++
	}
	s.mu.Unlock()
}
