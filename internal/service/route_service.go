// Package service contains the batch route orchestrator: the façade the HTTP
// layer consumes for single and batched route computation, cache
// introspection, and engine health.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/johannbuere/lakbai-routing-api/internal/routing"
)

// ErrRouteUnavailable is returned by GetRoute when the computation could not
// even be attempted (invalid coordinates). Individual profile absences are
// not errors; they are represented in the RouteResult itself.
var ErrRouteUnavailable = errors.New("route unavailable")

// defaultMaxInFlight bounds concurrent engine calls per batch so a large
// itinerary edit cannot overwhelm the OSRM instances.
const defaultMaxInFlight = 8

// singleRequestID is the synthetic segment ID GetRoute uses internally.
const singleRequestID = "_single"

// Logger is a printf-style logging function. Profile-level failures are
// absorbed into absent results for the caller, so the log is the only place
// they surface; nil means silent.
type Logger func(format string, args ...any)

// RouteService orchestrates batched multi-profile route computation over a
// routing Engine and a route cache Store. It is safe for concurrent use; the
// Store is the only shared mutable state and is internally synchronized.
type RouteService struct {
	engine      routing.Engine
	store       routing.Store
	maxInFlight int
	logger      Logger
}

// RouteServiceOption configures a RouteService.
type RouteServiceOption func(*RouteService)

// WithMaxInFlight caps the number of concurrent engine calls per batch.
// Values below 1 keep the default.
func WithMaxInFlight(n int) RouteServiceOption {
	return func(s *RouteService) {
		if n >= 1 {
			s.maxInFlight = n
		}
	}
}

// WithLogger sets the logger used for absorbed engine failures and failed
// cache writes. In production, pass a log.Printf-compatible function.
func WithLogger(l Logger) RouteServiceOption {
	return func(s *RouteService) { s.logger = l }
}

// NewRouteService creates a RouteService over the given engine and cache.
func NewRouteService(engine routing.Engine, store routing.Store, opts ...RouteServiceOption) *RouteService {
	s := &RouteService{
		engine:      engine,
		store:       store,
		maxInFlight: defaultMaxInFlight,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// GetRoute computes a single origin→destination route for the requested
// profiles. A profile the engine cannot route is simply absent from the
// result; GetRoute fails only when the attempt itself is impossible.
func (s *RouteService) GetRoute(ctx context.Context, from, to routing.Coordinate, profiles []routing.Profile) (*routing.RouteResult, error) {
	seg := routing.Segment{ID: singleRequestID, From: from, To: to}
	if err := seg.Validate(); err != nil {
		return nil, fmt.Errorf("service: GetRoute: %w: %w", ErrRouteUnavailable, err)
	}

	results, err := s.ComputeBatch(ctx, []routing.Segment{seg}, profiles)
	if err != nil {
		return nil, fmt.Errorf("service: GetRoute: %w", err)
	}

	res, ok := results[singleRequestID]
	if !ok || res == nil {
		return nil, fmt.Errorf("service: GetRoute: missing result: %w", ErrRouteUnavailable)
	}
	return res, nil
}

// GetRoutesBatch computes routes for every segment and profile requested,
// returning a result per segment ID. Pass-through to ComputeBatch.
func (s *RouteService) GetRoutesBatch(ctx context.Context, segments []routing.Segment, profiles []routing.Profile) (map[string]*routing.RouteResult, error) {
	return s.ComputeBatch(ctx, segments, profiles)
}

// CacheInfo returns the route cache's introspection snapshot.
func (s *RouteService) CacheInfo(ctx context.Context) (routing.CacheStats, error) {
	return s.store.Stats(ctx)
}

// ClearCache removes every cached route.
func (s *RouteService) ClearCache(ctx context.Context) error {
	return s.store.Clear(ctx)
}

// EngineHealthy reports whether the routing engine is reachable.
func (s *RouteService) EngineHealthy(ctx context.Context) error {
	return s.engine.Ping(ctx)
}

// fetchJob is one unique (from, to, profile) computation a batch needs from
// the engine. Multiple segments sharing the same cache key share one job.
type fetchJob struct {
	key     routing.CacheKey
	from    routing.Coordinate
	to      routing.Coordinate
	profile routing.Profile
}

// ComputeBatch resolves every (segment, profile) pair through the cache or
// the engine and assembles a RouteResult per segment ID.
//
// Guarantees:
//   - An empty segment list yields an empty map, not an error.
//   - A segment with invalid coordinates carries the validation error in its
//     result entry; the rest of the batch proceeds.
//   - Identical (from, to) endpoints across segments trigger exactly one
//     engine call per profile; duplicates are served from that computation.
//   - Engine failures mark the profile absent and never fail the batch.
//   - Engine calls run on a context detached from ctx: when the caller
//     cancels, ComputeBatch stops waiting and returns ctx.Err(), while
//     in-flight calls finish and still populate the cache. Jobs not yet
//     started when cancellation hits are skipped.
func (s *RouteService) ComputeBatch(ctx context.Context, segments []routing.Segment, profiles []routing.Profile) (map[string]*routing.RouteResult, error) {
	results := make(map[string]*routing.RouteResult, len(segments))
	if len(segments) == 0 {
		return results, nil
	}

	profiles = normalizeProfiles(profiles)

	// Phase 1: validate segments and collect the unique work set. Invalid
	// segments are answered immediately and excluded from the fan-out.
	valid := segments[:0:0]
	for _, seg := range segments {
		if err := seg.Validate(); err != nil {
			res := &routing.RouteResult{Routes: map[routing.Profile]*routing.RouteData{}, Err: err}
			res.Finalize()
			results[seg.ID] = res
			continue
		}
		valid = append(valid, seg)
	}

	// Phase 2: cache lookups, deduplicated by fingerprint. hits holds every
	// key already resolved; jobs holds the misses to fetch.
	hits := make(map[routing.CacheKey]*routing.RouteData)
	var jobs []fetchJob
	seen := make(map[routing.CacheKey]bool)
	for _, seg := range valid {
		for _, p := range profiles {
			key := routing.Key(seg.From, seg.To, p)
			if seen[key] {
				continue
			}
			seen[key] = true

			data, err := s.store.Get(ctx, key)
			if err != nil {
				// A failing cache is a miss, not a batch failure.
				s.logf("service: batch: cache read failed for %s: %v", key, err)
			}
			if data != nil {
				hits[key] = data
				continue
			}
			jobs = append(jobs, fetchJob{key: key, from: seg.From, to: seg.To, profile: p})
		}
	}

	// Phase 3: bounded concurrent fan-out for the misses.
	fetched, err := s.fetchAll(ctx, jobs)
	if err != nil {
		return nil, fmt.Errorf("service: ComputeBatch: %w", err)
	}

	// Phase 4: assemble per-segment results.
	for _, seg := range valid {
		res := &routing.RouteResult{Routes: make(map[routing.Profile]*routing.RouteData, len(profiles))}
		for _, p := range profiles {
			key := routing.Key(seg.From, seg.To, p)
			if data := hits[key]; data != nil {
				res.Routes[p] = data
				continue
			}
			if data := fetched[key]; data != nil {
				res.Routes[p] = data
			}
		}
		res.Finalize()
		results[seg.ID] = res
	}

	return results, nil
}

// fetchAll runs the jobs through a bounded worker pool and returns the
// successful computations by key. Failed jobs are logged and omitted, which
// the assembly phase renders as absent profiles. Returns ctx.Err() when the
// caller cancels before every job settles.
func (s *RouteService) fetchAll(ctx context.Context, jobs []fetchJob) (map[routing.CacheKey]*routing.RouteData, error) {
	fetched := make(map[routing.CacheKey]*routing.RouteData, len(jobs))
	if len(jobs) == 0 {
		return fetched, nil
	}

	// Engine calls and cache writes run on a detached context so that a
	// caller-side cancellation does not waste work already in flight: the
	// result still lands in the cache for the next batch. The engine client's
	// own per-request timeout keeps detached calls bounded.
	detached := context.WithoutCancel(ctx)

	queue := make(chan fetchJob, len(jobs))
	for _, j := range jobs {
		queue <- j
	}
	close(queue)

	var mu sync.Mutex
	var wg sync.WaitGroup
	workers := s.maxInFlight
	if workers > len(jobs) {
		workers = len(jobs)
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range queue {
				// Don't start new engine calls once the caller has given up.
				if ctx.Err() != nil {
					continue
				}

				data, err := s.engine.FetchRoute(detached, job.from, job.to, job.profile)
				if err != nil {
					s.logf("service: batch: %s route %v→%v: %v", job.profile, job.from, job.to, err)
					continue
				}

				// Write back before attaching the result so a concurrent
				// duplicate request can observe the hit mid-batch.
				if err := s.store.Put(detached, job.key, data); err != nil {
					s.logf("service: batch: cache write failed for %s: %v", job.key, err)
				}

				mu.Lock()
				fetched[job.key] = data
				mu.Unlock()
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		// Stop waiting; workers drain on the detached context and feed the
		// cache for future batches.
		return nil, ctx.Err()
	}
	return fetched, nil
}

// normalizeProfiles defaults an empty request to every profile and drops
// duplicates while preserving order.
func normalizeProfiles(profiles []routing.Profile) []routing.Profile {
	if len(profiles) == 0 {
		return routing.AllProfiles
	}
	seen := make(map[routing.Profile]bool, len(profiles))
	out := profiles[:0:0]
	for _, p := range profiles {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// logf calls the configured logger, if any.
func (s *RouteService) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger(format, args...)
	}
}
