package routing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/roadstop/roadstop/internal/geo"
	"github.com/roadstop/roadstop/internal/provider"
)

// ServiceConfig holds configuration for the routing service.
type ServiceConfig struct {
	// Provider is the routing data provider.
	Provider Provider

	// Logger for service operations.
	Logger zerolog.Logger

	// CacheTTL is how long to cache routes (default: 30 minutes).
	CacheTTL time.Duration

	// CacheGridSize is the size of cache grid cells in degrees (default: 0.001 ~ 110m).
	// Waypoints within the same grid cell share cached routes.
	CacheGridSize float64

	// StaleIfErrorTTL allows serving stale routes on provider errors (default: 2 hours).
	StaleIfErrorTTL time.Duration

	// CleanupInterval is how often to clean up expired entries (default: 5 minutes).
	CleanupInterval time.Duration

	// Metrics records cache hits and provider calls (optional).
	Metrics provider.Recorder
}

// Service provides routes with caching.
type Service struct {
	provider        Provider
	logger          zerolog.Logger
	cacheTTL        time.Duration
	cacheGridSize   float64
	staleIfErrorTTL time.Duration
	cleanupInterval time.Duration
	metrics         provider.Recorder

	// mu guards cache and lastCleanup only; it is never held across a
	// provider call. inflight collapses concurrent misses for the same key.
	mu          sync.RWMutex
	cache       map[string]*cachedRoute
	lastCleanup time.Time
	inflight    singleflight.Group
}

type cachedRoute struct {
	route     *Route
	fetchedAt time.Time
	expiresAt time.Time
}

// NewService creates a new routing service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 30 * time.Minute
	}

	cacheGridSize := cfg.CacheGridSize
	if cacheGridSize == 0 {
		cacheGridSize = 0.001
	}

	staleIfErrorTTL := cfg.StaleIfErrorTTL
	if staleIfErrorTTL == 0 {
		staleIfErrorTTL = 2 * time.Hour
	}

	cleanupInterval := cfg.CleanupInterval
	if cleanupInterval == 0 {
		cleanupInterval = 5 * time.Minute
	}

	return &Service{
		provider:        cfg.Provider,
		logger:          cfg.Logger,
		cacheTTL:        cacheTTL,
		cacheGridSize:   cacheGridSize,
		staleIfErrorTTL: staleIfErrorTTL,
		cleanupInterval: cleanupInterval,
		metrics:         provider.OrNop(cfg.Metrics),
		cache:           make(map[string]*cachedRoute),
	}
}

// GetDirections returns a route from origin through the waypoints to destination.
// Uses cached data if available and not expired. Every error it returns
// satisfies errors.Is(err, ErrRouteUnavailable).
func (s *Service) GetDirections(ctx context.Context, req DirectionsRequest) (*Route, error) {
	if err := req.Origin.Validate(); err != nil {
		return nil, s.invalid("INVALID_ORIGIN", "invalid origin coordinates")
	}
	if err := req.Destination.Validate(); err != nil {
		return nil, s.invalid("INVALID_DESTINATION", "invalid destination coordinates")
	}
	for i, wp := range req.Waypoints {
		if err := wp.Validate(); err != nil {
			return nil, s.invalid("INVALID_WAYPOINT", fmt.Sprintf("invalid waypoint %d coordinates", i))
		}
	}

	cacheKey := s.cacheKey(req)

	if cached, ok := s.freshEntry(cacheKey); ok {
		s.logger.Debug().
			Str("cache_key", cacheKey).
			Msg("cache hit for directions")
		s.metrics.RecordCacheHit(s.provider.Name(), "directions")
		return cached.route, nil
	}

	return s.fetchDirections(ctx, req, cacheKey)
}

func (s *Service) invalid(code, msg string) error {
	return &Error{
		Provider: s.provider.Name(),
		Code:     code,
		Message:  msg,
		Err:      ErrInvalidCoordinates,
	}
}

// fetchDirections joins or starts the provider fetch for cacheKey. The fetch
// is shared by every caller waiting on the key, so it runs detached from any
// one caller's cancellation; each caller still returns as soon as its own
// context is done.
func (s *Service) fetchDirections(ctx context.Context, req DirectionsRequest, cacheKey string) (*Route, error) {
	ch := s.inflight.DoChan(cacheKey, func() (interface{}, error) {
		return s.fetchAndStore(context.WithoutCancel(ctx), req, cacheKey)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Route), nil
	case <-ctx.Done():
		return nil, &Error{
			Provider: s.provider.Name(),
			Code:     "CANCELLED",
			Message:  "routing request cancelled",
			Err:      ctx.Err(),
		}
	}
}

// fetchAndStore calls the provider and updates the cache.
func (s *Service) fetchAndStore(ctx context.Context, req DirectionsRequest, cacheKey string) (*Route, error) {
	// A fetch for this key may have completed between the caller's cache
	// check and joining the flight.
	if cached, ok := s.freshEntry(cacheKey); ok {
		s.logger.Debug().
			Str("cache_key", cacheKey).
			Msg("cache hit after double-check")
		s.metrics.RecordCacheHit(s.provider.Name(), "directions")
		return cached.route, nil
	}
	s.metrics.RecordCacheMiss(s.provider.Name(), "directions")

	s.logger.Debug().
		Float64("origin_lat", req.Origin.Lat).
		Float64("origin_lng", req.Origin.Lng).
		Float64("dest_lat", req.Destination.Lat).
		Float64("dest_lng", req.Destination.Lng).
		Int("waypoints", len(req.Waypoints)).
		Str("provider", s.provider.Name()).
		Msg("fetching directions from provider")

	start := time.Now()
	route, err := s.provider.GetDirections(ctx, req)
	s.metrics.RecordRequest(s.provider.Name(), "directions", time.Since(start), err)
	if err != nil {
		s.logger.Error().Err(err).
			Float64("origin_lat", req.Origin.Lat).
			Float64("origin_lng", req.Origin.Lng).
			Float64("dest_lat", req.Destination.Lat).
			Float64("dest_lng", req.Destination.Lng).
			Int("waypoints", len(req.Waypoints)).
			Msg("failed to fetch directions")

		// Stale-if-error
		s.mu.RLock()
		cached, ok := s.cache[cacheKey]
		s.mu.RUnlock()
		if ok && time.Now().Before(cached.fetchedAt.Add(s.staleIfErrorTTL)) {
			s.logger.Warn().
				Time("fetched_at", cached.fetchedAt).
				Str("cache_key", cacheKey).
				Msg("serving stale route due to provider error")
			return cached.route, nil
		}

		var routeErr *Error
		if errors.As(err, &routeErr) {
			return nil, err
		}
		return nil, &Error{
			Provider: s.provider.Name(),
			Code:     "PROVIDER_ERROR",
			Message:  "routing request failed",
			Err:      err,
		}
	}

	if len(route.Legs) != len(req.Waypoints)+1 {
		s.logger.Warn().
			Int("legs", len(route.Legs)).
			Int("waypoints", len(req.Waypoints)).
			Msg("provider returned unexpected leg count")
	}

	now := time.Now()
	s.mu.Lock()
	s.cache[cacheKey] = &cachedRoute{
		route:     route,
		fetchedAt: now,
		expiresAt: now.Add(s.cacheTTL),
	}
	s.cleanupIfNeeded()
	s.mu.Unlock()

	s.logger.Debug().
		Str("cache_key", cacheKey).
		Int("leg_count", len(route.Legs)).
		Int("path_points", len(route.Path)).
		Msg("cached route")

	return route, nil
}

func (s *Service) freshEntry(cacheKey string) (*cachedRoute, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cached, ok := s.cache[cacheKey]
	if !ok || !time.Now().Before(cached.expiresAt) {
		return nil, false
	}
	return cached, true
}

// cacheKey generates a cache key for a routing request.
// Every point is quantized to the cache grid; waypoint order is significant.
// Format: {origin}|{wp1}|...|{destination}, each point as {lat},{lng}.
func (s *Service) cacheKey(req DirectionsRequest) string {
	points := make([]string, 0, len(req.Waypoints)+2)
	points = append(points, s.gridCell(req.Origin))
	for _, wp := range req.Waypoints {
		points = append(points, s.gridCell(wp))
	}
	points = append(points, s.gridCell(req.Destination))
	return strings.Join(points, "|")
}

func (s *Service) gridCell(c geo.Coordinate) string {
	lat := math.Floor(c.Lat/s.cacheGridSize) * s.cacheGridSize
	lng := math.Floor(c.Lng/s.cacheGridSize) * s.cacheGridSize
	return fmt.Sprintf("%.3f,%.3f", lat, lng)
}

// cleanupIfNeeded removes expired entries if cleanup interval has passed.
// Callers hold s.mu.
func (s *Service) cleanupIfNeeded() {
	now := time.Now()
	if now.Sub(s.lastCleanup) < s.cleanupInterval {
		return
	}

	s.lastCleanup = now
	expired := 0

	for key, cached := range s.cache {
		if now.After(cached.fetchedAt.Add(s.staleIfErrorTTL)) {
			delete(s.cache, key)
			expired++
		}
	}

	if expired > 0 {
		s.logger.Debug().
			Int("expired_entries", expired).
			Msg("cleaned up expired routing cache entries")
	}
}

// InvalidateCache clears all cached data.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]*cachedRoute)
}

// CacheStats returns cache statistics.
func (s *Service) CacheStats() CacheStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	fresh := 0
	stale := 0

	for _, c := range s.cache {
		if now.Before(c.expiresAt) {
			fresh++
		} else if now.Before(c.fetchedAt.Add(s.staleIfErrorTTL)) {
			stale++
		}
	}

	return CacheStats{
		TotalEntries: len(s.cache),
		FreshEntries: fresh,
		StaleEntries: stale,
		Provider:     s.provider.Name(),
	}
}

// CacheStats contains cache statistics.
type CacheStats struct {
	TotalEntries int
	FreshEntries int
	StaleEntries int
	Provider     string
}

// ProviderName returns the name of the underlying provider.
func (s *Service) ProviderName() string {
	return s.provider.Name()
}
