package places

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/roadstop/roadstop/internal/geo"
	"github.com/roadstop/roadstop/internal/provider"
)

// ServiceConfig holds configuration for the caching place service.
type ServiceConfig struct {
	Provider Provider
	Logger   zerolog.Logger

	// NearbyTTL is how long nearby results are reused (default: 1 hour).
	NearbyTTL time.Duration

	// DetailTTL is how long place details are reused (default: 24 hours).
	DetailTTL time.Duration

	// CacheGridSize quantizes search centers in degrees (default: 0.005 ~ 550m).
	CacheGridSize float64

	// Metrics records cache hits and provider calls (optional).
	Metrics provider.Recorder
}

// Service caches a Provider. It satisfies Provider itself.
type Service struct {
	provider  Provider
	logger    zerolog.Logger
	nearbyTTL time.Duration
	detailTTL time.Duration
	gridSize  float64
	metrics   provider.Recorder

	mu      sync.RWMutex
	nearby  map[string]nearbyEntry
	details map[string]detailEntry
}

type nearbyEntry struct {
	refs      []CandidateRef
	expiresAt time.Time
}

type detailEntry struct {
	detail    *PlaceDetail
	expiresAt time.Time
}

// NewService creates a caching place service.
func NewService(cfg ServiceConfig) *Service {
	nearbyTTL := cfg.NearbyTTL
	if nearbyTTL == 0 {
		nearbyTTL = time.Hour
	}
	detailTTL := cfg.DetailTTL
	if detailTTL == 0 {
		detailTTL = 24 * time.Hour
	}
	grid := cfg.CacheGridSize
	if grid == 0 {
		grid = 0.005
	}

	return &Service{
		provider:  cfg.Provider,
		logger:    cfg.Logger,
		nearbyTTL: nearbyTTL,
		detailTTL: detailTTL,
		gridSize:  grid,
		metrics:   provider.OrNop(cfg.Metrics),
		nearby:    make(map[string]nearbyEntry),
		details:   make(map[string]detailEntry),
	}
}

// Name returns the underlying provider name.
func (s *Service) Name() string {
	return s.provider.Name()
}

// Nearby returns cached results for the same grid cell, category, radius and limit.
func (s *Service) Nearby(ctx context.Context, location geo.Coordinate, category Category, radiusMeters float64, limit int) ([]CandidateRef, error) {
	key := fmt.Sprintf("%s:%.0f:%d:%.3f,%.3f", category, radiusMeters, limit,
		math.Floor(location.Lat/s.gridSize)*s.gridSize,
		math.Floor(location.Lng/s.gridSize)*s.gridSize)

	s.mu.RLock()
	e, ok := s.nearby[key]
	s.mu.RUnlock()
	if ok && time.Now().Before(e.expiresAt) {
		s.metrics.RecordCacheHit(s.provider.Name(), "nearby")
		return e.refs, nil
	}
	s.metrics.RecordCacheMiss(s.provider.Name(), "nearby")

	start := time.Now()
	refs, err := s.provider.Nearby(ctx, location, category, radiusMeters, limit)
	s.metrics.RecordRequest(s.provider.Name(), "nearby", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.nearby[key] = nearbyEntry{refs: refs, expiresAt: time.Now().Add(s.nearbyTTL)}
	s.mu.Unlock()

	return refs, nil
}

// Detail returns a cached detail by place ID when fresh.
func (s *Service) Detail(ctx context.Context, ref CandidateRef) (*PlaceDetail, error) {
	s.mu.RLock()
	e, ok := s.details[ref.PlaceID]
	s.mu.RUnlock()
	if ok && time.Now().Before(e.expiresAt) {
		s.metrics.RecordCacheHit(s.provider.Name(), "detail")
		return e.detail, nil
	}
	s.metrics.RecordCacheMiss(s.provider.Name(), "detail")

	start := time.Now()
	d, err := s.provider.Detail(ctx, ref)
	s.metrics.RecordRequest(s.provider.Name(), "detail", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.details[ref.PlaceID] = detailEntry{detail: d, expiresAt: time.Now().Add(s.detailTTL)}
	s.mu.Unlock()

	return d, nil
}

// Purge drops expired entries and reports how many were removed.
func (s *Service) Purge() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	removed := 0
	for k, e := range s.nearby {
		if now.After(e.expiresAt) {
			delete(s.nearby, k)
			removed++
		}
	}
	for k, e := range s.details {
		if now.After(e.expiresAt) {
			delete(s.details, k)
			removed++
		}
	}
	if removed > 0 {
		s.logger.Debug().Int("expired_entries", removed).Msg("purged place cache")
	}
	return removed
}
