package geocoding

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/roadstop/roadstop/internal/geo"
	"github.com/roadstop/roadstop/internal/provider"
)

// ServiceConfig holds configuration for the geocoding service.
type ServiceConfig struct {
	Provider Provider
	Logger   zerolog.Logger

	// CacheTTL is how long a resolved location is reused (default: 24 hours).
	CacheTTL time.Duration

	// MaxEntries bounds the cache; the oldest entry is evicted first (default: 10000).
	MaxEntries int

	// Metrics records cache hits and provider calls (optional).
	Metrics provider.Recorder
}

// Service resolves place text with an in-memory cache in front of the provider.
type Service struct {
	provider   Provider
	logger     zerolog.Logger
	cacheTTL   time.Duration
	maxEntries int
	metrics    provider.Recorder

	mu    sync.RWMutex
	cache map[string]cachedResult
}

type cachedResult struct {
	result    *Result
	expiresAt time.Time
}

// NewService creates a new geocoding service.
func NewService(cfg ServiceConfig) *Service {
	ttl := cfg.CacheTTL
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	maxEntries := cfg.MaxEntries
	if maxEntries == 0 {
		maxEntries = 10000
	}

	return &Service{
		provider:   cfg.Provider,
		logger:     cfg.Logger,
		cacheTTL:   ttl,
		maxEntries: maxEntries,
		metrics:    provider.OrNop(cfg.Metrics),
		cache:      make(map[string]cachedResult),
	}
}

// Geocode resolves text to a location. Text of the form "lat,lng" is parsed
// directly without calling the provider.
func (s *Service) Geocode(ctx context.Context, text string) (*Result, error) {
	key := Normalize(text)
	if key == "" {
		return nil, ErrEmptyQuery
	}

	if c, ok := ParseLatLng(key); ok {
		return &Result{Location: c, Label: key, Provider: "literal", FoundAt: time.Now()}, nil
	}

	s.mu.RLock()
	cached, ok := s.cache[key]
	s.mu.RUnlock()
	if ok && time.Now().Before(cached.expiresAt) {
		s.logger.Debug().Str("query", key).Msg("geocode cache hit")
		s.metrics.RecordCacheHit(s.provider.Name(), "geocode")
		return cached.result, nil
	}
	s.metrics.RecordCacheMiss(s.provider.Name(), "geocode")

	start := time.Now()
	res, err := s.provider.Geocode(ctx, key)
	s.metrics.RecordRequest(s.provider.Name(), "geocode", time.Since(start), err)
	if err != nil {
		s.logger.Error().Err(err).
			Str("query", key).
			Str("provider", s.provider.Name()).
			Dur("duration", time.Since(start)).
			Msg("geocode failed")
		return nil, fmt.Errorf("geocode %q: %w", text, err)
	}

	s.logger.Debug().
		Str("query", key).
		Float64("lat", res.Location.Lat).
		Float64("lng", res.Location.Lng).
		Dur("duration", time.Since(start)).
		Msg("geocoded location")

	s.store(key, res)
	return res, nil
}

func (s *Service) store(key string, res *Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.cache) >= s.maxEntries {
		var (
			oldestKey string
			oldest    time.Time
		)
		for k, v := range s.cache {
			if oldestKey == "" || v.expiresAt.Before(oldest) {
				oldestKey, oldest = k, v.expiresAt
			}
		}
		delete(s.cache, oldestKey)
	}

	s.cache[key] = cachedResult{result: res, expiresAt: time.Now().Add(s.cacheTTL)}
}

// CacheSize returns the number of cached queries.
func (s *Service) CacheSize() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cache)
}

// ProviderName returns the name of the underlying provider.
func (s *Service) ProviderName() string {
	return s.provider.Name()
}

// Normalize trims, lowercases and collapses internal whitespace so that
// equivalent queries share a cache entry.
func Normalize(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}

// ParseLatLng parses "lat,lng" (optional spaces) into a valid coordinate.
func ParseLatLng(text string) (geo.Coordinate, bool) {
	parts := strings.Split(text, ",")
	if len(parts) != 2 {
		return geo.Coordinate{}, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return geo.Coordinate{}, false
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return geo.Coordinate{}, false
	}
	c := geo.Coordinate{Lat: lat, Lng: lng}
	if c.Validate() != nil {
		return geo.Coordinate{}, false
	}
	return c, true
}
