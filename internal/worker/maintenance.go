package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Evictor drops idle entries older than maxIdle.
type Evictor interface {
	Evict(maxIdle time.Duration) int
}

// Purger drops expired cache entries.
type Purger interface {
	Purge() int
}

// MaintenanceConfig configures a Maintenance loop.
type MaintenanceConfig struct {
	// Trips evicts abandoned trips.
	Trips Evictor

	// MaxTripIdle is how long an untouched trip is kept (default: 6 hours).
	MaxTripIdle time.Duration

	// Caches are purged of expired entries on every run.
	Caches map[string]Purger

	Logger zerolog.Logger
}

// Maintenance evicts idle trips and purges expired cache entries inside the
// API process.
type Maintenance struct {
	trips   Evictor
	maxIdle time.Duration
	caches  map[string]Purger
	logger  zerolog.Logger
}

// NewMaintenance creates a maintenance loop.
func NewMaintenance(cfg MaintenanceConfig) *Maintenance {
	maxIdle := cfg.MaxTripIdle
	if maxIdle <= 0 {
		maxIdle = 6 * time.Hour
	}
	return &Maintenance{
		trips:   cfg.Trips,
		maxIdle: maxIdle,
		caches:  cfg.Caches,
		logger:  cfg.Logger,
	}
}

// MaintenanceResult reports what one run removed.
type MaintenanceResult struct {
	TripsEvicted  int
	EntriesPurged map[string]int
}

// RunOnce performs a single sweep.
func (m *Maintenance) RunOnce() MaintenanceResult {
	result := MaintenanceResult{EntriesPurged: make(map[string]int, len(m.caches))}
	if m.trips != nil {
		result.TripsEvicted = m.trips.Evict(m.maxIdle)
	}
	for name, c := range m.caches {
		result.EntriesPurged[name] = c.Purge()
	}

	m.logger.Debug().
		Int("trips_evicted", result.TripsEvicted).
		Interface("entries_purged", result.EntriesPurged).
		Msg("maintenance sweep completed")
	return result
}

// Run sweeps every interval until ctx is cancelled.
func (m *Maintenance) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.RunOnce()
		}
	}
}
