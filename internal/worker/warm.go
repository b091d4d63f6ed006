package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/roadstop/roadstop/internal/routing"
	"github.com/roadstop/roadstop/internal/trip"
)

// Warm-up stages reported in WarmError.
const (
	StageGeocode = "geocode"
	StageRoute   = "route"
)

// WarmJob fills the geocoding and routing caches for popular corridors so
// that the first trip planned along them is fast.
type WarmJob struct {
	config   WarmConfig
	logger   zerolog.Logger
	geocoder trip.Geocoder
	router   trip.Router

	metrics *WarmMetrics
}

// WarmMetrics tracks warm-up job statistics.
type WarmMetrics struct {
	mu sync.RWMutex

	TotalRuns        int64
	CorridorsWarmed  int64
	CorridorsFailed  int64
	LastRunAt        time.Time
	LastRunDuration  time.Duration
	TotalRunDuration time.Duration
}

// WarmJobConfig holds configuration for creating a WarmJob.
type WarmJobConfig struct {
	Config   WarmConfig
	Logger   zerolog.Logger
	Geocoder trip.Geocoder
	Router   trip.Router
}

// NewWarmJob creates a new warm-up job.
func NewWarmJob(cfg WarmJobConfig) *WarmJob {
	config := cfg.Config
	if len(config.Corridors) == 0 {
		config.Corridors = DefaultCorridors()
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 3
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	return &WarmJob{
		config:   config,
		logger:   cfg.Logger,
		geocoder: cfg.Geocoder,
		router:   cfg.Router,
		metrics:  &WarmMetrics{},
	}
}

// WarmResult contains the result of a warm-up run.
type WarmResult struct {
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
	TotalCorridors int
	Successful     int
	Failed         int
	Errors         []WarmError
}

// WarmError describes one corridor that could not be warmed.
type WarmError struct {
	Corridor string
	Stage    string
	Error    string
}

// Run warms every configured corridor with a bounded pool of workers.
func (j *WarmJob) Run(ctx context.Context) *WarmResult {
	startTime := time.Now()
	corridors := j.config.Ordered()
	result := &WarmResult{
		StartTime:      startTime,
		TotalCorridors: len(corridors),
	}

	j.logger.Info().
		Int("total_corridors", result.TotalCorridors).
		Int("concurrency", j.config.Concurrency).
		Msg("starting route warm-up job")

	work := make(chan Corridor, len(corridors))
	results := make(chan *WarmError, len(corridors))

	var wg sync.WaitGroup
	for i := 0; i < j.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.warmWorker(ctx, work, results)
		}()
	}

	for _, c := range corridors {
		work <- c
	}
	close(work)

	go func() {
		wg.Wait()
		close(results)
	}()

	for werr := range results {
		if werr == nil {
			result.Successful++
			continue
		}
		result.Failed++
		result.Errors = append(result.Errors, *werr)
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)
	j.updateMetrics(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Msg("route warm-up job completed")

	return result
}

func (j *WarmJob) warmWorker(ctx context.Context, corridors <-chan Corridor, results chan<- *WarmError) {
	for c := range corridors {
		if ctx.Err() != nil {
			results <- &WarmError{Corridor: c.Name, Stage: StageGeocode, Error: ctx.Err().Error()}
			continue
		}
		results <- j.warmCorridor(ctx, c)
	}
}

// warmCorridor geocodes both ends and fetches the direct route. A nil return
// means the corridor is warm.
func (j *WarmJob) warmCorridor(ctx context.Context, c Corridor) *WarmError {
	ctx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	logger := j.logger.With().Str("corridor", c.Name).Logger()

	if j.geocoder == nil {
		return &WarmError{Corridor: c.Name, Stage: StageGeocode, Error: "no geocoder configured"}
	}
	origin, err := j.geocoder.Geocode(ctx, c.Origin)
	if err != nil {
		logger.Warn().Err(err).Str("location", c.Origin).Msg("failed to warm geocode")
		return &WarmError{Corridor: c.Name, Stage: StageGeocode, Error: err.Error()}
	}
	destination, err := j.geocoder.Geocode(ctx, c.Destination)
	if err != nil {
		logger.Warn().Err(err).Str("location", c.Destination).Msg("failed to warm geocode")
		return &WarmError{Corridor: c.Name, Stage: StageGeocode, Error: err.Error()}
	}

	if j.router == nil {
		return &WarmError{Corridor: c.Name, Stage: StageRoute, Error: "no router configured"}
	}
	route, err := j.router.GetDirections(ctx, routing.DirectionsRequest{
		Origin:      origin.Location,
		Destination: destination.Location,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("failed to warm route")
		return &WarmError{Corridor: c.Name, Stage: StageRoute, Error: fmt.Sprintf("%s to %s: %v", c.Origin, c.Destination, err)}
	}

	logger.Debug().
		Float64("distance_meters", route.TotalDistance()).
		Str("provider", route.Provider).
		Msg("corridor warmed")
	return nil
}

func (j *WarmJob) updateMetrics(result *WarmResult) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalRuns++
	j.metrics.CorridorsWarmed += int64(result.Successful)
	j.metrics.CorridorsFailed += int64(result.Failed)
	j.metrics.LastRunAt = result.EndTime
	j.metrics.LastRunDuration = result.Duration
	j.metrics.TotalRunDuration += result.Duration
}

// GetMetrics returns a copy of the current metrics.
func (j *WarmJob) GetMetrics() WarmMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return WarmMetrics{
		TotalRuns:        j.metrics.TotalRuns,
		CorridorsWarmed:  j.metrics.CorridorsWarmed,
		CorridorsFailed:  j.metrics.CorridorsFailed,
		LastRunAt:        j.metrics.LastRunAt,
		LastRunDuration:  j.metrics.LastRunDuration,
		TotalRunDuration: j.metrics.TotalRunDuration,
	}
}

// MetricsSnapshot returns a snapshot of the current metrics as a map.
func (j *WarmJob) MetricsSnapshot() map[string]interface{} {
	m := j.GetMetrics()
	return map[string]interface{}{
		"total_runs":         m.TotalRuns,
		"corridors_warmed":   m.CorridorsWarmed,
		"corridors_failed":   m.CorridorsFailed,
		"last_run_at":        m.LastRunAt,
		"last_run_duration":  m.LastRunDuration.String(),
		"total_run_duration": m.TotalRunDuration.String(),
	}
}
