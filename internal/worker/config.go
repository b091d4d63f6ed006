// Package worker provides background job processing for RoadStop.
package worker

import (
	"cmp"
	"slices"
	"time"
)

// Corridor is a frequently planned origin/destination pair whose geocoding
// and route lookups are kept warm.
type Corridor struct {
	// Name is the human-readable name of the corridor.
	Name string

	// Origin and Destination are free-text locations, as a traveller would type them.
	Origin      string
	Destination string

	// Priority determines warm-up order (lower = higher priority).
	Priority int
}

// WarmConfig holds configuration for the route warm-up job.
type WarmConfig struct {
	// Corridors are the routes to warm.
	// If empty, uses DefaultCorridors.
	Corridors []Corridor

	// Concurrency is the number of corridors warmed in parallel.
	// Default: 3
	Concurrency int

	// Timeout is the timeout for each corridor.
	// Default: 30 seconds
	Timeout time.Duration
}

// DefaultWarmConfig returns the default warm-up configuration.
func DefaultWarmConfig() WarmConfig {
	return WarmConfig{
		Corridors:   DefaultCorridors(),
		Concurrency: 3,
		Timeout:     30 * time.Second,
	}
}

// DefaultCorridors returns popular US road-trip corridors, led by the
// default trip.
func DefaultCorridors() []Corridor {
	return []Corridor{
		{Name: "Coast to coast", Origin: "New York, NY, USA", Destination: "Los Angeles, CA, USA", Priority: 1},
		{Name: "Route 66", Origin: "Chicago, IL, USA", Destination: "Santa Monica, CA, USA", Priority: 1},
		{Name: "Pacific Coast", Origin: "Seattle, WA, USA", Destination: "San Diego, CA, USA", Priority: 2},
		{Name: "I-95 South", Origin: "Boston, MA, USA", Destination: "Miami, FL, USA", Priority: 2},
		{Name: "I-10 Gulf", Origin: "Houston, TX, USA", Destination: "New Orleans, LA, USA", Priority: 3},
		{Name: "Rockies", Origin: "Denver, CO, USA", Destination: "Salt Lake City, UT, USA", Priority: 3},
		{Name: "Desert Southwest", Origin: "Las Vegas, NV, USA", Destination: "Phoenix, AZ, USA", Priority: 3},
	}
}

// Ordered returns the corridors sorted by priority, keeping the configured
// order within a priority.
func (c WarmConfig) Ordered() []Corridor {
	out := slices.Clone(c.Corridors)
	slices.SortStableFunc(out, func(a, b Corridor) int {
		return cmp.Compare(a.Priority, b.Priority)
	})
	return out
}

// TotalCorridors returns the number of corridors to warm.
func (c WarmConfig) TotalCorridors() int {
	return len(c.Corridors)
}
