// Package routing provides driving directions through an ordered list of waypoints.
package routing

import (
	"context"
	"errors"
	"time"

	"github.com/roadstop/roadstop/internal/geo"
)

// ErrRouteUnavailable is the umbrella error for any failure to produce a route.
// Every *Error satisfies errors.Is(err, ErrRouteUnavailable).
var ErrRouteUnavailable = errors.New("route unavailable")

// Sentinel errors for routing operations.
var (
	// ErrProviderUnavailable indicates the routing provider is down or the circuit breaker is open.
	ErrProviderUnavailable = errors.New("routing provider unavailable")
	// ErrNoRouteFound indicates no drivable route exists between the given points.
	ErrNoRouteFound = errors.New("no route found between the given points")
	// ErrRateLimitExceeded indicates the API quota has been exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	// ErrInvalidCoordinates indicates the provided coordinates are invalid or out of range.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
)

// Provider defines the interface for routing providers.
type Provider interface {
	// GetDirections computes a single driving route from origin through the
	// waypoints, in the given order, to destination.
	GetDirections(ctx context.Context, req DirectionsRequest) (*Route, error)
	// Name returns the provider identifier for logging and metrics.
	Name() string
}

// DirectionsRequest is the request for computing a route.
type DirectionsRequest struct {
	Origin      geo.Coordinate
	Destination geo.Coordinate
	Waypoints   []geo.Coordinate // Visited in order; never reordered by the provider
}

// Leg is one routed segment between two consecutive waypoints.
// Zero distance or duration means the provider omitted the value.
type Leg struct {
	DistanceMeters  float64
	DurationSeconds float64
	StartLocation   geo.Coordinate
	EndLocation     geo.Coordinate
}

// Route is a computed route: legs in waypoint order plus the overall path.
type Route struct {
	Legs             []Leg
	Path             []geo.Coordinate
	GeometryPolyline string // Encoded polyline (precision 5)
	Summary          string
	Bounds           *geo.BoundingBox
	Provider         string
	FetchedAt        time.Time
}

// TotalDistance returns the sum of leg distances in meters.
func (r *Route) TotalDistance() float64 {
	if r == nil {
		return 0
	}
	var total float64
	for _, leg := range r.Legs {
		total += leg.DistanceMeters
	}
	return total
}

// TotalDuration returns the sum of leg durations in seconds.
func (r *Route) TotalDuration() float64 {
	if r == nil {
		return 0
	}
	var total float64
	for _, leg := range r.Legs {
		total += leg.DurationSeconds
	}
	return total
}

// Error provides detailed error information from the routing provider.
type Error struct {
	Provider string // Provider that generated the error
	Code     string // Error code from the provider
	Message  string // Human-readable error message
	Err      error  // Underlying error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports every routing error as ErrRouteUnavailable.
func (e *Error) Is(target error) bool {
	return target == ErrRouteUnavailable
}

// IsRetryable returns true if the error is transient and the request can be retried.
func (e *Error) IsRetryable() bool {
	return errors.Is(e.Err, ErrProviderUnavailable) || errors.Is(e.Err, ErrRateLimitExceeded)
}
