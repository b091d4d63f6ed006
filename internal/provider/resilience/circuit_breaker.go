// Package resilience provides resilient HTTP client wrappers with circuit breakers,
// timeouts, and retry logic for external provider calls.
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Trip thresholds applied when a CircuitBreakerConfig leaves them zero.
const (
	DefaultMinRequests  uint32  = 5
	DefaultFailureRatio float64 = 0.5
)

// CircuitBreakerConfig holds configuration for a provider's circuit breaker.
type CircuitBreakerConfig struct {
	// Name is the provider name, as reported by Registry.Status.
	Name string

	// MaxRequests is the number of trial calls allowed while half-open.
	MaxRequests uint32

	// Interval clears the closed-state counts periodically. Zero keeps them
	// until the next state change.
	Interval time.Duration

	// Timeout is how long the breaker stays open before going half-open.
	Timeout time.Duration

	// MinRequests and FailureRatio drive the default trip decision: the
	// breaker opens once at least MinRequests calls were made and the failed
	// share reaches FailureRatio.
	MinRequests  uint32
	FailureRatio float64

	// ReadyToTrip overrides the MinRequests/FailureRatio rule.
	ReadyToTrip func(counts gobreaker.Counts) bool

	// OnStateChange is called when the circuit breaker state changes.
	OnStateChange func(name string, from gobreaker.State, to gobreaker.State)
}

// DefaultCircuitBreakerConfig returns the configuration shared by the routing,
// geocoding and places clients.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Timeout:      60 * time.Second,
		MinRequests:  DefaultMinRequests,
		FailureRatio: DefaultFailureRatio,
		ReadyToTrip:  DefaultReadyToTrip,
	}
}

// DefaultReadyToTrip trips after DefaultMinRequests calls with at least
// DefaultFailureRatio of them failing.
func DefaultReadyToTrip(counts gobreaker.Counts) bool {
	return ratioTrip(DefaultMinRequests, DefaultFailureRatio)(counts)
}

func ratioTrip(minRequests uint32, ratio float64) func(gobreaker.Counts) bool {
	return func(counts gobreaker.Counts) bool {
		if counts.Requests == 0 || counts.Requests < minRequests {
			return false
		}
		return float64(counts.TotalFailures)/float64(counts.Requests) >= ratio
	}
}

// CallerCancelled reports whether err only means the caller stopped waiting,
// as when a trip recompute is superseded by a newer edit. Such calls say
// nothing about provider health and are not counted as breaker failures.
func CallerCancelled(err error) bool {
	return errors.Is(err, context.Canceled)
}

// NewCircuitBreaker creates a new circuit breaker with the given configuration.
func NewCircuitBreaker[T any](cfg CircuitBreakerConfig) *gobreaker.CircuitBreaker[T] {
	readyToTrip := cfg.ReadyToTrip
	if readyToTrip == nil {
		minRequests, ratio := cfg.MinRequests, cfg.FailureRatio
		if minRequests == 0 {
			minRequests = DefaultMinRequests
		}
		if ratio <= 0 {
			ratio = DefaultFailureRatio
		}
		readyToTrip = ratioTrip(minRequests, ratio)
	}

	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:          cfg.Name,
		MaxRequests:   cfg.MaxRequests,
		Interval:      cfg.Interval,
		Timeout:       cfg.Timeout,
		ReadyToTrip:   readyToTrip,
		OnStateChange: cfg.OnStateChange,
		IsSuccessful: func(err error) bool {
			return err == nil || CallerCancelled(err)
		},
	})
}
