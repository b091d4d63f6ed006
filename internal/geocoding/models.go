// Package geocoding resolves free-form place text to coordinates.
package geocoding

import (
	"context"
	"errors"
	"time"

	"github.com/roadstop/roadstop/internal/geo"
)

// Sentinel errors for geocoding operations.
var (
	// ErrLocationNotFound indicates the text did not resolve to any place.
	ErrLocationNotFound = errors.New("location not found")
	// ErrProviderUnavailable indicates the geocoding provider is down or rejected the request.
	ErrProviderUnavailable = errors.New("geocoding provider unavailable")
	// ErrEmptyQuery indicates blank input.
	ErrEmptyQuery = errors.New("empty location query")
)

// Provider defines the interface for geocoding providers.
type Provider interface {
	Geocode(ctx context.Context, text string) (*Result, error)
	Name() string
}

// Result is the best match for a query.
type Result struct {
	Location geo.Coordinate
	Label    string // Provider's formatted name for the match
	Provider string
	FoundAt  time.Time
}
