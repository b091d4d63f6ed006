package trip

import (
	"errors"
	"fmt"
)

// Conversion factors to base units.
const (
	MetersPerMile  = 1609.34
	SecondsPerHour = 3600.0
)

// Bounds accepted from users; the sampler itself only requires a positive value.
const (
	MinHours = 1.0
	MaxHours = 12.0
	MinMiles = 1.0
	MaxMiles = 500.0

	DefaultHours = 2.0
	DefaultMiles = 100.0
)

// ErrInvalidInterval indicates a non-positive (or out-of-bounds) interval.
var ErrInvalidInterval = errors.New("invalid interval")

// Unit selects what an Interval measures.
type Unit string

// Interval units.
const (
	UnitTime     Unit = "time"     // hours
	UnitDistance Unit = "distance" // miles
)

// Interval is the spacing between sampled stop points.
type Interval struct {
	Value float64
	Unit  Unit
}

// DefaultInterval is every two hours of driving.
func DefaultInterval() Interval {
	return Interval{Value: DefaultHours, Unit: UnitTime}
}

// DefaultValue returns the value a unit starts at when the user switches to it.
func (u Unit) DefaultValue() float64 {
	if u == UnitDistance {
		return DefaultMiles
	}
	return DefaultHours
}

// Valid reports whether u is a known unit.
func (u Unit) Valid() bool {
	return u == UnitTime || u == UnitDistance
}

// Base returns the interval in meters (distance) or seconds (time).
func (iv Interval) Base() (float64, error) {
	if iv.Value <= 0 {
		return 0, fmt.Errorf("%w: value must be positive, got %g", ErrInvalidInterval, iv.Value)
	}
	switch iv.Unit {
	case UnitDistance:
		return iv.Value * MetersPerMile, nil
	case UnitTime:
		return iv.Value * SecondsPerHour, nil
	default:
		return 0, fmt.Errorf("%w: unknown unit %q", ErrInvalidInterval, iv.Unit)
	}
}

// CheckBounds enforces the user-facing range: 1-12 hours or 1-500 miles.
func (iv Interval) CheckBounds() error {
	if _, err := iv.Base(); err != nil {
		return err
	}
	lo, hi := MinHours, MaxHours
	if iv.Unit == UnitDistance {
		lo, hi = MinMiles, MaxMiles
	}
	if iv.Value < lo || iv.Value > hi {
		return fmt.Errorf("%w: %s value must be between %g and %g, got %g", ErrInvalidInterval, iv.Unit, lo, hi, iv.Value)
	}
	return nil
}

// String renders the interval for logs, e.g. "2h" or "100mi".
func (iv Interval) String() string {
	if iv.Unit == UnitDistance {
		return fmt.Sprintf("%gmi", iv.Value)
	}
	return fmt.Sprintf("%gh", iv.Value)
}
