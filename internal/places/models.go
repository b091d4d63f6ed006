// Package places defines the nearby place-search collaborator and its data.
package places

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/roadstop/roadstop/internal/geo"
)

// Search defaults.
const (
	DefaultRadiusMeters = 5000.0
	DefaultLimit        = 5
	MaxPhotos           = 3
	PhotoMaxSize        = 400
)

// Sentinel errors for place search.
var (
	// ErrDetailUnavailable indicates a place detail lookup failed. Callers treat it as soft.
	ErrDetailUnavailable = errors.New("place detail unavailable")
	// ErrProviderUnavailable indicates the place provider is down or rejected the request.
	ErrProviderUnavailable = errors.New("place provider unavailable")
	// ErrUnknownCategory indicates an unrecognised category name.
	ErrUnknownCategory = errors.New("unknown category")
)

// Category is a kind of stop a traveller looks for.
type Category string

// Supported categories.
const (
	CategoryLodging    Category = "lodging"
	CategoryFood       Category = "food"
	CategoryFuel       Category = "fuel"
	CategoryAttraction Category = "attraction"
)

// AllCategories lists the categories in display order.
var AllCategories = []Category{CategoryLodging, CategoryFood, CategoryFuel, CategoryAttraction}

var categoryAliases = map[string]Category{
	"lodging":            CategoryLodging,
	"accommodations":     CategoryLodging,
	"accommodation":      CategoryLodging,
	"food":               CategoryFood,
	"restaurant":         CategoryFood,
	"fuel":               CategoryFuel,
	"gas":                CategoryFuel,
	"gas_station":        CategoryFuel,
	"attraction":         CategoryAttraction,
	"attractions":        CategoryAttraction,
	"tourist_attraction": CategoryAttraction,
}

// ParseCategory accepts a category name or one of its aliases, case-insensitively.
func ParseCategory(s string) (Category, error) {
	c, ok := categoryAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
	}
	return c, nil
}

// Label returns the user-facing group name.
func (c Category) Label() string {
	switch c {
	case CategoryLodging:
		return "accommodations"
	case CategoryFood:
		return "food"
	case CategoryFuel:
		return "gas"
	case CategoryAttraction:
		return "attractions"
	default:
		return string(c)
	}
}

// CandidateRef is a nearby search hit, enough to fetch the full detail.
type CandidateRef struct {
	PlaceID  string
	Name     string
	Location geo.Coordinate
	Category Category
}

// PlaceDetail is everything known about one place.
type PlaceDetail struct {
	PlaceID  string
	Name     string
	Location geo.Coordinate
	Rating   float64
	Address  string
	Phone    string
	Website  string
	Photos   []string // at most MaxPhotos URLs
	Hours    []string // weekday text, e.g. "Monday: 9:00 AM – 5:00 PM"
	IsOpen   *bool    // nil when the provider does not know
}

// Provider is the place-search collaborator.
type Provider interface {
	// Nearby returns up to limit places of category within radiusMeters of
	// location, nearest first.
	Nearby(ctx context.Context, location geo.Coordinate, category Category, radiusMeters float64, limit int) ([]CandidateRef, error)
	// Detail fetches full information for ref. Failures wrap ErrDetailUnavailable.
	Detail(ctx context.Context, ref CandidateRef) (*PlaceDetail, error)
	Name() string
}
