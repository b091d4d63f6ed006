package trip

import (
	"errors"
	"fmt"
	"slices"

	"github.com/roadstop/roadstop/internal/geo"
	"github.com/roadstop/roadstop/internal/places"
	"github.com/roadstop/roadstop/internal/routing"
)

// Default trip endpoints.
const (
	DefaultStart = "New York, NY, USA"
	DefaultEnd   = "Los Angeles, CA, USA"
)

// Errors returned by transitions.
var (
	// ErrInvalidReorder indicates a reorder that is not a permutation of the itinerary.
	ErrInvalidReorder = errors.New("reorder is not a permutation of the itinerary")
	// ErrUnknownCategory indicates an unrecognised category.
	ErrUnknownCategory = places.ErrUnknownCategory
	// ErrInvalidLocation indicates an empty start or end.
	ErrInvalidLocation = errors.New("start and end locations are required")
)

// State is everything known about one trip. Values are treated as immutable:
// transitions return a new State and never modify slices they were given.
type State struct {
	Start         string
	End           string
	StartLocation *geo.Coordinate // resolved by the last successful recompute
	EndLocation   *geo.Coordinate
	Interval      Interval
	Categories    []places.Category
	Itinerary     []Stop
	Candidates    []Candidate
	StopPoints    []StopPoint
	Directions    *routing.Route
}

// DefaultState is a New York to Los Angeles trip, stopping every two hours
// for food and fuel.
func DefaultState() State {
	return State{
		Start:      DefaultStart,
		End:        DefaultEnd,
		Interval:   DefaultInterval(),
		Categories: []places.Category{places.CategoryFood, places.CategoryFuel},
	}
}

// Metrics returns totals for the current directions.
func (s State) Metrics() Metrics {
	return Totals(s.Directions)
}

// Scope says how much of the derived state a transition invalidates.
type Scope int

// Recompute scopes, in increasing order of work.
const (
	ScopeNone       Scope = iota
	ScopeCandidates       // re-sample and re-search on the existing route
	ScopeRoute            // geocode, re-route, then re-sample and re-search
)

func (s Scope) String() string {
	switch s {
	case ScopeCandidates:
		return "candidates"
	case ScopeRoute:
		return "route"
	default:
		return "none"
	}
}

// Action is a state transition.
type Action interface {
	apply(s State) (State, Scope, error)
}

// Reduce applies a to s. It performs no I/O; the returned Scope tells the
// caller what must be recomputed.
func Reduce(s State, a Action) (State, Scope, error) {
	return a.apply(s)
}

// SetLocations replaces the start and end.
type SetLocations struct {
	Start string
	End   string
}

func (a SetLocations) apply(s State) (State, Scope, error) {
	if a.Start == "" || a.End == "" {
		return s, ScopeNone, ErrInvalidLocation
	}
	if a.Start == s.Start && a.End == s.End {
		return s, ScopeNone, nil
	}
	s.Start, s.End = a.Start, a.End
	s.StartLocation, s.EndLocation = nil, nil
	return s, ScopeRoute, nil
}

// SwapLocations exchanges start and end.
type SwapLocations struct{}

func (SwapLocations) apply(s State) (State, Scope, error) {
	s.Start, s.End = s.End, s.Start
	s.StartLocation, s.EndLocation = s.EndLocation, s.StartLocation
	return s, ScopeRoute, nil
}

// SetInterval replaces the sampling interval.
type SetInterval struct {
	Interval Interval
}

func (a SetInterval) apply(s State) (State, Scope, error) {
	if _, err := a.Interval.Base(); err != nil {
		return s, ScopeNone, err
	}
	if a.Interval == s.Interval {
		return s, ScopeNone, nil
	}
	s.Interval = a.Interval
	return s, ScopeCandidates, nil
}

// SetSelectedCategories replaces the searched categories.
type SetSelectedCategories struct {
	Categories []places.Category
}

func (a SetSelectedCategories) apply(s State) (State, Scope, error) {
	cats := make([]places.Category, 0, len(a.Categories))
	for _, c := range a.Categories {
		if !slices.Contains(places.AllCategories, c) {
			return s, ScopeNone, fmt.Errorf("%w: %q", ErrUnknownCategory, c)
		}
		if !slices.Contains(cats, c) {
			cats = append(cats, c)
		}
	}
	if slices.Equal(cats, s.Categories) {
		return s, ScopeNone, nil
	}
	s.Categories = cats
	return s, ScopeCandidates, nil
}

// SetAvailableCandidates replaces the candidate pool and the stop points it
// was gathered around.
type SetAvailableCandidates struct {
	Candidates []Candidate
	StopPoints []StopPoint
}

func (a SetAvailableCandidates) apply(s State) (State, Scope, error) {
	s.Candidates = slices.Clone(a.Candidates)
	s.StopPoints = slices.Clone(a.StopPoints)
	return s, ScopeNone, nil
}

// AddStop appends a stop to the itinerary. Duplicate IDs are allowed.
type AddStop struct {
	Stop Stop
}

func (a AddStop) apply(s State) (State, Scope, error) {
	it := make([]Stop, len(s.Itinerary), len(s.Itinerary)+1)
	copy(it, s.Itinerary)
	s.Itinerary = append(it, a.Stop)
	return s, ScopeRoute, nil
}

// RemoveStop removes every itinerary stop with ID. Absent IDs are a no-op.
type RemoveStop struct {
	ID string
}

func (a RemoveStop) apply(s State) (State, Scope, error) {
	it := make([]Stop, 0, len(s.Itinerary))
	for _, st := range s.Itinerary {
		if st.ID != a.ID {
			it = append(it, st)
		}
	}
	if len(it) == len(s.Itinerary) {
		return s, ScopeNone, nil
	}
	s.Itinerary = it
	return s, ScopeRoute, nil
}

// ReorderStops replaces the itinerary with a permutation of itself.
type ReorderStops struct {
	Stops []Stop
}

func (a ReorderStops) apply(s State) (State, Scope, error) {
	if !isPermutation(s.Itinerary, a.Stops) {
		return s, ScopeNone, ErrInvalidReorder
	}
	if sameOrder(s.Itinerary, a.Stops) {
		return s, ScopeNone, nil
	}
	s.Itinerary = slices.Clone(a.Stops)
	return s, ScopeRoute, nil
}

// SetDirections caches the latest route; nil clears it.
type SetDirections struct {
	Route *routing.Route
}

func (a SetDirections) apply(s State) (State, Scope, error) {
	s.Directions = a.Route
	return s, ScopeNone, nil
}

// isPermutation compares stop ID multisets.
func isPermutation(current, next []Stop) bool {
	if len(current) != len(next) {
		return false
	}
	counts := make(map[string]int, len(current))
	for _, st := range current {
		counts[st.ID]++
	}
	for _, st := range next {
		counts[st.ID]--
		if counts[st.ID] < 0 {
			return false
		}
	}
	return true
}

func sameOrder(a, b []Stop) bool {
	for i := range a {
		if a[i].ID != b[i].ID {
			return false
		}
	}
	return true
}

// PermuteItinerary builds the reordered itinerary for ids. Each ID consumes
// one matching stop, so duplicates must be listed as many times as they occur.
func PermuteItinerary(itinerary []Stop, ids []string) ([]Stop, error) {
	if len(ids) != len(itinerary) {
		return nil, ErrInvalidReorder
	}
	pool := make(map[string][]Stop, len(itinerary))
	for _, st := range itinerary {
		pool[st.ID] = append(pool[st.ID], st)
	}
	out := make([]Stop, 0, len(ids))
	for _, id := range ids {
		stops := pool[id]
		if len(stops) == 0 {
			return nil, ErrInvalidReorder
		}
		out = append(out, stops[0])
		pool[id] = stops[1:]
	}
	return out, nil
}

// Waypoints returns itinerary stop locations in order.
func (s State) Waypoints() []geo.Coordinate {
	wps := make([]geo.Coordinate, 0, len(s.Itinerary))
	for _, st := range s.Itinerary {
		wps = append(wps, st.Location)
	}
	return wps
}
