package trip

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/roadstop/roadstop/internal/geo"
	"github.com/roadstop/roadstop/internal/geocoding"
	"github.com/roadstop/roadstop/internal/places"
	"github.com/roadstop/roadstop/internal/routing"
)

// fakePlaces returns `perCategory` refs around each location; details fail
// for IDs listed in failDetail.
type fakePlaces struct {
	mu          sync.Mutex
	perCategory int
	failNearby  map[places.Category]bool
	failDetail  map[string]bool
	nearbyCalls int
	detailCalls int
}

func (f *fakePlaces) Name() string { return "fake" }

func (f *fakePlaces) Nearby(_ context.Context, loc geo.Coordinate, cat places.Category, _ float64, limit int) ([]places.CandidateRef, error) {
	f.mu.Lock()
	f.nearbyCalls++
	f.mu.Unlock()

	if f.failNearby[cat] {
		return nil, places.ErrProviderUnavailable
	}
	n := min(f.perCategory, limit)
	refs := make([]places.CandidateRef, 0, n)
	for i := range n {
		refs = append(refs, places.CandidateRef{
			PlaceID:  fmt.Sprintf("%s-%.2f-%d", cat, loc.Lng, i),
			Name:     fmt.Sprintf("%s %d", cat, i),
			Location: geo.Coordinate{Lat: loc.Lat + 0.001*float64(i+1), Lng: loc.Lng},
			Category: cat,
		})
	}
	return refs, nil
}

func (f *fakePlaces) Detail(_ context.Context, ref places.CandidateRef) (*places.PlaceDetail, error) {
	f.mu.Lock()
	f.detailCalls++
	f.mu.Unlock()

	if f.failDetail[ref.PlaceID] {
		return nil, fmt.Errorf("%w: %s", places.ErrDetailUnavailable, ref.PlaceID)
	}
	return &places.PlaceDetail{
		PlaceID:  ref.PlaceID,
		Name:     ref.Name,
		Location: ref.Location,
		Rating:   4.5,
		Address:  "1 Main St",
	}, nil
}

type fakeGeocoder struct {
	mu     sync.Mutex
	places map[string]geo.Coordinate
	calls  []string
}

func (f *fakeGeocoder) Geocode(_ context.Context, text string) (*geocoding.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, text)

	loc, ok := f.places[text]
	if !ok {
		return nil, fmt.Errorf("geocode %q: %w", text, geocoding.ErrLocationNotFound)
	}
	return &geocoding.Result{Location: loc, Label: text, Provider: "fake", FoundAt: time.Now()}, nil
}

// fakeRouter drives a straight equatorial route at 100 km/h.
type fakeRouter struct {
	mu    sync.Mutex
	err   error
	calls []routing.DirectionsRequest
}

func (f *fakeRouter) GetDirections(_ context.Context, req routing.DirectionsRequest) (*routing.Route, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}

	stops := append([]geo.Coordinate{req.Origin}, req.Waypoints...)
	stops = append(stops, req.Destination)

	route := &routing.Route{Provider: "fake", FetchedAt: time.Now()}
	for i := 1; i < len(stops); i++ {
		d := geo.Distance(stops[i-1], stops[i])
		route.Legs = append(route.Legs, routing.Leg{
			DistanceMeters:  d,
			DurationSeconds: d / 100000 * 3600,
			StartLocation:   stops[i-1],
			EndLocation:     stops[i],
		})
		seg := equatorSegment(stops[i-1].Lng, stops[i].Lng)
		if len(route.Path) > 0 {
			seg = seg[1:]
		}
		route.Path = append(route.Path, seg...)
	}
	return route, nil
}

func equatorSegment(from, to float64) []geo.Coordinate {
	const step = 0.01
	n := int((to-from)/step + 0.5)
	if n < 0 {
		n = -n
	}
	if n == 0 {
		return []geo.Coordinate{{Lng: from}, {Lng: to}}
	}
	seg := make([]geo.Coordinate, n+1)
	for i := range seg {
		seg[i] = geo.Coordinate{Lng: from + (to-from)*float64(i)/float64(n)}
	}
	return seg
}

// gatedRecomputer blocks each request until released, ignoring cancellation,
// so tests control completion order.
type gatedRecomputer struct {
	mu       sync.Mutex
	requests []Request
	gates    map[uint64]chan Result
	fail     map[uint64]error
	started  chan uint64
}

func newGatedRecomputer() *gatedRecomputer {
	return &gatedRecomputer{
		gates:   make(map[uint64]chan Result),
		fail:    make(map[uint64]error),
		started: make(chan uint64, 16),
	}
}

func (g *gatedRecomputer) gate(token uint64) chan Result {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.gates[token]
	if !ok {
		ch = make(chan Result, 1)
		g.gates[token] = ch
	}
	return ch
}

func (g *gatedRecomputer) Recompute(_ context.Context, req Request) (Result, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	g.mu.Unlock()
	g.started <- req.Token

	res := <-g.gate(req.Token)

	g.mu.Lock()
	err := g.fail[req.Token]
	g.mu.Unlock()
	return res, err
}

func (g *gatedRecomputer) release(token uint64, res Result) {
	g.gate(token) <- res
}

func (g *gatedRecomputer) failWith(token uint64, err error) {
	g.mu.Lock()
	g.fail[token] = err
	g.mu.Unlock()
	g.gate(token) <- Result{}
}

func (g *gatedRecomputer) request(i int) Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.requests[i]
}

// countingObserver records observer calls.
type countingObserver struct {
	mu         sync.Mutex
	dispatched int
	applied    int
	discarded  int
	failed     int
	dropped    int
}

func (o *countingObserver) RecomputeDispatched(context.Context) {
	o.mu.Lock()
	o.dispatched++
	o.mu.Unlock()
}

func (o *countingObserver) RecomputeApplied(context.Context, time.Duration) {
	o.mu.Lock()
	o.applied++
	o.mu.Unlock()
}

func (o *countingObserver) RecomputeDiscarded(context.Context) {
	o.mu.Lock()
	o.discarded++
	o.mu.Unlock()
}

func (o *countingObserver) RecomputeFailed(context.Context, time.Duration) {
	o.mu.Lock()
	o.failed++
	o.mu.Unlock()
}

func (o *countingObserver) CandidatesDropped(_ context.Context, n int) {
	o.mu.Lock()
	o.dropped += n
	o.mu.Unlock()
}

func (o *countingObserver) counts() (dispatched, applied, discarded, failed int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.dispatched, o.applied, o.discarded, o.failed
}

var errBoom = errors.New("boom")
