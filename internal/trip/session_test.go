package trip

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roadstop/roadstop/internal/events"
	"github.com/roadstop/roadstop/internal/geo"
	"github.com/roadstop/roadstop/internal/routing"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

func routeOf(meters float64) *routing.Route {
	return &routing.Route{Legs: []routing.Leg{{DistanceMeters: meters, DurationSeconds: meters / 25}}}
}

func waitStarted(t *testing.T, g *gatedRecomputer, token uint64) {
	t.Helper()
	select {
	case got := <-g.started:
		require.Equal(t, token, got)
	case <-time.After(2 * time.Second):
		t.Fatalf("recompute %d never started", token)
	}
}

func TestSession_DispatchWithoutRecompute(t *testing.T) {
	g := newGatedRecomputer()
	s := NewSession("trp_1", DefaultState(), SessionConfig{Recomputer: g, Logger: zerolog.Nop()})

	st, err := s.Dispatch(context.Background(), SetDirections{Route: routeOf(10)})
	require.NoError(t, err)
	assert.NotNil(t, st.Directions)

	snap := s.Snapshot()
	assert.Equal(t, StatusIdle, snap.Status)
	assert.Zero(t, snap.Token)
	assert.Equal(t, 10.0, snap.Metrics.DistanceMeters)
}

func TestSession_InvalidActionLeavesState(t *testing.T) {
	s := NewSession("trp_1", withItinerary("A", "B"), SessionConfig{Logger: zerolog.Nop()})

	_, err := s.Dispatch(context.Background(), ReorderStops{Stops: []Stop{stop("A")}})
	assert.ErrorIs(t, err, ErrInvalidReorder)
	assert.Equal(t, []string{"A", "B"}, ids(s.Snapshot().State.Itinerary))
}

func TestSession_AppliesLatestResult(t *testing.T) {
	g := newGatedRecomputer()
	obs := &countingObserver{}
	pub := &recordingPublisher{}
	s := NewSession("trp_1", DefaultState(), SessionConfig{
		Recomputer: g,
		Observer:   obs,
		Publisher:  pub,
		Logger:     zerolog.Nop(),
	})
	ctx := context.Background()

	_, err := s.Dispatch(ctx, SetLocations{Start: "Boston", End: "Denver"})
	require.NoError(t, err)
	waitStarted(t, g, 1)
	assert.Equal(t, StatusPending, s.Snapshot().Status)

	_, err = s.Dispatch(ctx, SetLocations{Start: "Austin", End: "Denver"})
	require.NoError(t, err)
	waitStarted(t, g, 2)

	// The newer request finishes first; the older one must not overwrite it.
	g.release(2, Result{Directions: routeOf(2000)})
	g.release(1, Result{Directions: routeOf(1000)})
	s.Wait()

	snap := s.Snapshot()
	assert.Equal(t, StatusReady, snap.Status)
	assert.Equal(t, uint64(2), snap.Token)
	assert.Equal(t, 2000.0, snap.Metrics.DistanceMeters)
	assert.Equal(t, "Austin", snap.State.Start)

	dispatched, applied, discarded, failed := obs.counts()
	assert.Equal(t, 2, dispatched)
	assert.Equal(t, 1, applied)
	assert.Equal(t, 1, discarded)
	assert.Zero(t, failed)
	assert.Equal(t, []events.Type{events.TypeTripRecomputed}, pub.types())
}

func TestSession_StaleApplyIsDiscarded(t *testing.T) {
	s := NewSession("trp_1", DefaultState(), SessionConfig{Logger: zerolog.Nop()})
	ctx := context.Background()

	assert.False(t, s.Apply(ctx, 7, Result{Directions: routeOf(1)}))
	assert.False(t, s.Fail(ctx, 7, errBoom))

	snap := s.Snapshot()
	assert.Nil(t, snap.State.Directions)
	assert.Equal(t, StatusIdle, snap.Status)
}

func TestSession_FailureKeepsLastGoodState(t *testing.T) {
	g := newGatedRecomputer()
	pub := &recordingPublisher{}
	s := NewSession("trp_1", DefaultState(), SessionConfig{Recomputer: g, Publisher: pub, Logger: zerolog.Nop()})
	ctx := context.Background()

	good := Result{
		Directions:    routeOf(5000),
		StopPoints:    []StopPoint{{DistanceFromStart: 2500}},
		Candidates:    []Candidate{{ID: "p1"}},
		StartLocation: &geo.Coordinate{Lat: 1, Lng: 1},
	}

	s.Refresh(ctx)
	waitStarted(t, g, 1)
	g.release(1, good)
	s.Wait()

	_, err := s.Dispatch(ctx, SetLocations{Start: "Nowhere", End: "Denver"})
	require.NoError(t, err)
	waitStarted(t, g, 2)
	g.failWith(2, errBoom)
	s.Wait()

	snap := s.Snapshot()
	assert.Equal(t, StatusFailed, snap.Status)
	assert.ErrorIs(t, snap.LastError, errBoom)
	assert.Equal(t, 5000.0, snap.Metrics.DistanceMeters)
	assert.Len(t, snap.State.StopPoints, 1)
	assert.Len(t, snap.State.Candidates, 1)
	assert.Equal(t, "Nowhere", snap.State.Start)
	assert.Equal(t, []events.Type{events.TypeTripRecomputed, events.TypeRecomputeFailed}, pub.types())
}

func TestSession_PendingScopeWidens(t *testing.T) {
	g := newGatedRecomputer()
	s := NewSession("trp_1", DefaultState(), SessionConfig{Recomputer: g, Logger: zerolog.Nop()})
	ctx := context.Background()

	_, err := s.Dispatch(ctx, SetLocations{Start: "Boston", End: "Denver"})
	require.NoError(t, err)
	waitStarted(t, g, 1)

	// Still pending a route change, so an interval change must re-route too.
	_, err = s.Dispatch(ctx, SetInterval{Interval: Interval{Value: 50, Unit: UnitDistance}})
	require.NoError(t, err)
	waitStarted(t, g, 2)
	assert.Equal(t, ScopeRoute, g.request(1).Scope)

	g.release(1, Result{})
	g.release(2, Result{Directions: routeOf(1)})
	s.Wait()

	// Once applied, a narrower change stays narrow.
	_, err = s.Dispatch(ctx, SetInterval{Interval: Interval{Value: 60, Unit: UnitDistance}})
	require.NoError(t, err)
	waitStarted(t, g, 3)
	assert.Equal(t, ScopeCandidates, g.request(2).Scope)
	g.release(3, Result{Directions: routeOf(1)})
	s.Wait()
}

func TestSession_CloseStopsScheduling(t *testing.T) {
	g := newGatedRecomputer()
	s := NewSession("trp_1", DefaultState(), SessionConfig{Recomputer: g, Logger: zerolog.Nop()})

	s.Close()

	_, err := s.Dispatch(context.Background(), SwapLocations{})
	require.NoError(t, err)
	s.Wait()

	assert.Equal(t, DefaultEnd, s.Snapshot().State.Start)
	assert.Zero(t, s.Snapshot().Token)
}

func TestSession_ItineraryEditsPublishEvent(t *testing.T) {
	pub := &recordingPublisher{}
	s := NewSession("trp_1", withItinerary("A", "B"), SessionConfig{Publisher: pub, Logger: zerolog.Nop()})
	ctx := context.Background()

	_, err := s.Dispatch(ctx, AddStop{Stop: stop("C")})
	require.NoError(t, err)
	_, err = s.Dispatch(ctx, RemoveStop{ID: "missing"})
	require.NoError(t, err)
	_, err = s.Dispatch(ctx, SetInterval{Interval: Interval{Value: 3, Unit: UnitTime}})
	require.NoError(t, err)

	require.Equal(t, []events.Type{events.TypeItineraryChanged}, pub.types())
	assert.Equal(t, 3, pub.events[0].Attributes["stops"])
}

func TestSession_SettledFollowsPendingRecompute(t *testing.T) {
	g := newGatedRecomputer()
	s := NewSession("trp_1", DefaultState(), SessionConfig{Recomputer: g, Logger: zerolog.Nop()})

	select {
	case <-s.Settled():
	default:
		t.Fatal("idle session should be settled")
	}

	s.Refresh(context.Background())
	waitStarted(t, g, 1)
	settled := s.Settled()
	select {
	case <-settled:
		t.Fatal("pending session should not be settled")
	default:
	}

	g.release(1, Result{Directions: routeOf(500)})
	select {
	case <-settled:
	case <-time.After(2 * time.Second):
		t.Fatal("session never settled")
	}
	assert.Equal(t, StatusReady, s.Snapshot().Status)
}
