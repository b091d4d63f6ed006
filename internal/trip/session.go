package trip

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/roadstop/roadstop/internal/events"
)

// Status describes the recompute lifecycle of a session.
type Status string

// Session statuses.
const (
	StatusIdle    Status = "idle"
	StatusPending Status = "pending"
	StatusReady   Status = "ready"
	StatusFailed  Status = "failed"
)

// Snapshot is a consistent view of a session.
type Snapshot struct {
	ID        string
	State     State
	Metrics   Metrics
	Status    Status
	LastError error
	Token     uint64
	UpdatedAt time.Time
}

// SessionConfig holds the collaborators shared by sessions.
type SessionConfig struct {
	Recomputer Recomputer
	Observer   Observer
	Publisher  events.Publisher
	Logger     zerolog.Logger
}

// Session owns one trip's state. Transitions are applied synchronously under
// a lock; recomputes run in the background and are tagged with a sequence
// token so that only the latest one may update the state.
type Session struct {
	id         string
	recomputer Recomputer
	observer   Observer
	publisher  events.Publisher
	logger     zerolog.Logger

	mu           sync.Mutex
	state        State
	status       Status
	lastErr      error
	token        uint64
	pending      Scope // widest scope not yet applied
	cancel       context.CancelFunc
	dispatchedAt time.Time
	updatedAt    time.Time
	closed       bool
	settled      chan struct{} // closed while no recompute is pending

	wg sync.WaitGroup
}

// NewSession creates a session holding initial. No recompute is started.
func NewSession(id string, initial State, cfg SessionConfig) *Session {
	observer := cfg.Observer
	if observer == nil {
		observer = nopObserver{}
	}
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = events.Nop{}
	}
	settled := make(chan struct{})
	close(settled)
	return &Session{
		id:         id,
		recomputer: cfg.Recomputer,
		observer:   observer,
		publisher:  publisher,
		logger:     cfg.Logger.With().Str("trip_id", id).Logger(),
		state:      initial,
		status:     StatusIdle,
		updatedAt:  time.Now(),
		settled:    settled,
	}
}

// ID returns the session's trip ID.
func (s *Session) ID() string {
	return s.id
}

// Dispatch applies a and, when the transition invalidates derived state,
// schedules a recompute. It returns the state after the transition.
func (s *Session) Dispatch(ctx context.Context, a Action) (State, error) {
	s.mu.Lock()
	next, scope, err := Reduce(s.state, a)
	if err != nil {
		current := s.state
		s.mu.Unlock()
		return current, err
	}
	s.state = next
	s.updatedAt = time.Now()

	if scope != ScopeNone {
		s.scheduleLocked(ctx, scope)
	}
	token := s.token
	s.mu.Unlock()

	if scope != ScopeNone && editsItinerary(a) {
		s.publish(ctx, events.New(events.TypeItineraryChanged, s.id).With("stops", len(next.Itinerary)), token)
	}
	return next, nil
}

func editsItinerary(a Action) bool {
	switch a.(type) {
	case AddStop, RemoveStop, ReorderStops:
		return true
	default:
		return false
	}
}

// Refresh schedules a full recompute without changing the state.
func (s *Session) Refresh(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduleLocked(ctx, ScopeRoute)
}

func (s *Session) scheduleLocked(ctx context.Context, scope Scope) {
	if s.recomputer == nil || s.closed {
		return
	}

	// A superseded run may not have finished work a narrower scope relies on.
	scope = max(scope, s.pending)
	s.pending = scope

	if s.cancel != nil {
		s.cancel()
	}

	if s.status != StatusPending {
		s.settled = make(chan struct{})
	}
	s.token++
	s.status = StatusPending
	s.dispatchedAt = time.Now()

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel

	req := Request{
		TripID: s.id,
		Token:  s.token,
		Scope:  scope,
		State:  s.state,
	}

	s.observer.RecomputeDispatched(ctx)
	s.logger.Debug().
		Uint64("token", req.Token).
		Str("scope", scope.String()).
		Msg("recompute dispatched")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		s.run(runCtx, req)
	}()
}

func (s *Session) run(ctx context.Context, req Request) {
	res, err := s.recomputer.Recompute(ctx, req)
	if err != nil {
		if s.Fail(ctx, req.Token, err) {
			s.publish(ctx, events.New(events.TypeRecomputeFailed, s.id).With("error", err.Error()), req.Token)
		}
		return
	}

	if s.Apply(ctx, req.Token, res) {
		m := Totals(res.Directions)
		e := events.New(events.TypeTripRecomputed, s.id).
			With("distance_meters", m.DistanceMeters).
			With("duration_seconds", m.DurationSeconds).
			With("stop_points", len(res.StopPoints)).
			With("candidates", len(res.Candidates))
		s.publish(ctx, e, req.Token)
	}
}

func (s *Session) publish(ctx context.Context, e events.Event, token uint64) {
	e.Token = token
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.Warn().Err(err).Str("event_type", string(e.Type)).Msg("failed to publish trip event")
	}
}

// Apply stores the result of the recompute tagged token. Results from
// superseded recomputes are discarded and Apply returns false.
func (s *Session) Apply(ctx context.Context, token uint64, res Result) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token != s.token || s.closed {
		s.observer.RecomputeDiscarded(ctx)
		s.logger.Debug().
			Uint64("token", token).
			Uint64("latest", s.token).
			Msg("discarding stale recompute result")
		return false
	}

	state := s.state
	if res.StartLocation != nil {
		state.StartLocation = res.StartLocation
	}
	if res.EndLocation != nil {
		state.EndLocation = res.EndLocation
	}
	state, _, _ = Reduce(state, SetDirections{Route: res.Directions})
	state, _, _ = Reduce(state, SetAvailableCandidates{
		Candidates: res.Candidates,
		StopPoints: res.StopPoints,
	})

	s.state = state
	s.settleLocked()
	s.status = StatusReady
	s.lastErr = nil
	s.pending = ScopeNone
	s.cancel = nil
	s.updatedAt = time.Now()

	s.observer.RecomputeApplied(ctx, time.Since(s.dispatchedAt))
	return true
}

// Fail records a failed recompute tagged token. The last good route, stop
// points and candidates are kept. Stale failures are discarded.
func (s *Session) Fail(ctx context.Context, token uint64, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token != s.token || s.closed {
		s.observer.RecomputeDiscarded(ctx)
		return false
	}

	s.settleLocked()
	s.status = StatusFailed
	s.lastErr = err
	s.cancel = nil
	s.updatedAt = time.Now()

	s.observer.RecomputeFailed(ctx, time.Since(s.dispatchedAt))
	s.logger.Warn().Err(err).Uint64("token", token).Msg("recompute failed")
	return true
}

// Snapshot returns the current state and status.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		ID:        s.id,
		State:     s.state,
		Metrics:   s.state.Metrics(),
		Status:    s.status,
		LastError: s.lastErr,
		Token:     s.token,
		UpdatedAt: s.updatedAt,
	}
}

func (s *Session) settleLocked() {
	if s.status == StatusPending {
		close(s.settled)
	}
}

// Settled returns a channel that is closed once the latest recompute has been
// applied or has failed. It is already closed when nothing is pending.
func (s *Session) Settled() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settled
}

// Wait blocks until every dispatched recompute has finished.
func (s *Session) Wait() {
	s.wg.Wait()
}

// Close cancels any in-flight recompute and waits for it to return. Later
// transitions still apply but no longer schedule recomputes.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.status == StatusPending {
		s.settleLocked()
		s.status = StatusIdle
	}
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}
