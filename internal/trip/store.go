package trip

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/roadstop/roadstop/internal/events"
)

// ErrTripNotFound is returned for unknown trip IDs.
var ErrTripNotFound = errors.New("trip not found")

// Store keeps trip sessions in memory.
type Store struct {
	cfg SessionConfig

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates an empty store whose sessions share cfg.
func NewStore(cfg SessionConfig) *Store {
	if cfg.Publisher == nil {
		cfg.Publisher = events.Nop{}
	}
	return &Store{
		cfg:      cfg,
		sessions: make(map[string]*Session),
	}
}

// Create registers a new trip with initial state and schedules its first
// recompute.
func (s *Store) Create(ctx context.Context, initial State) *Session {
	id := "trp_" + uuid.New().String()
	sess := NewSession(id, initial, s.cfg)

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	if err := s.cfg.Publisher.Publish(ctx, events.New(events.TypeTripCreated, id).
		With("start", initial.Start).
		With("end", initial.End)); err != nil {
		s.cfg.Logger.Warn().Err(err).Str("trip_id", id).Msg("failed to publish trip event")
	}

	sess.Refresh(ctx)
	return sess
}

// Get returns the session for id.
func (s *Store) Get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrTripNotFound
	}
	return sess, nil
}

// Delete closes and removes the session for id.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		return ErrTripNotFound
	}
	sess.Close()

	if err := s.cfg.Publisher.Publish(ctx, events.New(events.TypeTripDeleted, id)); err != nil {
		s.cfg.Logger.Warn().Err(err).Str("trip_id", id).Msg("failed to publish trip event")
	}
	return nil
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Evict closes and removes sessions untouched for longer than maxIdle.
// It returns the number removed.
func (s *Store) Evict(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	var stale []*Session
	s.mu.Lock()
	for id, sess := range s.sessions {
		if sess.idleSince().Before(cutoff) {
			stale = append(stale, sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range stale {
		sess.Close()
	}
	return len(stale)
}

// Close closes every session.
func (s *Store) Close() {
	s.mu.Lock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.Close()
	}
}
