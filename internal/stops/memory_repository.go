package stops

import (
	"cmp"
	"context"
	"slices"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository.
// Stops are lost on restart; PostgresRepository is used when a database is configured.
type InMemoryRepository struct {
	mu    sync.RWMutex
	stops map[string]*Stop
}

// NewInMemoryRepository creates a new in-memory stop repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		stops: make(map[string]*Stop),
	}
}

// List returns every stop, newest first.
func (r *InMemoryRepository) List(_ context.Context) ([]*Stop, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Stop, 0, len(r.stops))
	for _, s := range r.stops {
		out = append(out, copyStop(s))
	}
	slices.SortFunc(out, func(a, b *Stop) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

// Get retrieves a stop by ID.
func (r *InMemoryRepository) Get(_ context.Context, id string) (*Stop, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.stops[id]
	if !ok {
		return nil, ErrStopNotFound
	}
	return copyStop(s), nil
}

// Create stores a stop.
func (r *InMemoryRepository) Create(_ context.Context, s *Stop) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stops[s.ID] = copyStop(s)
	return nil
}

// Delete removes a stop.
func (r *InMemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.stops[id]; !ok {
		return ErrStopNotFound
	}
	delete(r.stops, id)
	return nil
}

func copyStop(s *Stop) *Stop {
	cpy := *s
	cpy.Photos = slices.Clone(s.Photos)
	return &cpy
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
