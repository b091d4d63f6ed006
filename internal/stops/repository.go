package stops

import "context"

// Repository defines the interface for stop persistence. It does CRUD only.
type Repository interface {
	// List returns every saved stop, newest first.
	List(ctx context.Context) ([]*Stop, error)

	// Get retrieves a stop by ID.
	Get(ctx context.Context, id string) (*Stop, error)

	// Create stores a new stop.
	Create(ctx context.Context, stop *Stop) error

	// Delete removes a stop. Returns ErrStopNotFound if it does not exist.
	Delete(ctx context.Context, id string) error
}
