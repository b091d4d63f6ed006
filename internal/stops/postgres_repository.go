package stops

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/roadstop/roadstop/internal/places"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
// The table is created by migrations/0001_create_stops.sql.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL stop repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const stopColumns = `
	id, place_id, name, category,
	lat, lng, address, rating,
	phone, website, photos, created_at
`

// List returns every stop, newest first.
func (r *PostgresRepository) List(ctx context.Context) ([]*Stop, error) {
	query := `SELECT ` + stopColumns + ` FROM stops ORDER BY created_at DESC, id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Stop
	for rows.Next() {
		s, err := scanStop(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Get retrieves a stop by ID.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Stop, error) {
	query := `SELECT ` + stopColumns + ` FROM stops WHERE id = $1`

	s, err := scanStop(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStopNotFound
		}
		return nil, err
	}
	return s, nil
}

// scanStop scans one stop row.
func scanStop(row pgx.Row) (*Stop, error) {
	var s Stop
	var category string
	err := row.Scan(
		&s.ID,
		&s.PlaceID,
		&s.Name,
		&category,
		&s.Location.Lat,
		&s.Location.Lng,
		&s.Address,
		&s.Rating,
		&s.Phone,
		&s.Website,
		&s.Photos,
		&s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.Category = places.Category(category)
	return &s, nil
}

// Create stores a stop.
func (r *PostgresRepository) Create(ctx context.Context, s *Stop) error {
	query := `
		INSERT INTO stops (` + stopColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	photos := s.Photos
	if photos == nil {
		photos = []string{}
	}

	_, err := r.pool.Exec(ctx, query,
		s.ID,
		s.PlaceID,
		s.Name,
		string(s.Category),
		s.Location.Lat,
		s.Location.Lng,
		s.Address,
		s.Rating,
		s.Phone,
		s.Website,
		photos,
		s.CreatedAt,
	)
	return err
}

// Delete removes a stop.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM stops WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrStopNotFound
	}
	return nil
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
