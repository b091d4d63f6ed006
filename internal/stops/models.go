// Package stops persists places a traveller has saved as stops.
package stops

import (
	"errors"
	"time"

	"github.com/roadstop/roadstop/internal/api/models"
	"github.com/roadstop/roadstop/internal/geo"
	"github.com/roadstop/roadstop/internal/places"
)

// Repository errors.
var (
	ErrStopNotFound = errors.New("stop not found")
)

// Stop is a saved place.
type Stop struct {
	ID        string
	PlaceID   string
	Name      string
	Category  places.Category
	Location  geo.Coordinate
	Address   string
	Rating    float64
	Phone     string
	Website   string
	Photos    []string
	CreatedAt time.Time
}

// ValidationError carries per-field validation failures.
type ValidationError struct {
	Errors []models.FieldError
}

func (e *ValidationError) Error() string {
	return "validation failed"
}
