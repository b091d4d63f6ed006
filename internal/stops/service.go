package stops

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/roadstop/roadstop/internal/api/models"
	"github.com/roadstop/roadstop/internal/geo"
	"github.com/roadstop/roadstop/internal/places"
)

// Validation constants.
const (
	MaxNameLength    = 120
	MaxAddressLength = 300
)

// Service provides saved-stop operations.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a new stop service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// List retrieves every saved stop, newest first.
func (s *Service) List(ctx context.Context) (*models.StopList, error) {
	stops, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]models.Stop, 0, len(stops))
	for _, st := range stops {
		items = append(items, ToAPIStop(st))
	}
	return &models.StopList{Items: items}, nil
}

// Get retrieves a stop by ID.
func (s *Service) Get(ctx context.Context, id string) (*models.Stop, error) {
	st, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	result := ToAPIStop(st)
	return &result, nil
}

// Create validates input and saves it as a new stop.
func (s *Service) Create(ctx context.Context, input *models.StopCreateRequest) (*models.Stop, error) {
	category, fieldErrors := validateCreateInput(input)
	if len(fieldErrors) > 0 {
		return nil, &ValidationError{Errors: fieldErrors}
	}

	st := &Stop{
		ID:        "stp_" + uuid.New().String(),
		PlaceID:   input.PlaceID,
		Name:      input.Name,
		Category:  category,
		Location:  geo.Coordinate{Lat: input.Location.Lat, Lng: input.Location.Lng},
		Address:   input.Address,
		Rating:    input.Rating,
		Phone:     input.Phone,
		Website:   input.Website,
		Photos:    input.Photos,
		CreatedAt: s.now().UTC(),
	}

	if err := s.repo.Create(ctx, st); err != nil {
		return nil, err
	}

	result := ToAPIStop(st)
	return &result, nil
}

// Delete removes a saved stop.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func validateCreateInput(input *models.StopCreateRequest) (places.Category, []models.FieldError) {
	var errs []models.FieldError

	if input.Name == "" {
		errs = append(errs, models.FieldError{Field: "name", Message: "is required"})
	} else if len(input.Name) > MaxNameLength {
		errs = append(errs, models.FieldError{Field: "name", Message: fmt.Sprintf("must be at most %d characters", MaxNameLength)})
	}

	if len(input.Address) > MaxAddressLength {
		errs = append(errs, models.FieldError{Field: "address", Message: fmt.Sprintf("must be at most %d characters", MaxAddressLength)})
	}

	category, err := places.ParseCategory(input.Category)
	if err != nil {
		errs = append(errs, models.FieldError{Field: "category", Message: "must be one of lodging, food, fuel, attraction"})
	}

	if input.Location == nil {
		errs = append(errs, models.FieldError{Field: "location", Message: "is required"})
	} else if err := (geo.Coordinate{Lat: input.Location.Lat, Lng: input.Location.Lng}).Validate(); err != nil {
		errs = append(errs, models.FieldError{Field: "location", Message: "latitude must be within [-90, 90] and longitude within [-180, 180]"})
	}

	if input.Rating < 0 || input.Rating > 5 {
		errs = append(errs, models.FieldError{Field: "rating", Message: "must be between 0 and 5"})
	}

	return category, errs
}

// ToAPIStop converts a domain stop to its API shape.
func ToAPIStop(st *Stop) models.Stop {
	return models.Stop{
		ID:        st.ID,
		PlaceID:   st.PlaceID,
		Name:      st.Name,
		Category:  string(st.Category),
		Location:  models.Point{Lat: st.Location.Lat, Lng: st.Location.Lng},
		Address:   st.Address,
		Rating:    st.Rating,
		Phone:     st.Phone,
		Website:   st.Website,
		Photos:    st.Photos,
		CreatedAt: models.Timestamp(st.CreatedAt),
	}
}
