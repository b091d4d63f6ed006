package handler

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/roadstop/roadstop/internal/api/models"
	"github.com/roadstop/roadstop/internal/api/response"
	"github.com/roadstop/roadstop/internal/geocoding"
	"github.com/roadstop/roadstop/internal/places"
	"github.com/roadstop/roadstop/internal/routing"
	"github.com/roadstop/roadstop/internal/stops"
	"github.com/roadstop/roadstop/internal/trip"
)

// writeError maps domain errors onto problem responses.
func writeError(w http.ResponseWriter, r *http.Request, logger zerolog.Logger, err error) {
	var verr *stops.ValidationError
	switch {
	case errors.As(err, &verr):
		response.BadRequest(w, r, "validation failed", verr.Errors)
	case errors.Is(err, trip.ErrTripNotFound):
		response.NotFound(w, r, "trip not found")
	case errors.Is(err, stops.ErrStopNotFound):
		response.NotFound(w, r, "stop not found")
	case errors.Is(err, trip.ErrInvalidReorder):
		response.Conflict(w, r, err.Error())
	case errors.Is(err, trip.ErrInvalidInterval):
		response.BadRequest(w, r, err.Error(), []models.FieldError{{Field: "interval", Message: err.Error()}})
	case errors.Is(err, places.ErrUnknownCategory):
		response.BadRequest(w, r, err.Error(), []models.FieldError{{Field: "categories", Message: err.Error()}})
	case errors.Is(err, trip.ErrInvalidLocation):
		response.BadRequest(w, r, err.Error(), nil)
	case errors.Is(err, geocoding.ErrLocationNotFound):
		response.Unprocessable(w, r, models.ProblemTypeLocationNotFound, "Location not found", err.Error())
	case errors.Is(err, routing.ErrProviderUnavailable), errors.Is(err, routing.ErrRateLimitExceeded),
		errors.Is(err, geocoding.ErrProviderUnavailable):
		response.ServiceUnavailable(w, r, err.Error())
	case errors.Is(err, routing.ErrRouteUnavailable):
		response.BadGateway(w, r, err.Error())
	default:
		logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		response.InternalError(w, r, "an unexpected error occurred")
	}
}

// errorType names the failure class of a recompute error for clients.
func errorType(err error) string {
	switch {
	case errors.Is(err, geocoding.ErrLocationNotFound):
		return "location_not_found"
	case errors.Is(err, routing.ErrRouteUnavailable):
		return "route_unavailable"
	case errors.Is(err, trip.ErrInvalidInterval):
		return "invalid_interval"
	default:
		return "internal"
	}
}
