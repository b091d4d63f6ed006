package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/roadstop/roadstop/internal/api/models"
	"github.com/roadstop/roadstop/internal/api/response"
	"github.com/roadstop/roadstop/internal/geo"
	"github.com/roadstop/roadstop/internal/trip"
)

// SampleHandler samples caller-supplied routes without creating a trip.
type SampleHandler struct {
	logger zerolog.Logger
}

// NewSampleHandler creates a new SampleHandler.
func NewSampleHandler(logger zerolog.Logger) *SampleHandler {
	return &SampleHandler{logger: logger}
}

// SampleRoute handles POST /v1/routes:sample.
func (h *SampleHandler) SampleRoute(w http.ResponseWriter, r *http.Request) {
	var input models.SampleRequest
	if err := decodeJSON(r, &input, false); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	path := geo.DecodePolyline(input.Polyline)
	if input.Polyline == "" {
		path = make([]geo.Coordinate, 0, len(input.Path))
		for _, p := range input.Path {
			path = append(path, geo.Coordinate{Lat: p.Lat, Lng: p.Lng})
		}
	}

	var fieldErrors []models.FieldError
	if len(path) < 2 {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "polyline", Message: "polyline or path must contain at least two points"})
	}
	for _, c := range path {
		if err := c.Validate(); err != nil {
			fieldErrors = append(fieldErrors, models.FieldError{Field: "path", Message: err.Error()})
			break
		}
	}
	if input.Interval.Unit == string(trip.UnitTime) && input.DurationSeconds == nil {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "durationSeconds", Message: "is required for time intervals"})
	}
	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "validation failed", fieldErrors)
		return
	}

	iv, err := parseInterval(input.Interval.Unit, &input.Interval.Value)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	distance := geo.PathLength(path)
	if input.DistanceMeters != nil {
		distance = *input.DistanceMeters
	}
	var duration float64
	if input.DurationSeconds != nil {
		duration = *input.DurationSeconds
	}

	points, err := trip.Sample(path, distance, duration, iv)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response.JSON(w, r, http.StatusOK, models.SampleResponse{
		NumStops:   len(points),
		StopPoints: toAPIStopPoints(points),
	})
}
