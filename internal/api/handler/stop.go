package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/roadstop/roadstop/internal/api/models"
	"github.com/roadstop/roadstop/internal/api/response"
	"github.com/roadstop/roadstop/internal/stops"
)

// StopHandler handles saved-stop endpoints.
type StopHandler struct {
	service *stops.Service
	logger  zerolog.Logger
}

// NewStopHandler creates a new StopHandler.
func NewStopHandler(service *stops.Service, logger zerolog.Logger) *StopHandler {
	return &StopHandler{service: service, logger: logger}
}

// ListStops handles GET /v1/stops.
func (h *StopHandler) ListStops(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.List(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, result)
}

// GetStop handles GET /v1/stops/{stopId}.
func (h *StopHandler) GetStop(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Get(r.Context(), chi.URLParam(r, "stopId"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, result)
}

// CreateStop handles POST /v1/stops.
func (h *StopHandler) CreateStop(w http.ResponseWriter, r *http.Request) {
	var input models.StopCreateRequest
	if err := decodeJSON(r, &input, false); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	result, err := h.service.Create(r.Context(), &input)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.Created(w, r, "/v1/stops/"+result.ID, result)
}

// DeleteStop handles DELETE /v1/stops/{stopId}.
func (h *StopHandler) DeleteStop(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "stopId")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.NoContent(w, r)
}
