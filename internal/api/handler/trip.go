package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/roadstop/roadstop/internal/api/middleware"
	"github.com/roadstop/roadstop/internal/api/models"
	"github.com/roadstop/roadstop/internal/api/response"
	"github.com/roadstop/roadstop/internal/export"
	"github.com/roadstop/roadstop/internal/geo"
	"github.com/roadstop/roadstop/internal/places"
	"github.com/roadstop/roadstop/internal/stops"
	"github.com/roadstop/roadstop/internal/trip"
)

// DefaultSettleTimeout bounds how long ?wait=true blocks for a recompute.
const DefaultSettleTimeout = 20 * time.Second

// Archiver stores trip exports.
type Archiver interface {
	Archive(ctx context.Context, tripID string, data []byte) (*export.Object, error)
}

// TripHandlerConfig configures a TripHandler.
type TripHandlerConfig struct {
	Store    *trip.Store
	Stops    *stops.Service
	Archiver Archiver // nil disables POST /exports
	Logger   zerolog.Logger

	// SettleTimeout bounds ?wait=true requests (default: DefaultSettleTimeout).
	SettleTimeout time.Duration
}

// TripHandler handles trip planning endpoints.
type TripHandler struct {
	store         *trip.Store
	stops         *stops.Service
	archiver      Archiver
	logger        zerolog.Logger
	settleTimeout time.Duration
}

// NewTripHandler creates a new TripHandler.
func NewTripHandler(cfg TripHandlerConfig) *TripHandler {
	timeout := cfg.SettleTimeout
	if timeout <= 0 {
		timeout = DefaultSettleTimeout
	}
	return &TripHandler{
		store:         cfg.Store,
		stops:         cfg.Stops,
		archiver:      cfg.Archiver,
		logger:        cfg.Logger,
		settleTimeout: timeout,
	}
}

// CreateTrip handles POST /v1/trips.
func (h *TripHandler) CreateTrip(w http.ResponseWriter, r *http.Request) {
	var input models.TripCreateRequest
	if err := decodeJSON(r, &input, true); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	initial, err := initialState(&input)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	sess := h.store.Create(r.Context(), initial)
	h.logger.Info().
		Str("trip_id", sess.ID()).
		Str("request_id", middleware.GetRequestID(r.Context())).
		Msg("trip created")

	snap, ok := h.settle(w, r, sess)
	if !ok {
		return
	}
	response.Created(w, r, "/v1/trips/"+sess.ID(), toAPITrip(snap))
}

func initialState(input *models.TripCreateRequest) (trip.State, error) {
	st := trip.DefaultState()

	start, end := st.Start, st.End
	if input.Start != "" {
		start = input.Start
	}
	if input.End != "" {
		end = input.End
	}
	st, _, err := trip.Reduce(st, trip.SetLocations{Start: start, End: end})
	if err != nil {
		return st, err
	}

	if input.Interval != nil {
		iv, err := parseInterval(input.Interval.Unit, &input.Interval.Value)
		if err != nil {
			return st, err
		}
		st.Interval = iv
	}

	if input.Categories != nil {
		cats, err := parseCategories(input.Categories)
		if err != nil {
			return st, err
		}
		if st, _, err = trip.Reduce(st, trip.SetSelectedCategories{Categories: cats}); err != nil {
			return st, err
		}
	}
	return st, nil
}

// GetTrip handles GET /v1/trips/{tripId}.
func (h *TripHandler) GetTrip(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	snap, ok := h.settle(w, r, sess)
	if !ok {
		return
	}
	response.JSON(w, r, http.StatusOK, toAPITrip(snap))
}

// DeleteTrip handles DELETE /v1/trips/{tripId}.
func (h *TripHandler) DeleteTrip(w http.ResponseWriter, r *http.Request) {
	tripID := chi.URLParam(r, "tripId")
	var itinerary []trip.Stop
	if sess, err := h.store.Get(tripID); err == nil {
		itinerary = sess.Snapshot().State.Itinerary
	}

	if err := h.store.Delete(r.Context(), tripID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	for _, st := range itinerary {
		h.deleteSavedStop(r.Context(), st.ID)
	}
	response.NoContent(w, r)
}

// UpdateLocations handles PUT /v1/trips/{tripId}/locations.
func (h *TripHandler) UpdateLocations(w http.ResponseWriter, r *http.Request) {
	var input models.LocationsUpdateRequest
	if err := decodeJSON(r, &input, false); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	var fieldErrors []models.FieldError
	if input.Start == "" {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "start", Message: "is required"})
	}
	if input.End == "" {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "end", Message: "is required"})
	}
	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "validation failed", fieldErrors)
		return
	}

	h.dispatch(w, r, trip.SetLocations{Start: input.Start, End: input.End})
}

// SwapLocations handles POST /v1/trips/{tripId}/locations:swap.
func (h *TripHandler) SwapLocations(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, trip.SwapLocations{})
}

// UpdateInterval handles PUT /v1/trips/{tripId}/interval.
func (h *TripHandler) UpdateInterval(w http.ResponseWriter, r *http.Request) {
	var input models.IntervalUpdateRequest
	if err := decodeJSON(r, &input, false); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	iv, err := parseInterval(input.Unit, input.Value)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.dispatch(w, r, trip.SetInterval{Interval: iv})
}

// parseInterval validates a user-supplied interval. A missing value takes the
// unit's default.
func parseInterval(unit string, value *float64) (trip.Interval, error) {
	u := trip.Unit(unit)
	if !u.Valid() {
		return trip.Interval{}, fmt.Errorf("%w: unit must be \"time\" or \"distance\", got %q", trip.ErrInvalidInterval, unit)
	}
	iv := trip.Interval{Unit: u, Value: u.DefaultValue()}
	if value != nil {
		iv.Value = *value
	}
	if err := iv.CheckBounds(); err != nil {
		return trip.Interval{}, err
	}
	return iv, nil
}

// UpdateCategories handles PUT /v1/trips/{tripId}/categories.
func (h *TripHandler) UpdateCategories(w http.ResponseWriter, r *http.Request) {
	var input models.CategoriesUpdateRequest
	if err := decodeJSON(r, &input, false); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	cats, err := parseCategories(input.Categories)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.dispatch(w, r, trip.SetSelectedCategories{Categories: cats})
}

func parseCategories(names []string) ([]places.Category, error) {
	cats := make([]places.Category, 0, len(names))
	for _, name := range names {
		c, err := places.ParseCategory(name)
		if err != nil {
			return nil, err
		}
		cats = append(cats, c)
	}
	return cats, nil
}

// ListCandidates handles GET /v1/trips/{tripId}/candidates.
func (h *TripHandler) ListCandidates(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	snap, ok := h.settle(w, r, sess)
	if !ok {
		return
	}

	items := snap.State.Candidates
	if category := r.URL.Query().Get("category"); category != "" {
		c, err := places.ParseCategory(category)
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		filtered := make([]trip.Candidate, 0, len(items))
		for _, cand := range items {
			if cand.Category == c {
				filtered = append(filtered, cand)
			}
		}
		items = filtered
	}

	response.JSON(w, r, http.StatusOK, models.CandidateList{
		TripID: snap.ID,
		Token:  snap.Token,
		Items:  toAPICandidates(items),
	})
}

// ListStopPoints handles GET /v1/trips/{tripId}/stop-points.
func (h *TripHandler) ListStopPoints(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	snap, ok := h.settle(w, r, sess)
	if !ok {
		return
	}
	response.JSON(w, r, http.StatusOK, models.StopPointList{
		TripID: snap.ID,
		Token:  snap.Token,
		Items:  toAPIStopPoints(snap.State.StopPoints),
	})
}

// AddStop handles POST /v1/trips/{tripId}/stops. The place is saved as a stop
// and then appended to the itinerary.
func (h *TripHandler) AddStop(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var input models.TripStopCreateRequest
	if err := decodeJSON(r, &input, false); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	cand, ok := h.resolveCandidate(w, r, sess.Snapshot().State, &input)
	if !ok {
		return
	}

	saved, err := h.stops.Create(r.Context(), &models.StopCreateRequest{
		PlaceID:  cand.PlaceID,
		Name:     cand.Name,
		Category: string(cand.Category),
		Location: &models.Point{Lat: cand.Location.Lat, Lng: cand.Location.Lng},
		Address:  cand.Address,
		Rating:   cand.Rating,
		Phone:    cand.Phone,
		Website:  cand.Website,
		Photos:   cand.Photos,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	cand.ID = saved.ID
	if _, err := sess.Dispatch(r.Context(), trip.AddStop{Stop: cand}); err != nil {
		h.deleteSavedStop(context.WithoutCancel(r.Context()), saved.ID)
		writeError(w, r, h.logger, err)
		return
	}

	snap, ok := h.settle(w, r, sess)
	if !ok {
		return
	}
	response.Created(w, r, "/v1/stops/"+saved.ID, toAPITrip(snap))
}

// resolveCandidate picks the current candidate named by placeId, or builds one
// from the explicit fields.
func (h *TripHandler) resolveCandidate(w http.ResponseWriter, r *http.Request, st trip.State, input *models.TripStopCreateRequest) (trip.Candidate, bool) {
	if input.PlaceID != "" {
		for _, c := range st.Candidates {
			if c.PlaceID == input.PlaceID || c.ID == input.PlaceID {
				return c, true
			}
		}
		if input.Name == "" {
			response.NotFound(w, r, "no current candidate with placeId "+input.PlaceID)
			return trip.Candidate{}, false
		}
	}

	if input.Location == nil {
		response.BadRequest(w, r, "validation failed", []models.FieldError{
			{Field: "placeId", Message: "required if location is not provided"},
			{Field: "location", Message: "required if placeId is not provided"},
		})
		return trip.Candidate{}, false
	}

	category, err := places.ParseCategory(input.Category)
	if err != nil {
		writeError(w, r, h.logger, err)
		return trip.Candidate{}, false
	}

	return trip.Candidate{
		PlaceID:  input.PlaceID,
		Name:     input.Name,
		Category: category,
		Location: geo.Coordinate{Lat: input.Location.Lat, Lng: input.Location.Lng},
		Address:  input.Address,
		Rating:   input.Rating,
	}, true
}

// RemoveStop handles DELETE /v1/trips/{tripId}/stops/{stopId}.
// The saved stop record AddStop created is deleted with it. Ids that are not
// in the itinerary leave saved stops untouched.
func (h *TripHandler) RemoveStop(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	stopID := chi.URLParam(r, "stopId")
	inItinerary := false
	for _, st := range sess.Snapshot().State.Itinerary {
		if st.ID == stopID {
			inItinerary = true
			break
		}
	}

	if _, err := sess.Dispatch(r.Context(), trip.RemoveStop{ID: stopID}); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if inItinerary {
		h.deleteSavedStop(r.Context(), stopID)
	}

	snap, ok := h.settle(w, r, sess)
	if !ok {
		return
	}
	response.JSON(w, r, http.StatusOK, toAPITrip(snap))
}

// deleteSavedStop removes the saved record behind an itinerary stop. A record
// already deleted through /v1/stops is fine; other failures are logged since
// the trip edit itself has succeeded.
func (h *TripHandler) deleteSavedStop(ctx context.Context, id string) {
	if err := h.stops.Delete(ctx, id); err != nil && !errors.Is(err, stops.ErrStopNotFound) {
		h.logger.Warn().Err(err).Str("stop_id", id).Msg("failed to delete saved stop")
	}
}

// ReorderStops handles PUT /v1/trips/{tripId}/stops:reorder.
func (h *TripHandler) ReorderStops(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var input models.ReorderStopsRequest
	if err := decodeJSON(r, &input, false); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	reordered, err := trip.PermuteItinerary(sess.Snapshot().State.Itinerary, input.StopIDs)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.dispatchTo(w, r, sess, trip.ReorderStops{Stops: reordered})
}

// ExportGeoJSON handles GET /v1/trips/{tripId}/export.geojson.
func (h *TripHandler) ExportGeoJSON(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	snap, ok := h.settle(w, r, sess)
	if !ok {
		return
	}

	data, err := json.Marshal(export.Itinerary(snap))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if requestID := middleware.GetRequestID(r.Context()); requestID != "" {
		w.Header().Set("X-Request-Id", requestID)
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+snap.ID+`.geojson"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// ArchiveExport handles POST /v1/trips/{tripId}/exports.
func (h *TripHandler) ArchiveExport(w http.ResponseWriter, r *http.Request) {
	if h.archiver == nil {
		response.ServiceUnavailable(w, r, export.ErrArchiveDisabled.Error())
		return
	}

	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	snap, ok := h.settle(w, r, sess)
	if !ok {
		return
	}

	data, err := json.Marshal(export.Itinerary(snap))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	obj, err := h.archiver.Archive(r.Context(), snap.ID, data)
	if err != nil {
		h.logger.Error().Err(err).Str("trip_id", snap.ID).Msg("failed to archive export")
		response.ServiceUnavailable(w, r, "export archive is unavailable")
		return
	}

	response.Created(w, r, "", models.ExportObject{
		Bucket:    obj.Bucket,
		Key:       obj.Key,
		Size:      obj.Size,
		CreatedAt: models.Timestamp(obj.CreatedAt),
	})
}

func (h *TripHandler) session(w http.ResponseWriter, r *http.Request) (*trip.Session, bool) {
	sess, err := h.store.Get(chi.URLParam(r, "tripId"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return nil, false
	}
	return sess, true
}

func (h *TripHandler) dispatch(w http.ResponseWriter, r *http.Request, a trip.Action) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	h.dispatchTo(w, r, sess, a)
}

func (h *TripHandler) dispatchTo(w http.ResponseWriter, r *http.Request, sess *trip.Session, a trip.Action) {
	if _, err := sess.Dispatch(r.Context(), a); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	snap, ok := h.settle(w, r, sess)
	if !ok {
		return
	}
	response.JSON(w, r, http.StatusOK, toAPITrip(snap))
}

// settle returns the session snapshot. With ?wait=true it first waits for the
// pending recompute and reports its failure as the response.
func (h *TripHandler) settle(w http.ResponseWriter, r *http.Request, sess *trip.Session) (trip.Snapshot, bool) {
	if r.URL.Query().Get("wait") != "true" {
		return sess.Snapshot(), true
	}

	timer := time.NewTimer(h.settleTimeout)
	defer timer.Stop()

	select {
	case <-sess.Settled():
	case <-timer.C:
		// Still pending; the client polls from here.
	case <-r.Context().Done():
		return trip.Snapshot{}, false
	}

	snap := sess.Snapshot()
	if snap.Status == trip.StatusFailed && snap.LastError != nil {
		writeError(w, r, h.logger, snap.LastError)
		return snap, false
	}
	return snap, true
}
