package handler

import (
	"github.com/roadstop/roadstop/internal/api/models"
	"github.com/roadstop/roadstop/internal/geo"
	"github.com/roadstop/roadstop/internal/places"
	"github.com/roadstop/roadstop/internal/routing"
	"github.com/roadstop/roadstop/internal/trip"
)

func toAPIPoint(c geo.Coordinate) models.Point {
	return models.Point{Lat: c.Lat, Lng: c.Lng}
}

func toAPIPointPtr(c *geo.Coordinate) *models.Point {
	if c == nil {
		return nil
	}
	p := toAPIPoint(*c)
	return &p
}

func toAPIInterval(iv trip.Interval) models.Interval {
	return models.Interval{Unit: string(iv.Unit), Value: iv.Value}
}

func toAPICategories(cs []places.Category) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, string(c))
	}
	return out
}

func toAPIRoute(r *routing.Route) *models.Route {
	if r == nil {
		return nil
	}
	legs := make([]models.RouteLeg, 0, len(r.Legs))
	for _, l := range r.Legs {
		legs = append(legs, models.RouteLeg{
			DistanceMeters:  l.DistanceMeters,
			DurationSeconds: l.DurationSeconds,
			Start:           toAPIPoint(l.StartLocation),
			End:             toAPIPoint(l.EndLocation),
		})
	}
	polyline := r.GeometryPolyline
	if polyline == "" {
		polyline = geo.EncodePolyline(r.Path)
	}
	out := &models.Route{
		Provider:  r.Provider,
		Summary:   r.Summary,
		Polyline:  polyline,
		Legs:      legs,
		FetchedAt: models.Timestamp(r.FetchedAt),
	}
	if r.Bounds != nil {
		out.Bounds = &models.Bounds{
			MinLat: r.Bounds.MinLat,
			MinLng: r.Bounds.MinLng,
			MaxLat: r.Bounds.MaxLat,
			MaxLng: r.Bounds.MaxLng,
		}
	}
	return out
}

func toAPIStopPoints(points []trip.StopPoint) []models.StopPoint {
	out := make([]models.StopPoint, 0, len(points))
	for i, p := range points {
		out = append(out, models.StopPoint{
			Index:             i,
			Location:          toAPIPoint(p.Location),
			DistanceFromStart: p.DistanceFromStart,
			DurationFromStart: p.DurationFromStart,
			DistanceFromPrev:  p.DistanceFromPrev,
			DurationFromPrev:  p.DurationFromPrev,
			Distance:          trip.FormatDistance(p.DistanceFromStart),
			Duration:          trip.FormatDuration(p.DurationFromStart),
		})
	}
	return out
}

func toAPICandidate(c trip.Candidate) models.Candidate {
	return models.Candidate{
		ID:                c.ID,
		PlaceID:           c.PlaceID,
		Name:              c.Name,
		Category:          string(c.Category),
		CategoryLabel:     c.Category.Label(),
		Location:          toAPIPoint(c.Location),
		Rating:            c.Rating,
		Address:           c.Address,
		Phone:             c.Phone,
		Website:           c.Website,
		Photos:            c.Photos,
		Hours:             c.Hours,
		IsOpen:            c.IsOpen,
		StopPointIndex:    c.StopPointIndex,
		OffRouteDistance:  c.OffRouteDistance,
		DistanceFromStart: c.DistanceFromStart,
		DurationFromStart: c.DurationFromStart,
		DistanceFromPrev:  c.DistanceFromPrev,
		DurationFromPrev:  c.DurationFromPrev,
		OffRoute:          trip.FormatDistance(c.OffRouteDistance) + " off route",
		FromLastStop:      trip.FormatDuration(c.DurationFromPrev) + " from last stop",
	}
}

func toAPICandidates(cs []trip.Candidate) []models.Candidate {
	out := make([]models.Candidate, 0, len(cs))
	for _, c := range cs {
		out = append(out, toAPICandidate(c))
	}
	return out
}

func toAPITrip(snap trip.Snapshot) models.Trip {
	st := snap.State
	out := models.Trip{
		ID:            snap.ID,
		Status:        string(snap.Status),
		Token:         snap.Token,
		Start:         st.Start,
		End:           st.End,
		StartLocation: toAPIPointPtr(st.StartLocation),
		EndLocation:   toAPIPointPtr(st.EndLocation),
		Interval:      toAPIInterval(st.Interval),
		Categories:    toAPICategories(st.Categories),
		Itinerary:     toAPICandidates(st.Itinerary),
		Metrics: models.TripMetrics{
			DistanceMeters:  snap.Metrics.DistanceMeters,
			DurationSeconds: snap.Metrics.DurationSeconds,
			Distance:        trip.FormatDistance(snap.Metrics.DistanceMeters),
			Duration:        trip.FormatDuration(snap.Metrics.DurationSeconds),
		},
		Route:      toAPIRoute(st.Directions),
		StopPoints: len(st.StopPoints),
		Candidates: len(st.Candidates),
		UpdatedAt:  models.Timestamp(snap.UpdatedAt),
	}
	if snap.LastError != nil {
		out.LastError = &models.TripError{
			Type:   errorType(snap.LastError),
			Detail: snap.LastError.Error(),
		}
	}
	return out
}
