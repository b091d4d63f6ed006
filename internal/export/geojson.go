// Package export renders trips as GeoJSON and archives them to object storage.
package export

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/roadstop/roadstop/internal/geo"
	"github.com/roadstop/roadstop/internal/trip"
)

// Feature kinds, set as the "kind" property.
const (
	KindRoute     = "route"
	KindStart     = "start"
	KindEnd       = "end"
	KindStop      = "stop"
	KindStopPoint = "stop_point"
)

// Itinerary renders a trip snapshot as a FeatureCollection: the route line,
// its endpoints, the itinerary stops in order and the sampled stop points.
func Itinerary(snap trip.Snapshot) *geojson.FeatureCollection {
	st := snap.State
	fc := geojson.NewFeatureCollection()

	if path := trip.RoutePath(st.Directions); len(path) >= 2 {
		f := geojson.NewFeature(lineString(path))
		f.Properties["kind"] = KindRoute
		f.Properties["trip_id"] = snap.ID
		f.Properties["distance_meters"] = snap.Metrics.DistanceMeters
		f.Properties["duration_seconds"] = snap.Metrics.DurationSeconds
		f.Properties["distance"] = trip.FormatDistance(snap.Metrics.DistanceMeters)
		f.Properties["duration"] = trip.FormatDuration(snap.Metrics.DurationSeconds)
		if st.Directions.Summary != "" {
			f.Properties["summary"] = st.Directions.Summary
		}
		if b := st.Directions.Bounds; b != nil {
			f.BBox = geojson.BBox{b.MinLng, b.MinLat, b.MaxLng, b.MaxLat}
		}
		fc.Append(f)
	}

	if st.StartLocation != nil {
		f := geojson.NewFeature(st.StartLocation.Point())
		f.Properties["kind"] = KindStart
		f.Properties["name"] = st.Start
		fc.Append(f)
	}

	for i, s := range st.Itinerary {
		f := geojson.NewFeature(s.Location.Point())
		f.ID = s.ID
		f.Properties["kind"] = KindStop
		f.Properties["order"] = i + 1
		f.Properties["name"] = s.Name
		f.Properties["category"] = string(s.Category)
		if s.PlaceID != "" {
			f.Properties["place_id"] = s.PlaceID
		}
		if s.Address != "" {
			f.Properties["address"] = s.Address
		}
		if s.Rating > 0 {
			f.Properties["rating"] = s.Rating
		}
		fc.Append(f)
	}

	if st.EndLocation != nil {
		f := geojson.NewFeature(st.EndLocation.Point())
		f.Properties["kind"] = KindEnd
		f.Properties["name"] = st.End
		fc.Append(f)
	}

	for i, sp := range st.StopPoints {
		f := geojson.NewFeature(sp.Location.Point())
		f.Properties["kind"] = KindStopPoint
		f.Properties["index"] = i
		f.Properties["distance_from_start"] = sp.DistanceFromStart
		f.Properties["duration_from_start"] = sp.DurationFromStart
		f.Properties["label"] = trip.FormatDistance(sp.DistanceFromStart) + ", " + trip.FormatDuration(sp.DurationFromStart)
		fc.Append(f)
	}

	return fc
}

func lineString(path []geo.Coordinate) orb.LineString {
	ls := make(orb.LineString, 0, len(path))
	for _, c := range path {
		ls = append(ls, c.Point())
	}
	return ls
}
