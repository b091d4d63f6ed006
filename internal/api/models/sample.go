package models

// SampleRequest samples a route supplied by the caller. Either Polyline or
// Path must be set. Totals default to the path length and, for time
// intervals, DurationSeconds is required.
type SampleRequest struct {
	Polyline        string   `json:"polyline,omitempty"`
	Path            []Point  `json:"path,omitempty"`
	DistanceMeters  *float64 `json:"distanceMeters,omitempty"`
	DurationSeconds *float64 `json:"durationSeconds,omitempty"`
	Interval        Interval `json:"interval"`
}

// SampleResponse lists sampled stop points.
type SampleResponse struct {
	NumStops   int         `json:"numStops"`
	StopPoints []StopPoint `json:"stopPoints"`
}
