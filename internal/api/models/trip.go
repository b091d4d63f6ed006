package models

// Interval is the spacing between stop points: hours for "time", miles for "distance".
type Interval struct {
	Unit  string  `json:"unit"`
	Value float64 `json:"value"`
}

// TripCreateRequest creates a trip. Omitted fields take the defaults
// (New York to Los Angeles, every 2 hours, food and gas).
type TripCreateRequest struct {
	Start      string    `json:"start,omitempty"`
	End        string    `json:"end,omitempty"`
	Interval   *Interval `json:"interval,omitempty"`
	Categories []string  `json:"categories,omitempty"`
}

// LocationsUpdateRequest replaces a trip's start and end.
type LocationsUpdateRequest struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// IntervalUpdateRequest replaces a trip's interval. Value may be omitted to
// reset to the unit's default.
type IntervalUpdateRequest struct {
	Unit  string   `json:"unit"`
	Value *float64 `json:"value,omitempty"`
}

// CategoriesUpdateRequest replaces the searched categories.
type CategoriesUpdateRequest struct {
	Categories []string `json:"categories"`
}

// ReorderStopsRequest lists itinerary stop IDs in their new order.
type ReorderStopsRequest struct {
	StopIDs []string `json:"stopIds"`
}

// TripStopCreateRequest adds a stop to a trip's itinerary, either by picking
// a current candidate (placeId) or by supplying the place directly.
type TripStopCreateRequest struct {
	PlaceID  string  `json:"placeId,omitempty"`
	Name     string  `json:"name,omitempty"`
	Category string  `json:"category,omitempty"`
	Location *Point  `json:"location,omitempty"`
	Address  string  `json:"address,omitempty"`
	Rating   float64 `json:"rating,omitempty"`
}

// TripMetrics are route totals.
type TripMetrics struct {
	DistanceMeters  float64 `json:"distanceMeters"`
	DurationSeconds float64 `json:"durationSeconds"`
	Distance        string  `json:"distance"`
	Duration        string  `json:"duration"`
}

// RouteLeg is one routed segment.
type RouteLeg struct {
	DistanceMeters  float64 `json:"distanceMeters"`
	DurationSeconds float64 `json:"durationSeconds"`
	Start           Point   `json:"start"`
	End             Point   `json:"end"`
}

// Route is the current driving route.
type Route struct {
	Provider  string     `json:"provider"`
	Summary   string     `json:"summary,omitempty"`
	Polyline  string     `json:"polyline"`
	Legs      []RouteLeg `json:"legs"`
	Bounds    *Bounds    `json:"bounds,omitempty"`
	FetchedAt Timestamp  `json:"fetchedAt"`
}

// StopPoint is a sampled location along the route.
type StopPoint struct {
	Index             int     `json:"index"`
	Location          Point   `json:"location"`
	DistanceFromStart float64 `json:"distanceFromStart"`
	DurationFromStart float64 `json:"durationFromStart"`
	DistanceFromPrev  float64 `json:"distanceFromPrev"`
	DurationFromPrev  float64 `json:"durationFromPrev"`
	Distance          string  `json:"distance"`
	Duration          string  `json:"duration"`
}

// Candidate is a place near the route, annotated with route-relative metrics.
// Itinerary stops share the shape.
type Candidate struct {
	ID                string   `json:"id"`
	PlaceID           string   `json:"placeId,omitempty"`
	Name              string   `json:"name"`
	Category          string   `json:"category"`
	CategoryLabel     string   `json:"categoryLabel"`
	Location          Point    `json:"location"`
	Rating            float64  `json:"rating,omitempty"`
	Address           string   `json:"address,omitempty"`
	Phone             string   `json:"phone,omitempty"`
	Website           string   `json:"website,omitempty"`
	Photos            []string `json:"photos,omitempty"`
	Hours             []string `json:"hours,omitempty"`
	IsOpen            *bool    `json:"isOpen,omitempty"`
	StopPointIndex    int      `json:"stopPointIndex"`
	OffRouteDistance  float64  `json:"offRouteDistance"`
	DistanceFromStart float64  `json:"distanceFromStart"`
	DurationFromStart float64  `json:"durationFromStart"`
	DistanceFromPrev  float64  `json:"distanceFromPrev"`
	DurationFromPrev  float64  `json:"durationFromPrev"`
	OffRoute          string   `json:"offRoute"`
	FromLastStop      string   `json:"fromLastStop"`
}

// TripError describes the last failed recompute.
type TripError struct {
	Type   string `json:"type"`
	Detail string `json:"detail"`
}

// Trip is the full state of a trip.
type Trip struct {
	ID            string       `json:"id"`
	Status        string       `json:"status"`
	Token         uint64       `json:"token"`
	Start         string       `json:"start"`
	End           string       `json:"end"`
	StartLocation *Point       `json:"startLocation,omitempty"`
	EndLocation   *Point       `json:"endLocation,omitempty"`
	Interval      Interval     `json:"interval"`
	Categories    []string     `json:"categories"`
	Itinerary     []Candidate  `json:"itinerary"`
	Metrics       TripMetrics  `json:"metrics"`
	Route         *Route       `json:"route,omitempty"`
	StopPoints    int          `json:"stopPointCount"`
	Candidates    int          `json:"candidateCount"`
	LastError     *TripError   `json:"lastError,omitempty"`
	UpdatedAt     Timestamp    `json:"updatedAt"`
}

// CandidateList is the candidate pool of a trip.
type CandidateList struct {
	TripID string      `json:"tripId"`
	Token  uint64      `json:"token"`
	Items  []Candidate `json:"items"`
}

// StopPointList is the sampled stop points of a trip.
type StopPointList struct {
	TripID string      `json:"tripId"`
	Token  uint64      `json:"token"`
	Items  []StopPoint `json:"items"`
}

// ExportObject describes an archived export.
type ExportObject struct {
	Bucket    string    `json:"bucket"`
	Key       string    `json:"key"`
	Size      int64     `json:"size"`
	CreatedAt Timestamp `json:"createdAt"`
}
