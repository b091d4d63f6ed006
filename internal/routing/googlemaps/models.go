package googlemaps

type directionsResponse struct {
	Routes       []directionsRoute `json:"routes"`
	Status       string            `json:"status"`
	ErrorMessage string            `json:"error_message,omitempty"`
}

type directionsRoute struct {
	Summary          string           `json:"summary"`
	Legs             []directionsLeg  `json:"legs"`
	OverviewPolyline overviewPolyline `json:"overview_polyline"`
	Bounds           *bounds          `json:"bounds,omitempty"`
}

// directionsLeg fields missing from the payload decode to zero, which the
// domain reads as "absent".
type directionsLeg struct {
	Distance      textValue `json:"distance"`
	Duration      textValue `json:"duration"`
	StartLocation latLng    `json:"start_location"`
	EndLocation   latLng    `json:"end_location"`
}

type textValue struct {
	Text  string `json:"text"`
	Value int    `json:"value"`
}

type latLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type bounds struct {
	Northeast latLng `json:"northeast"`
	Southwest latLng `json:"southwest"`
}

type overviewPolyline struct {
	Points string `json:"points"`
}
