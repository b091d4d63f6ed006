package models

// StopCreateRequest saves a place as a stop.
type StopCreateRequest struct {
	PlaceID  string   `json:"placeId,omitempty"`
	Name     string   `json:"name"`
	Category string   `json:"category"`
	Location *Point   `json:"location"`
	Address  string   `json:"address,omitempty"`
	Rating   float64  `json:"rating,omitempty"`
	Phone    string   `json:"phone,omitempty"`
	Website  string   `json:"website,omitempty"`
	Photos   []string `json:"photos,omitempty"`
}

// Stop is a saved place.
type Stop struct {
	ID        string    `json:"id"`
	PlaceID   string    `json:"placeId,omitempty"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Location  Point     `json:"location"`
	Address   string    `json:"address,omitempty"`
	Rating    float64   `json:"rating,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Website   string    `json:"website,omitempty"`
	Photos    []string  `json:"photos,omitempty"`
	CreatedAt Timestamp `json:"createdAt"`
}

// StopList is every saved stop.
type StopList struct {
	Items []Stop `json:"items"`
}
