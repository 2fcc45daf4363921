package transit

// Stop is a transit stop and its upcoming arrivals. Stops are largely
// static between refreshes; the arrivals list is replaced wholesale on
// each update, never merged entry by entry.
type Stop struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`

	RouteIDs []string `json:"routes"`

	Arrivals []Arrival `json:"arrivals"`
}

// Arrival is one entry on a stop's departure board.
type Arrival struct {
	RouteID   string    `json:"routeId"`
	Direction string    `json:"direction"`
	ETA       string    `json:"eta"`
	Occupancy Occupancy `json:"occupancy"`
}

func (s *Stop) Location() Location {
	return Location{Latitude: s.Latitude, Longitude: s.Longitude}
}
