package transit

// Vehicle is a single tracked vehicle as reported by the backend. The
// identifier is stable across updates; position and occupancy change on
// every refresh.
type Vehicle struct {
	ID      string `json:"id"`
	RouteID string `json:"routeId"`

	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
	Heading   string  `json:"heading"`

	Occupancy Occupancy `json:"occupancy"`

	NextStopID      string `json:"nextStop,omitempty"`
	ArrivalEstimate string `json:"eta,omitempty"`

	SpeedKPH     *float64 `json:"speed,omitempty"`
	DelayMinutes *int     `json:"delay,omitempty"`

	// Stale is set by the fleet store when the vehicle was absent from the
	// most recent snapshot but is still within the absence tolerance.
	Stale bool `json:"-"`
}

func (v *Vehicle) Location() Location {
	return Location{Latitude: v.Latitude, Longitude: v.Longitude}
}
