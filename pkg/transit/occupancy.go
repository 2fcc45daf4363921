package transit

import "encoding/json"

// Occupancy is how full a vehicle currently is. Levels are ordered so
// OccupancyLow < OccupancyMedium < OccupancyHigh.
type Occupancy int

const (
	OccupancyUnknown Occupancy = iota
	OccupancyLow
	OccupancyMedium
	OccupancyHigh
)

func (o Occupancy) String() string {
	switch o {
	case OccupancyLow:
		return "low"
	case OccupancyMedium:
		return "medium"
	case OccupancyHigh:
		return "high"
	default:
		return "unknown"
	}
}

// ParseOccupancy maps a wire value to an Occupancy. Values it doesn't
// recognise become OccupancyUnknown rather than an error.
func ParseOccupancy(value string) Occupancy {
	switch value {
	case "low":
		return OccupancyLow
	case "medium":
		return OccupancyMedium
	case "high":
		return OccupancyHigh
	default:
		return OccupancyUnknown
	}
}

func (o Occupancy) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

func (o *Occupancy) UnmarshalJSON(data []byte) error {
	var value string
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}

	*o = ParseOccupancy(value)

	return nil
}
