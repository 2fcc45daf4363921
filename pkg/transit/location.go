package transit

// Location is a geographic point in WGS84 degrees.
type Location struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// BoundingBox is a geographic rectangle. It defines the flat projection
// domain and the optional polling window.
type BoundingBox struct {
	MinLat float64 `json:"minLat" yaml:"minLat"`
	MaxLat float64 `json:"maxLat" yaml:"maxLat"`
	MinLng float64 `json:"minLng" yaml:"minLng"`
	MaxLng float64 `json:"maxLng" yaml:"maxLng"`
}

func (b BoundingBox) Valid() bool {
	return b.MaxLat > b.MinLat && b.MaxLng > b.MinLng
}

func (b BoundingBox) Center() Location {
	return Location{
		Latitude:  (b.MinLat + b.MaxLat) / 2,
		Longitude: (b.MinLng + b.MaxLng) / 2,
	}
}

func (b BoundingBox) Contains(location Location) bool {
	return location.Latitude >= b.MinLat && location.Latitude <= b.MaxLat &&
		location.Longitude >= b.MinLng && location.Longitude <= b.MaxLng
}

// BoxAround returns the bounding box of center ± margin degrees on both axes.
func BoxAround(center Location, margin float64) BoundingBox {
	return BoundingBox{
		MinLat: center.Latitude - margin,
		MaxLat: center.Latitude + margin,
		MinLng: center.Longitude - margin,
		MaxLng: center.Longitude + margin,
	}
}
