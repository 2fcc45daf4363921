package transit

// Zoom bounds for the map viewport. ReferenceZoom is the level at which
// the base projection maps the bounding box 1:1 onto the surface.
const (
	MinZoom       = 8
	MaxZoom       = 18
	ReferenceZoom = 10
)

// Viewport is the drawing surface's center, zoom level and pixel size.
type Viewport struct {
	Center Location `json:"center"`
	Zoom   int      `json:"zoom"`

	Width  int `json:"width"`
	Height int `json:"height"`
}

// ClampZoom bounds a zoom level to [MinZoom, MaxZoom].
func ClampZoom(zoom int) int {
	if zoom < MinZoom {
		return MinZoom
	}
	if zoom > MaxZoom {
		return MaxZoom
	}

	return zoom
}
