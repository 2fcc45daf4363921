package projector

import (
	"errors"
	"math"

	"github.com/transitlens/transitlens/pkg/transit"
)

var ErrInvalidBounds = errors.New("projection bounding box is degenerate")

// Point is a position on the drawing surface in pixels, origin top-left.
type Point struct {
	X float64
	Y float64
}

// Within reports whether the point lands on a surface of the given size.
// Culling is the caller's job; Project never clamps.
func (p Point) Within(width int, height int) bool {
	return p.X >= 0 && p.X <= float64(width) && p.Y >= 0 && p.Y <= float64(height)
}

// Projector maps geographic points onto a viewport using a flat
// equirectangular projection over a fixed bounding box. It holds no
// mutable state and is safe to call on every redraw.
type Projector struct {
	bounds transit.BoundingBox

	latRange float64
	lngRange float64
}

func New(bounds transit.BoundingBox) (*Projector, error) {
	if !bounds.Valid() {
		return nil, ErrInvalidBounds
	}

	return &Projector{
		bounds:   bounds,
		latRange: bounds.MaxLat - bounds.MinLat,
		lngRange: bounds.MaxLng - bounds.MinLng,
	}, nil
}

func (p *Projector) Bounds() transit.BoundingBox {
	return p.bounds
}

// Scale returns the zoom magnification relative to the reference zoom.
// Each integer step doubles the pixels covered by a geographic offset.
func Scale(zoom int) float64 {
	return math.Exp2(float64(transit.ClampZoom(zoom) - transit.ReferenceZoom))
}

// Project maps a geographic point to surface pixels for the given
// viewport. The viewport center always lands on the geometric middle of
// the surface; points outside the bounding box still project without
// clamping. A zero-size surface deterministically yields the origin.
func (p *Projector) Project(point transit.Location, view transit.Viewport) Point {
	if view.Width <= 0 || view.Height <= 0 {
		return Point{}
	}

	scale := Scale(view.Zoom)
	boxCenter := p.bounds.Center()

	// Scale the center-relative offset, re-anchored at the bounding box
	// center so the base projection puts the viewport center mid-surface.
	effectiveLat := boxCenter.Latitude + (point.Latitude-view.Center.Latitude)*scale
	effectiveLng := boxCenter.Longitude + (point.Longitude-view.Center.Longitude)*scale

	return Point{
		X: (effectiveLng - p.bounds.MinLng) / p.lngRange * float64(view.Width),
		Y: (p.bounds.MaxLat - effectiveLat) / p.latRange * float64(view.Height),
	}
}
