package projector

import (
	"math"
	"testing"

	"github.com/transitlens/transitlens/pkg/transit"
)

var testBounds = transit.BoundingBox{
	MinLat: 40.0,
	MaxLat: 41.4,
	MinLng: -74.8,
	MaxLng: -73.2,
}

func TestNewRejectsDegenerateBounds(t *testing.T) {
	tests := []struct {
		name   string
		bounds transit.BoundingBox
	}{
		{"zero box", transit.BoundingBox{}},
		{"inverted latitude", transit.BoundingBox{MinLat: 41, MaxLat: 40, MinLng: -74, MaxLng: -73}},
		{"flat longitude", transit.BoundingBox{MinLat: 40, MaxLat: 41, MinLng: -74, MaxLng: -74}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.bounds); err == nil {
				t.Errorf("New(%+v) expected error", tt.bounds)
			}
		})
	}
}

func TestCenterProjectsToSurfaceMiddle(t *testing.T) {
	p, err := New(testBounds)
	if err != nil {
		t.Fatal(err)
	}

	center := transit.Location{Latitude: 40.7128, Longitude: -74.0060}

	for zoom := transit.MinZoom; zoom <= transit.MaxZoom; zoom++ {
		view := transit.Viewport{Center: center, Zoom: zoom, Width: 800, Height: 600}

		point := p.Project(center, view)

		if math.Abs(point.X-400) > 0.5 || math.Abs(point.Y-300) > 0.5 {
			t.Errorf("zoom %d: center projected to (%f, %f), want (400, 300)", zoom, point.X, point.Y)
		}
	}
}

func TestProjectionMonotonic(t *testing.T) {
	p, err := New(testBounds)
	if err != nil {
		t.Fatal(err)
	}

	view := transit.Viewport{
		Center: transit.Location{Latitude: 40.7, Longitude: -74.0},
		Zoom:   12,
		Width:  800,
		Height: 600,
	}

	prev := p.Project(transit.Location{Latitude: 40.7, Longitude: -74.7}, view)
	for lng := -74.6; lng < -73.3; lng += 0.1 {
		point := p.Project(transit.Location{Latitude: 40.7, Longitude: lng}, view)
		if point.X <= prev.X {
			t.Fatalf("x not increasing at lng %f: %f <= %f", lng, point.X, prev.X)
		}
		prev = point
	}

	prev = p.Project(transit.Location{Latitude: 40.1, Longitude: -74.0}, view)
	for lat := 40.2; lat < 41.3; lat += 0.1 {
		point := p.Project(transit.Location{Latitude: lat, Longitude: -74.0}, view)
		if point.Y >= prev.Y {
			t.Fatalf("y not decreasing at lat %f: %f >= %f", lat, point.Y, prev.Y)
		}
		prev = point
	}
}

func TestZoomScaleRoundTrip(t *testing.T) {
	for steps := 1; steps <= 5; steps++ {
		zoomedIn := Scale(13 + steps)
		base := Scale(13)

		if math.Abs(zoomedIn/math.Exp2(float64(steps))-base) > 1e-12 {
			t.Errorf("scale round trip over %d steps drifted: in=%f base=%f", steps, zoomedIn, base)
		}
	}
}

func TestScaleClampsZoom(t *testing.T) {
	if Scale(transit.MinZoom-5) != Scale(transit.MinZoom) {
		t.Error("scale below MinZoom not clamped")
	}
	if Scale(transit.MaxZoom+5) != Scale(transit.MaxZoom) {
		t.Error("scale above MaxZoom not clamped")
	}
}

func TestVisibilityScenario(t *testing.T) {
	p, err := New(testBounds)
	if err != nil {
		t.Fatal(err)
	}

	view := transit.Viewport{
		Center: transit.Location{Latitude: 40.7128, Longitude: -74.0060},
		Zoom:   13,
		Width:  800,
		Height: 600,
	}

	nearby := p.Project(transit.Location{Latitude: 40.7580, Longitude: -73.9855}, view)
	if !nearby.Within(view.Width, view.Height) {
		t.Errorf("vehicle near the center projected off-surface: %+v", nearby)
	}

	distant := p.Project(transit.Location{Latitude: 41.5, Longitude: -73.9855}, view)
	if distant.Within(view.Width, view.Height) {
		t.Errorf("vehicle far outside the viewport projected on-surface: %+v", distant)
	}
}

func TestDegenerateSurface(t *testing.T) {
	p, err := New(testBounds)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		width  int
		height int
	}{
		{"zero width", 0, 600},
		{"zero height", 800, 0},
		{"both zero", 0, 0},
		{"negative", -10, -10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view := transit.Viewport{
				Center: testBounds.Center(),
				Zoom:   transit.MaxZoom,
				Width:  tt.width,
				Height: tt.height,
			}

			point := p.Project(testBounds.Center(), view)

			if point != (Point{}) {
				t.Errorf("degenerate surface projected to %+v, want origin", point)
			}
			if math.IsNaN(point.X) || math.IsNaN(point.Y) {
				t.Error("degenerate surface produced NaN")
			}
		})
	}
}
