package markers

import (
	"math"
	"sync"
)

const DefaultHitRadius = 16.0

// Kind says what a marker represents on screen.
type Kind int

const (
	KindVehicle Kind = iota
	KindStop
)

func (k Kind) String() string {
	if k == KindStop {
		return "stop"
	}

	return "vehicle"
}

// Marker is a projected, on-screen entity available for interaction.
type Marker struct {
	Kind Kind
	ID   string

	X float64
	Y float64

	Stale bool
}

// Layer owns hit-testing and selection for rendered markers. It consumes
// the projector's output and never touches geographic coordinates.
type Layer struct {
	mu sync.Mutex

	markers   []Marker
	hitRadius float64

	selected    *Marker
	subscribers []func(Marker, bool)
}

func NewLayer(hitRadius float64) *Layer {
	if hitRadius <= 0 {
		hitRadius = DefaultHitRadius
	}

	return &Layer{hitRadius: hitRadius}
}

// OnSelect registers a subscriber for selection changes. The bool is
// false when the selection was cleared.
func (l *Layer) OnSelect(subscriber func(Marker, bool)) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.subscribers = append(l.subscribers, subscriber)
}

// SetMarkers replaces the interactive marker set, normally once per
// redraw. A selected marker keeps its selection across updates and
// follows its new position; if its entity disappeared the selection is
// cleared.
func (l *Layer) SetMarkers(markers []Marker) {
	l.mu.Lock()

	l.markers = markers

	var cleared bool
	if l.selected != nil {
		moved := false
		for i := range markers {
			if markers[i].ID == l.selected.ID && markers[i].Kind == l.selected.Kind {
				l.selected = &markers[i]
				moved = true
				break
			}
		}
		if !moved {
			l.selected = nil
			cleared = true
		}
	}

	subscribers := l.subscribers
	l.mu.Unlock()

	if cleared {
		for _, subscriber := range subscribers {
			subscriber(Marker{}, false)
		}
	}
}

// HitTest finds the nearest marker within the hit radius of a surface
// point. Ties go to the closer marker.
func (l *Layer) HitTest(x float64, y float64) (Marker, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.nearest(x, y)
}

// Click runs a hit test and updates the selection: a hit selects the
// marker, a miss clears any existing selection.
func (l *Layer) Click(x float64, y float64) (Marker, bool) {
	l.mu.Lock()

	marker, hit := l.nearest(x, y)
	if hit {
		l.selected = &marker
	} else {
		l.selected = nil
	}

	subscribers := l.subscribers
	l.mu.Unlock()

	for _, subscriber := range subscribers {
		subscriber(marker, hit)
	}

	return marker, hit
}

func (l *Layer) Selected() (Marker, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.selected == nil {
		return Marker{}, false
	}

	return *l.selected, true
}

func (l *Layer) nearest(x float64, y float64) (Marker, bool) {
	bestDistance := l.hitRadius
	found := false
	var best Marker

	for _, marker := range l.markers {
		distance := math.Hypot(marker.X-x, marker.Y-y)
		if distance <= bestDistance {
			best = marker
			bestDistance = distance
			found = true
		}
	}

	return best, found
}
