package viewport

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/transitlens/transitlens/pkg/transit"
)

const (
	DefaultZoom          = 13
	DefaultLocateTimeout = 10 * time.Second
)

// DefaultCenter is where the viewport falls back to whenever
// geolocation fails.
var DefaultCenter = transit.Location{Latitude: 40.7128, Longitude: -74.0060}

// Geolocator resolves the user's current position. Implementations must
// honor the context deadline rather than hang.
type Geolocator interface {
	CurrentPosition(ctx context.Context) (transit.Location, error)
}

// LocateOutcome reports where the viewport ended up after a locate
// action. The viewport is never left in an undefined state: on failure
// Center is the default center and Advisory carries the user message.
type LocateOutcome struct {
	Center   transit.Location
	Located  bool
	Cause    PositionFailureCause
	Advisory string
}

// Controller owns the viewport: center, zoom level and surface
// dimensions. The projector reads the viewport but never mutates it.
type Controller struct {
	mu   sync.Mutex
	view transit.Viewport

	geolocator    Geolocator
	locateTimeout time.Duration

	// changes coalesces notifications: only the latest viewport matters.
	changes chan transit.Viewport
}

func NewController(center transit.Location, geolocator Geolocator) *Controller {
	return &Controller{
		view: transit.Viewport{
			Center: center,
			Zoom:   DefaultZoom,
		},
		geolocator:    geolocator,
		locateTimeout: DefaultLocateTimeout,
		changes:       make(chan transit.Viewport, 1),
	}
}

// Changes delivers the viewport after every mutation. Intermediate
// values may be dropped; the latest one is always observable.
func (c *Controller) Changes() <-chan transit.Viewport {
	return c.changes
}

func (c *Controller) View() transit.Viewport {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.view
}

func (c *Controller) ZoomIn() int {
	return c.SetZoom(c.View().Zoom + 1)
}

func (c *Controller) ZoomOut() int {
	return c.SetZoom(c.View().Zoom - 1)
}

func (c *Controller) SetZoom(zoom int) int {
	c.mu.Lock()
	c.view.Zoom = transit.ClampZoom(zoom)
	clamped := c.view.Zoom
	view := c.view
	c.mu.Unlock()

	c.notify(view)

	return clamped
}

func (c *Controller) SetCenter(center transit.Location) {
	c.mu.Lock()
	c.view.Center = center
	view := c.view
	c.mu.Unlock()

	c.notify(view)
}

// Pan shifts the center by the given geographic offset.
func (c *Controller) Pan(deltaLat float64, deltaLng float64) {
	c.mu.Lock()
	c.view.Center.Latitude += deltaLat
	c.view.Center.Longitude += deltaLng
	view := c.view
	c.mu.Unlock()

	c.notify(view)
}

// Resize records new surface dimensions, typically from a container
// resize signal. Negative dimensions are treated as zero.
func (c *Controller) Resize(width int, height int) {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}

	c.mu.Lock()
	c.view.Width = width
	c.view.Height = height
	view := c.view
	c.mu.Unlock()

	c.notify(view)
}

// Locate recenters the viewport on the user's position. On any failure
// it classifies the cause, recenters on DefaultCenter and returns an
// advisory for the UI layer; it never leaves the center undefined.
func (c *Controller) Locate(ctx context.Context) LocateOutcome {
	if c.geolocator == nil {
		c.SetCenter(DefaultCenter)

		return LocateOutcome{
			Center:   DefaultCenter,
			Cause:    CausePositionUnavailable,
			Advisory: Advisory(CausePositionUnavailable),
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.locateTimeout)
	defer cancel()

	position, err := c.geolocator.CurrentPosition(ctx)
	if err != nil {
		cause := ClassifyPositionError(err)
		log.Warn().Err(err).Stringer("cause", cause).Msg("Geolocation failed, using default center")

		c.SetCenter(DefaultCenter)

		return LocateOutcome{
			Center:   DefaultCenter,
			Cause:    cause,
			Advisory: Advisory(cause),
		}
	}

	c.SetCenter(position)

	return LocateOutcome{Center: position, Located: true}
}

func (c *Controller) notify(view transit.Viewport) {
	for {
		select {
		case c.changes <- view:
			return
		default:
			// Full: evict the stale value and publish the latest.
			select {
			case <-c.changes:
			default:
			}
		}
	}
}
