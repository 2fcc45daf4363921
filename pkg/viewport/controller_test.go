package viewport

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/transitlens/transitlens/pkg/transit"
)

type stubGeolocator struct {
	position transit.Location
	err      error
}

func (g stubGeolocator) CurrentPosition(ctx context.Context) (transit.Location, error) {
	if g.err != nil {
		return transit.Location{}, g.err
	}

	return g.position, nil
}

func TestZoomClampedToBounds(t *testing.T) {
	controller := NewController(DefaultCenter, nil)

	controller.SetZoom(transit.MaxZoom)
	if got := controller.ZoomIn(); got != transit.MaxZoom {
		t.Errorf("zoom in at max = %d, want %d", got, transit.MaxZoom)
	}

	controller.SetZoom(transit.MinZoom)
	if got := controller.ZoomOut(); got != transit.MinZoom {
		t.Errorf("zoom out at min = %d, want %d", got, transit.MinZoom)
	}

	if got := controller.SetZoom(99); got != transit.MaxZoom {
		t.Errorf("SetZoom(99) = %d, want clamped to %d", got, transit.MaxZoom)
	}
}

func TestZoomRoundTrip(t *testing.T) {
	controller := NewController(DefaultCenter, nil)
	controller.SetZoom(12)

	for i := 0; i < 3; i++ {
		controller.ZoomIn()
	}
	for i := 0; i < 3; i++ {
		controller.ZoomOut()
	}

	if got := controller.View().Zoom; got != 12 {
		t.Errorf("zoom after symmetric in/out = %d, want 12", got)
	}
}

func TestResizeClampsNegativeDimensions(t *testing.T) {
	controller := NewController(DefaultCenter, nil)

	controller.Resize(-100, -50)

	view := controller.View()
	if view.Width != 0 || view.Height != 0 {
		t.Errorf("negative resize gave %dx%d, want 0x0", view.Width, view.Height)
	}
}

func TestLocateSuccessRecenters(t *testing.T) {
	position := transit.Location{Latitude: 40.7580, Longitude: -73.9855}
	controller := NewController(DefaultCenter, stubGeolocator{position: position})

	outcome := controller.Locate(context.Background())

	if !outcome.Located || outcome.Center != position {
		t.Errorf("locate outcome = %+v, want located at %+v", outcome, position)
	}
	if controller.View().Center != position {
		t.Errorf("viewport center = %+v, want %+v", controller.View().Center, position)
	}
}

func TestLocateFailureFallsBackToDefaultCenter(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantCause    PositionFailureCause
		advisoryHint string
	}{
		{
			name:         "permission denied",
			err:          &PositionError{Cause: CausePermissionDenied},
			wantCause:    CausePermissionDenied,
			advisoryHint: "denied",
		},
		{
			name:         "timeout",
			err:          context.DeadlineExceeded,
			wantCause:    CauseTimeout,
			advisoryHint: "too long",
		},
		{
			name:         "unavailable",
			err:          &PositionError{Cause: CausePositionUnavailable},
			wantCause:    CausePositionUnavailable,
			advisoryHint: "could not be determined",
		},
		{
			name:         "unclassified",
			err:          errors.New("gps exploded"),
			wantCause:    CauseUnknown,
			advisoryHint: "went wrong",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			controller := NewController(transit.Location{Latitude: 1, Longitude: 1}, stubGeolocator{err: tt.err})

			outcome := controller.Locate(context.Background())

			if outcome.Located {
				t.Error("failed locate reported success")
			}
			if outcome.Cause != tt.wantCause {
				t.Errorf("cause = %s, want %s", outcome.Cause, tt.wantCause)
			}
			if outcome.Center != DefaultCenter || controller.View().Center != DefaultCenter {
				t.Errorf("center = %+v, want default %+v", outcome.Center, DefaultCenter)
			}
			if !strings.Contains(outcome.Advisory, tt.advisoryHint) {
				t.Errorf("advisory %q does not hint at %q", outcome.Advisory, tt.advisoryHint)
			}
		})
	}
}

func TestAdvisoriesDistinguishDenialFromTimeout(t *testing.T) {
	if Advisory(CausePermissionDenied) == Advisory(CauseTimeout) {
		t.Error("denied and timeout advisories must differ")
	}
}

func TestChangesDeliversLatestViewport(t *testing.T) {
	controller := NewController(DefaultCenter, nil)

	// More mutations than the channel buffers; the latest must win.
	controller.SetZoom(10)
	controller.SetZoom(11)
	controller.Resize(800, 600)

	var latest transit.Viewport
	for {
		select {
		case view := <-controller.Changes():
			latest = view
			continue
		default:
		}
		break
	}

	if latest.Zoom != 11 || latest.Width != 800 || latest.Height != 600 {
		t.Errorf("latest observed viewport = %+v", latest)
	}
}
