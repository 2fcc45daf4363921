package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
	"github.com/transitlens/transitlens/pkg/config"
	"github.com/transitlens/transitlens/pkg/fleetstore"
	"github.com/transitlens/transitlens/pkg/livefeed"
	"github.com/transitlens/transitlens/pkg/markers"
	"github.com/transitlens/transitlens/pkg/poller"
	"github.com/transitlens/transitlens/pkg/projector"
	"github.com/transitlens/transitlens/pkg/transit"
	"github.com/transitlens/transitlens/pkg/viewport"
)

// DataSource is the consumed fetch contract: initial and on-demand
// retrieval of vehicles and stops.
type DataSource interface {
	FetchVehicles(ctx context.Context, bounds *transit.BoundingBox) ([]transit.Vehicle, error)
	FetchStops(ctx context.Context) ([]transit.Stop, error)
}

// Status is the tracking pipeline's health as shown to the user. Stale
// must always be visibly indicated; tracking quietly going cold is the
// one failure mode this system is not allowed to hide.
type Status struct {
	Connection        livefeed.ConnectionState
	ReconnectAttempts int
	Staleness         time.Duration
	Stale             bool
	LastError         string
}

// Frame is what the render target receives on every relevant state
// change. Markers carries the projected positions that survived culling;
// the core never draws anything itself.
type Frame struct {
	Vehicles []transit.Vehicle
	Stops    []transit.Stop
	Viewport transit.Viewport
	Markers  []markers.Marker
	Status   Status
}

type RenderFunc func(Frame)

// Tracker wires the live feed, the polling fallback, the fleet store,
// the viewport and the projector together. A single event loop goroutine
// serializes every merge and redraw, so handlers never interleave.
type Tracker struct {
	cfg    config.Config
	source DataSource
	render RenderFunc

	store     *fleetstore.Store
	feed      *livefeed.Client
	poller    *poller.Poller
	viewport  *viewport.Controller
	projector *projector.Projector
	layer     *markers.Layer

	// pollBatches coalesces: each batch is a full snapshot, so when the
	// loop falls behind only the newest one matters.
	pollBatches chan []transit.Vehicle

	mu        sync.Mutex
	lastError string

	staleAfter time.Duration
}

func New(cfg config.Config, source DataSource, geolocator viewport.Geolocator, render RenderFunc) (*Tracker, error) {
	proj, err := projector.New(cfg.Map.Bounds)
	if err != nil {
		return nil, err
	}

	controller := viewport.NewController(cfg.Map.DefaultCenter, geolocator)
	controller.SetZoom(cfg.Map.DefaultZoom)

	t := &Tracker{
		cfg:    cfg,
		source: source,
		render: render,

		store:     fleetstore.NewStore(cfg.Map.AbsenceTolerance),
		viewport:  controller,
		projector: proj,
		layer:     markers.NewLayer(markers.DefaultHitRadius),

		pollBatches: make(chan []transit.Vehicle, 1),

		staleAfter: 3 * cfg.Polling.Interval.Std(),
	}

	t.feed = livefeed.NewClient(livefeed.Config{
		URL:              cfg.LiveFeed.URL,
		AccessToken:      cfg.DataSource.AccessToken,
		BaseRetryDelay:   cfg.LiveFeed.BaseRetryDelay.Std(),
		MaxRetryAttempts: cfg.LiveFeed.MaxRetryAttempts,
	})

	t.poller = poller.New(source, t, poller.Config{
		Interval:     cfg.Polling.Interval.Std(),
		FetchTimeout: cfg.DataSource.Timeout.Std(),
		Margin:       cfg.Polling.Margin,
		Viewport:     controller,
	})

	return t, nil
}

// Viewport exposes the viewport controller for pan/zoom/locate actions.
func (t *Tracker) Viewport() *viewport.Controller {
	return t.viewport
}

// Markers exposes the interaction layer for hit-testing and selection.
func (t *Tracker) Markers() *markers.Layer {
	return t.layer
}

func (t *Tracker) Store() *fleetstore.Store {
	return t.store
}

// Run drives the pipeline until the context is cancelled. The live
// connection, its reconnect timer and the polling interval are all torn
// down on every exit path.
func (t *Tracker) Run(ctx context.Context) error {
	t.bootstrap(ctx)

	if err := t.feed.Connect(); err != nil {
		return err
	}
	defer t.feed.Disconnect()

	var group conc.WaitGroup
	group.Go(func() {
		t.poller.Run(ctx)
	})
	group.Go(func() {
		t.loop(ctx)
	})
	group.Wait()

	return nil
}

// bootstrap seeds the store with one initial fetch of stops and
// vehicles. Failures are logged and left to the polling fallback.
func (t *Tracker) bootstrap(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, t.cfg.DataSource.Timeout.Std())
	defer cancel()

	if stops, err := t.source.FetchStops(ctx); err != nil {
		log.Warn().Err(err).Msg("Initial stop fetch failed")
	} else {
		t.store.MergeStops(stops)
	}

	if vehicles, err := t.source.FetchVehicles(ctx, nil); err != nil {
		log.Warn().Err(err).Msg("Initial vehicle fetch failed")
	} else {
		t.store.MergeVehicles(vehicles)
	}

	t.redraw()
}

func (t *Tracker) loop(ctx context.Context) {
	events := t.feed.Events()

	for {
		select {
		case <-ctx.Done():
			t.feed.Disconnect()
			return
		case event, open := <-events:
			if !open {
				return
			}
			t.handleEvent(event)
		case batch := <-t.pollBatches:
			t.store.MergeVehicles(batch)
			t.redraw()
		case <-t.viewport.Changes():
			t.redraw()
		}
	}
}

func (t *Tracker) handleEvent(event livefeed.Event) {
	switch event := event.(type) {
	case livefeed.VehiclesEvent:
		t.store.MergeVehicles(event.Vehicles)
		t.redraw()
	case livefeed.StopsEvent:
		t.store.MergeStops(event.Stops)
		t.redraw()
	case livefeed.ServerErrorEvent:
		log.Warn().Str("message", event.Message).Msg("Live feed server error")
		t.setLastError(event.Message)
	case livefeed.StateEvent:
		log.Info().Stringer("state", event.State).Int("attempt", event.Attempt).Msg("Live feed state changed")
		t.redraw()
	case livefeed.TerminalErrorEvent:
		log.Error().Err(event.Err).Msg("Live feed gave up reconnecting, relying on polling fallback")
		t.setLastError(event.Err.Error())
		t.redraw()
	}
}

// HandleVehicleBatch implements poller.Sink. Batches are forwarded into
// the event loop so merges from both sources stay serialized; if the
// loop is behind, the newer full snapshot replaces the queued one.
func (t *Tracker) HandleVehicleBatch(batch []transit.Vehicle) {
	for {
		select {
		case t.pollBatches <- batch:
			return
		default:
			select {
			case <-t.pollBatches:
			default:
			}
		}
	}
}

func (t *Tracker) Status() Status {
	t.mu.Lock()
	lastError := t.lastError
	t.mu.Unlock()

	staleness := t.store.Staleness()
	state := t.feed.State()

	return Status{
		Connection:        state,
		ReconnectAttempts: t.feed.Attempts(),
		Staleness:         staleness,
		Stale:             state != livefeed.StateConnected || staleness > t.staleAfter,
		LastError:         lastError,
	}
}

func (t *Tracker) setLastError(message string) {
	t.mu.Lock()
	t.lastError = message
	t.mu.Unlock()
}

// redraw projects the current snapshot, culls off-surface positions,
// refreshes the interaction layer and invokes the render target.
func (t *Tracker) redraw() {
	snapshot := t.store.Snapshot()
	view := t.viewport.View()

	frame := Frame{
		Vehicles: snapshot.Vehicles,
		Stops:    snapshot.Stops,
		Viewport: view,
		Status:   t.Status(),
	}

	if view.Width > 0 && view.Height > 0 {
		for i := range frame.Vehicles {
			vehicle := &frame.Vehicles[i]
			point := t.projector.Project(vehicle.Location(), view)
			if !point.Within(view.Width, view.Height) {
				continue
			}
			frame.Markers = append(frame.Markers, markers.Marker{
				Kind:  markers.KindVehicle,
				ID:    vehicle.ID,
				X:     point.X,
				Y:     point.Y,
				Stale: vehicle.Stale,
			})
		}

		for i := range frame.Stops {
			stop := &frame.Stops[i]
			point := t.projector.Project(stop.Location(), view)
			if !point.Within(view.Width, view.Height) {
				continue
			}
			frame.Markers = append(frame.Markers, markers.Marker{
				Kind: markers.KindStop,
				ID:   stop.ID,
				X:    point.X,
				Y:    point.Y,
			})
		}
	}

	t.layer.SetMarkers(frame.Markers)

	if t.render != nil {
		t.render(frame)
	}
}
