package poller

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/transitlens/transitlens/pkg/transit"
)

const (
	DefaultInterval     = 10 * time.Second
	DefaultFetchTimeout = 10 * time.Second

	// DefaultMargin is the half-size, in degrees, of the bounding window
	// around the viewport center used to scope each poll.
	DefaultMargin = 0.25
)

// VehicleSource is the pull side of the data source contract.
type VehicleSource interface {
	FetchVehicles(ctx context.Context, bounds *transit.BoundingBox) ([]transit.Vehicle, error)
}

// Sink receives each successfully polled vehicle batch. Batches end up
// at the same fleet store merge entry point the live feed uses.
type Sink interface {
	HandleVehicleBatch(batch []transit.Vehicle)
}

// ViewportSource exposes the current viewport so polls can be scoped to
// a geographic window around it.
type ViewportSource interface {
	View() transit.Viewport
}

type Config struct {
	Interval     time.Duration
	FetchTimeout time.Duration

	// Margin scopes each poll to viewport center ± margin degrees.
	// Zero or a nil viewport source means unscoped polls.
	Margin   float64
	Viewport ViewportSource
}

// Poller bounds staleness independently of live feed health: it pulls
// the current vehicle state on a fixed interval no matter what the
// connection is doing. A failed poll is logged and skipped; it never
// stops the interval and never propagates to the caller.
type Poller struct {
	config Config
	source VehicleSource
	sink   Sink
}

func New(source VehicleSource, sink Sink, config Config) *Poller {
	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}
	if config.FetchTimeout <= 0 {
		config.FetchTimeout = DefaultFetchTimeout
	}

	return &Poller{
		config: config,
		source: source,
		sink:   sink,
	}
}

// Run polls until the context is cancelled. The ticker is always
// released on exit.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	log.Info().Dur("interval", p.config.Interval).Msg("Starting polling fallback")

	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("Polling fallback stopped")
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.config.FetchTimeout)
	defer cancel()

	batch, err := p.source.FetchVehicles(ctx, p.bounds())
	if err != nil {
		log.Warn().Err(err).Msg("Poll failed, skipping tick")
		return
	}

	p.sink.HandleVehicleBatch(batch)
}

func (p *Poller) bounds() *transit.BoundingBox {
	if p.config.Viewport == nil || p.config.Margin <= 0 {
		return nil
	}

	window := transit.BoxAround(p.config.Viewport.View().Center, p.config.Margin)

	return &window
}
