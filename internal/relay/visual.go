// internal/relay/visual.go
package relay

import (
	"context"
	"log/slog"
	"time"

	"github.com/tamzrod/uavbridge/internal/bus"
	"github.com/tamzrod/uavbridge/internal/config"
	"github.com/tamzrod/uavbridge/internal/freshness"
	"github.com/tamzrod/uavbridge/internal/mapui"
	"github.com/tamzrod/uavbridge/internal/metrics"
	"github.com/tamzrod/uavbridge/internal/telemetry"
)

const DefaultMapPeriod = 100 * time.Millisecond

type MapConfig struct {
	Period time.Duration

	// Out receives the aircraft position for the map page.
	Out *freshness.Slot[mapui.Marker]

	// In and PID hold overrides produced by the map page.
	In  *freshness.Slot[bus.Position]
	PID *freshness.Slot[bus.PID]

	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// MapAdapter moves positions between the bus and the map page's slots.
// It has no transport of its own.
type MapAdapter struct {
	cfg MapConfig
	log *slog.Logger
}

var _ Adapter = (*MapAdapter)(nil)

func NewMapAdapter(cfg MapConfig) *MapAdapter {
	if cfg.Period <= 0 {
		cfg.Period = DefaultMapPeriod
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &MapAdapter{
		cfg: cfg,
		log: cfg.Logger.With("adapter", config.AdapterMap),
	}
}

func (a *MapAdapter) Name() string               { return config.AdapterMap }
func (a *MapAdapter) Period() time.Duration      { return a.cfg.Period }
func (a *MapAdapter) Open(context.Context) error { return nil }
func (a *MapAdapter) Teardown()                  {}

func (a *MapAdapter) Join(ctx context.Context, s *Session) error {
	return s.Subscribe(ctx, bus.TopicTelemetry, a.onTelemetry)
}

// Cycle publishes at most one forced position and one set of gains.
func (a *MapAdapter) Cycle(ctx context.Context, s *Session) error {
	if p, ok := a.cfg.In.Pop(); ok {
		if err := s.Publish(ctx, bus.TopicPosition, p); err != nil {
			return err
		}
	}

	if a.cfg.PID == nil {
		return nil
	}
	if g, ok := a.cfg.PID.Pop(); ok {
		if err := s.Publish(ctx, bus.TopicPID, g); err != nil {
			return err
		}
	}
	return nil
}

func (a *MapAdapter) onTelemetry(_ context.Context, msg bus.Message) error {
	var m map[string]any
	if err := msg.Decode(&m); err != nil {
		return err
	}
	snap := telemetry.FromMap(m)

	lat, err := snap.Float(telemetry.KeyLatitude)
	if err != nil {
		return err
	}
	lng, err := snap.Float(telemetry.KeyLongitude)
	if err != nil {
		return err
	}
	hdg, err := snap.Float(telemetry.KeyHeading)
	if err != nil {
		return err
	}

	a.cfg.Out.Push(mapui.Marker{Lat: lat, Lng: lng, Heading: hdg})
	a.cfg.Metrics.SetOverwritten("map.out", a.cfg.Out.Overwritten())
	return nil
}
