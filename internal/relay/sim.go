// internal/relay/sim.go
package relay

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/tamzrod/uavbridge/internal/bus"
	"github.com/tamzrod/uavbridge/internal/config"
	"github.com/tamzrod/uavbridge/internal/fgfs"
)

const DefaultSimPeriod = 250 * time.Millisecond

type SimConfig struct {
	Period time.Duration
	Client fgfs.TelemetrySource
	Logger *slog.Logger
}

// SimAdapter publishes simulator telemetry and forwards commands and
// position overrides into the simulator.
type SimAdapter struct {
	cfg SimConfig
	cmd fgfs.Commander // nil when the source cannot write
	log *slog.Logger
}

var _ Adapter = (*SimAdapter)(nil)

func NewSimAdapter(cfg SimConfig) *SimAdapter {
	if cfg.Period <= 0 {
		cfg.Period = DefaultSimPeriod
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	a := &SimAdapter{
		cfg: cfg,
		log: cfg.Logger.With("adapter", config.AdapterSim),
	}
	a.cmd, _ = cfg.Client.(fgfs.Commander)
	return a
}

func (a *SimAdapter) Name() string          { return config.AdapterSim }
func (a *SimAdapter) Period() time.Duration { return a.cfg.Period }

func (a *SimAdapter) Open(ctx context.Context) error {
	return a.cfg.Client.Connect(ctx)
}

func (a *SimAdapter) Join(ctx context.Context, s *Session) error {
	if a.cmd == nil {
		a.log.Info("simulator source is read-only; not subscribing to commands")
		return nil
	}

	if err := s.Subscribe(ctx, bus.TopicCommand, a.onCommand); err != nil {
		return err
	}
	return s.Subscribe(ctx, bus.TopicPosition, a.onPosition)
}

func (a *SimAdapter) Cycle(ctx context.Context, s *Session) error {
	snap, err := a.cfg.Client.ReadTelemetry(ctx)
	if err != nil {
		return err
	}
	return s.Publish(ctx, bus.TopicTelemetry, snap.Map())
}

func (a *SimAdapter) Teardown() {
	if err := a.cfg.Client.Close(); err != nil {
		a.log.Debug("close", "error", err)
	}
}

func (a *SimAdapter) onCommand(_ context.Context, msg bus.Message) error {
	var line string
	if err := msg.Decode(&line); err != nil {
		return err
	}

	a.log.Debug("command", "line", line)
	return a.cmd.SendCommand(line)
}

func (a *SimAdapter) onPosition(_ context.Context, msg bus.Message) error {
	var p bus.Position
	if err := msg.Decode(&p); err != nil {
		return err
	}

	a.log.Info("position override", "lat", p.Lat, "lon", p.Lon)
	return a.cmd.SetPosition(
		strconv.FormatFloat(p.Lat, 'f', -1, 64),
		strconv.FormatFloat(p.Lon, 'f', -1, 64),
	)
}
