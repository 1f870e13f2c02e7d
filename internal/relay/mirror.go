// internal/relay/mirror.go
package relay

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/tamzrod/uavbridge/internal/bus"
	"github.com/tamzrod/uavbridge/internal/config"
	"github.com/tamzrod/uavbridge/internal/status"
	"github.com/tamzrod/uavbridge/internal/telemetry"
	"github.com/tamzrod/uavbridge/internal/writer"
)

const (
	DefaultMirrorPeriod = time.Second

	// statusCallTimeout bounds one health query per adapter.
	statusCallTimeout = 500 * time.Millisecond
)

// MirrorDialer connects the register writers for a plan.
type MirrorDialer func(plan writer.Plan) (*writer.Target, error)

type MirrorConfig struct {
	Plan    writer.Plan
	Timeout time.Duration
	Period  time.Duration

	// Dial defaults to writer.Dial over Modbus TCP.
	Dial MirrorDialer

	Logger *slog.Logger
}

// MirrorAdapter copies telemetry into holding registers and, each cycle,
// the health of every listed adapter into its status block.
type MirrorAdapter struct {
	cfg    MirrorConfig
	target *writer.Target
	names  []string
	log    *slog.Logger
}

var _ Adapter = (*MirrorAdapter)(nil)

func NewMirrorAdapter(cfg MirrorConfig) *MirrorAdapter {
	if cfg.Period <= 0 {
		cfg.Period = DefaultMirrorPeriod
	}
	if cfg.Dial == nil {
		timeout := cfg.Timeout
		cfg.Dial = func(p writer.Plan) (*writer.Target, error) { return writer.Dial(p, timeout) }
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &MirrorAdapter{
		cfg: cfg,
		log: cfg.Logger.With("adapter", config.AdapterMirror),
	}
}

func (a *MirrorAdapter) Name() string          { return config.AdapterMirror }
func (a *MirrorAdapter) Period() time.Duration { return a.cfg.Period }

func (a *MirrorAdapter) Open(context.Context) error {
	t, err := a.cfg.Dial(a.cfg.Plan)
	if err != nil {
		return err
	}
	a.target = t

	a.names = a.names[:0]
	for name := range t.Statuses {
		a.names = append(a.names, name)
	}
	sort.Strings(a.names)
	return nil
}

func (a *MirrorAdapter) Join(ctx context.Context, s *Session) error {
	return s.Subscribe(ctx, bus.TopicTelemetry, a.onTelemetry)
}

// Cycle asks every listed adapter for its health and writes it.
// An adapter that does not answer is reported with unknown health.
func (a *MirrorAdapter) Cycle(ctx context.Context, s *Session) error {
	for _, name := range a.names {
		snap := a.query(ctx, s, name)
		if err := a.target.Statuses[name].WriteStatus(snap); err != nil {
			return err
		}
	}
	return nil
}

func (a *MirrorAdapter) query(ctx context.Context, s *Session, name string) status.Snapshot {
	callCtx, cancel := context.WithTimeout(ctx, statusCallTimeout)
	defer cancel()

	var snap status.Snapshot
	err := s.Call(callCtx, bus.StatusProcedure(name), struct{}{}, &snap)
	if err == nil {
		return snap
	}

	if !errors.Is(err, bus.ErrNoProcedure) {
		a.log.Debug("status query failed", "target", name, "error", err)
	}
	return status.Snapshot{Adapter: name, Health: status.HealthUnknown}
}

func (a *MirrorAdapter) Teardown() {
	if a.target == nil {
		return
	}
	if err := a.target.Close(); err != nil {
		a.log.Debug("close", "error", err)
	}
	a.target = nil
}

func (a *MirrorAdapter) onTelemetry(_ context.Context, msg bus.Message) error {
	var m map[string]any
	if err := msg.Decode(&m); err != nil {
		return err
	}
	return a.target.Writer.Write(telemetry.FromMap(m))
}
