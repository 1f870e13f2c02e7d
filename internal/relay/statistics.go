// internal/relay/statistics.go
package relay

import (
	"context"
	"log/slog"
	"time"

	"github.com/tamzrod/uavbridge/internal/bus"
	"github.com/tamzrod/uavbridge/internal/config"
	"github.com/tamzrod/uavbridge/internal/metrics"
	"github.com/tamzrod/uavbridge/internal/stats"
	"github.com/tamzrod/uavbridge/internal/telemetry"
)

const DefaultStatisticsPeriod = 100 * time.Millisecond

type StatisticsConfig struct {
	Store   stats.Config
	Durable string

	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// StatisticsAdapter appends every telemetry sample to the statistics store.
// It reads through a durable consumer, so samples published while it was
// down are appended once it is back.
type StatisticsAdapter struct {
	cfg   StatisticsConfig
	store *stats.Store
	log   *slog.Logger
}

var _ Adapter = (*StatisticsAdapter)(nil)

func NewStatisticsAdapter(cfg StatisticsConfig) *StatisticsAdapter {
	if cfg.Durable == "" {
		cfg.Durable = config.DefaultDurable
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Store.Logger == nil {
		cfg.Store.Logger = cfg.Logger
	}

	return &StatisticsAdapter{
		cfg: cfg,
		log: cfg.Logger.With("adapter", config.AdapterStatistics),
	}
}

func (a *StatisticsAdapter) Name() string          { return config.AdapterStatistics }
func (a *StatisticsAdapter) Period() time.Duration { return DefaultStatisticsPeriod }

func (a *StatisticsAdapter) Open(context.Context) error {
	st, err := stats.Open(a.cfg.Store)
	if err != nil {
		return err
	}
	a.store = st
	return nil
}

func (a *StatisticsAdapter) Join(ctx context.Context, s *Session) error {
	return s.Consume(ctx, bus.TopicTelemetry, a.cfg.Durable, a.onTelemetry)
}

func (a *StatisticsAdapter) Cycle(context.Context, *Session) error { return nil }

func (a *StatisticsAdapter) Teardown() {
	if a.store == nil {
		return
	}
	if err := a.store.Close(); err != nil {
		a.log.Debug("close", "error", err)
	}
	a.store = nil
}

func (a *StatisticsAdapter) onTelemetry(ctx context.Context, msg bus.Message) error {
	var m map[string]any
	if err := msg.Decode(&m); err != nil {
		return err
	}
	snap := telemetry.FromMap(m)

	speed, err := snap.Float(telemetry.KeyAirspeed)
	if err != nil {
		return err
	}
	alt, err := snap.Float(telemetry.KeyAltitude)
	if err != nil {
		return err
	}

	if err := a.store.Append(ctx, stats.Row{At: snap.At, Speed: speed, Altitude: alt}); err != nil {
		return err
	}
	a.cfg.Metrics.RowAppended()
	return nil
}
