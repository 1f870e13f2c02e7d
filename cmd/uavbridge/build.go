// cmd/uavbridge/build.go
package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tamzrod/uavbridge/internal/bus"
	"github.com/tamzrod/uavbridge/internal/config"
	"github.com/tamzrod/uavbridge/internal/fgfs"
	"github.com/tamzrod/uavbridge/internal/freshness"
	"github.com/tamzrod/uavbridge/internal/mapui"
	"github.com/tamzrod/uavbridge/internal/metrics"
	"github.com/tamzrod/uavbridge/internal/nmea"
	"github.com/tamzrod/uavbridge/internal/relay"
	"github.com/tamzrod/uavbridge/internal/serialport"
	"github.com/tamzrod/uavbridge/internal/stats"
	"github.com/tamzrod/uavbridge/internal/writer"
)

// service is a long-running helper next to the adapters.
type service func(ctx context.Context) error

// build turns a validated, normalized config into adapters and helpers.
func build(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) ([]relay.Adapter, []service, error) {
	var (
		adapters []relay.Adapter
		services []service
	)

	for _, name := range cfg.Enabled() {
		switch name {

		// ---- simulator ----
		case config.AdapterSim:
			s := cfg.Simulator
			adapters = append(adapters, relay.NewSimAdapter(relay.SimConfig{
				Period: config.Ms(s.PeriodMs),
				Client: simulatorClient(s, logger),
				Logger: logger,
			}))

		// ---- hardware ----
		case config.AdapterHardware:
			h := cfg.Hardware
			mode, err := nmea.ParseChecksumMode(h.Checksum)
			if err != nil {
				return nil, nil, err
			}

			open := relay.SerialOpener(
				serialport.Config{Path: h.Device, BaudRate: h.Baud, Logger: logger},
				serialport.Selector{VendorID: h.VendorID, ProductID: h.ProductID, InterfaceClass: h.InterfaceClass},
				serialport.NewResolver(logger),
			)
			adapters = append(adapters, relay.NewHardwareAdapter(relay.HardwareConfig{
				Period:  config.Ms(h.PeriodMs),
				Open:    open,
				Encoder: nmea.Encoder{Checksum: mode},
				Logger:  logger,
			}))

		// ---- map ----
		case config.AdapterMap:
			out := freshness.New[mapui.Marker]()
			in := freshness.New[bus.Position]()
			pid := freshness.New[bus.PID]()

			adapters = append(adapters, relay.NewMapAdapter(relay.MapConfig{
				Period:  config.Ms(cfg.Map.PeriodMs),
				Out:     out,
				In:      in,
				PID:     pid,
				Metrics: m,
				Logger:  logger,
			}))

			srv := mapui.New(mapui.Config{
				Listen: cfg.Map.Listen,
				Out:    out,
				In:     in,
				PID:    pid,
				Logger: logger,
			})
			services = append(services, srv.Run)

		// ---- statistics ----
		case config.AdapterStatistics:
			st := cfg.Statistics
			adapters = append(adapters, relay.NewStatisticsAdapter(relay.StatisticsConfig{
				Store:   stats.Config{Path: st.Path, PoolSize: st.PoolSize, Logger: logger},
				Durable: st.Durable,
				Metrics: m,
				Logger:  logger,
			}))

		// ---- mirror ----
		case config.AdapterMirror:
			plan, err := writer.BuildPlan(*cfg.Mirror)
			if err != nil {
				return nil, nil, err
			}
			adapters = append(adapters, relay.NewMirrorAdapter(relay.MirrorConfig{
				Plan:    plan,
				Timeout: config.Ms(cfg.Mirror.TimeoutMs),
				Period:  config.Ms(cfg.Mirror.PeriodMs),
				Logger:  logger,
			}))

		default:
			return nil, nil, fmt.Errorf("unknown adapter %q", name)
		}
	}

	return adapters, services, nil
}

func simulatorClient(s *config.SimulatorConfig, logger *slog.Logger) fgfs.TelemetrySource {
	if s.Transport == "udp" {
		return fgfs.NewDatagramClient(fgfs.DatagramConfig{
			Listen:    s.Listen,
			Fields:    s.Fields,
			Separator: s.Separator,
			IOTimeout: config.Ms(s.IOTimeoutMs),
			Logger:    logger,
		})
	}

	return fgfs.NewTelnetClient(fgfs.TelnetConfig{
		Addr:        s.Address,
		DialTimeout: config.Ms(s.DialTimeoutMs),
		IOTimeout:   config.Ms(s.IOTimeoutMs),
		Commands:    s.Commands,
		Logger:      logger,
	})
}

func natsConfig(b config.BusConfig) bus.NATSConfig {
	return bus.NATSConfig{
		URL:            b.URL,
		ConnectTimeout: config.Ms(b.ConnectTimeoutMs),
		ReconnectWait:  config.Ms(b.ReconnectWaitMs),
		StreamPrefix:   b.StreamPrefix,
		Redelivery:     config.Ms(b.RedeliveryMs),
	}
}
