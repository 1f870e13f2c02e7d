// internal/relay/hardware.go
package relay

import (
	"context"
	"log/slog"
	"time"

	"github.com/tamzrod/uavbridge/internal/bus"
	"github.com/tamzrod/uavbridge/internal/config"
	"github.com/tamzrod/uavbridge/internal/nmea"
	"github.com/tamzrod/uavbridge/internal/serialport"
	"github.com/tamzrod/uavbridge/internal/telemetry"
)

const (
	DefaultHardwarePeriod = 500 * time.Millisecond

	// defaultMaxLines bounds how many buffered command lines one cycle drains.
	defaultMaxLines = 8
)

// LineDevice is the line-oriented link to the autopilot.
type LineDevice interface {
	WriteLine(text string) error
	PollReadable() (bool, error)
	ReadLine(ctx context.Context) (string, error)
	Close() error
}

// DeviceOpener opens the autopilot link.
type DeviceOpener func(ctx context.Context) (LineDevice, error)

// SerialOpener opens cfg.Path, or the first device matching sel when
// cfg.Path is empty. Resolution waits until a matching device appears.
func SerialOpener(cfg serialport.Config, sel serialport.Selector, resolver *serialport.Resolver) DeviceOpener {
	return func(ctx context.Context) (LineDevice, error) {
		c := cfg
		if c.Path == "" {
			path, err := resolver.Resolve(ctx, sel)
			if err != nil {
				return nil, err
			}
			c.Path = path
		}

		ch, err := serialport.Open(c)
		if err != nil {
			return nil, err
		}
		return ch, nil
	}
}

type HardwareConfig struct {
	Period  time.Duration
	Open    DeviceOpener
	Encoder nmea.Encoder

	// MaxLines caps the command lines read per cycle.
	MaxLines int

	Now    func() time.Time
	Logger *slog.Logger
}

// HardwareAdapter feeds simulated position sentences to the autopilot and
// publishes the command lines it sends back.
type HardwareAdapter struct {
	cfg HardwareConfig
	dev LineDevice
	log *slog.Logger
}

var _ Adapter = (*HardwareAdapter)(nil)

func NewHardwareAdapter(cfg HardwareConfig) *HardwareAdapter {
	if cfg.Period <= 0 {
		cfg.Period = DefaultHardwarePeriod
	}
	if cfg.MaxLines <= 0 {
		cfg.MaxLines = defaultMaxLines
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &HardwareAdapter{
		cfg: cfg,
		log: cfg.Logger.With("adapter", config.AdapterHardware),
	}
}

func (a *HardwareAdapter) Name() string          { return config.AdapterHardware }
func (a *HardwareAdapter) Period() time.Duration { return a.cfg.Period }

func (a *HardwareAdapter) Open(ctx context.Context) error {
	dev, err := a.cfg.Open(ctx)
	if err != nil {
		return err
	}
	a.dev = dev
	return nil
}

func (a *HardwareAdapter) Join(ctx context.Context, s *Session) error {
	if err := s.Subscribe(ctx, bus.TopicTelemetry, a.onTelemetry); err != nil {
		return err
	}
	return s.Subscribe(ctx, bus.TopicPID, a.onPID)
}

// Cycle drains buffered command lines and publishes the well-formed ones.
func (a *HardwareAdapter) Cycle(ctx context.Context, s *Session) error {
	for i := 0; i < a.cfg.MaxLines; i++ {
		ok, err := a.dev.PollReadable()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		line, err := a.dev.ReadLine(ctx)
		if err != nil {
			return err
		}

		if _, err := nmea.Decode(line); err != nil {
			a.log.Warn("command dropped", "line", line, "error", err)
			continue
		}

		if err := s.Publish(ctx, bus.TopicCommand, line); err != nil {
			return err
		}
	}
	return nil
}

func (a *HardwareAdapter) Teardown() {
	if a.dev == nil {
		return
	}
	if err := a.dev.Close(); err != nil {
		a.log.Debug("close", "error", err)
	}
	a.dev = nil
}

func (a *HardwareAdapter) onTelemetry(_ context.Context, msg bus.Message) error {
	var m map[string]any
	if err := msg.Decode(&m); err != nil {
		return err
	}

	sentences, err := a.cfg.Encoder.Encode(telemetry.FromMap(m), a.cfg.Now())
	if err != nil {
		return err
	}

	for _, line := range sentences {
		if err := a.dev.WriteLine(line); err != nil {
			return err
		}
	}
	return nil
}

func (a *HardwareAdapter) onPID(_ context.Context, msg bus.Message) error {
	var p bus.PID
	if err := msg.Decode(&p); err != nil {
		return err
	}

	line := nmea.EncodePID(p.Kp, p.Ki, p.Kd)
	a.log.Info("pid", "sentence", line)
	return a.dev.WriteLine(line)
}
