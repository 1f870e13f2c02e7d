// internal/relay/runner.go
package relay

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tamzrod/uavbridge/internal/bus"
	"github.com/tamzrod/uavbridge/internal/fault"
	"github.com/tamzrod/uavbridge/internal/metrics"
	"github.com/tamzrod/uavbridge/internal/retry"
	"github.com/tamzrod/uavbridge/internal/status"
)

const (
	DefaultRetryDelay   = 5 * time.Second
	DefaultFaultBackoff = 5 * time.Second
)

type Config struct {
	// RetryDelay separates attempts to open the primary transport.
	RetryDelay time.Duration

	// FaultBackoff is slept between a fault and the next Connecting.
	FaultBackoff time.Duration

	Dial    bus.Dialer // required
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Runner drives one Adapter through its lifecycle.
// One goroutine per adapter. Cycles never overlap with deliveries.
type Runner struct {
	adapter Adapter
	cfg     Config
	log     *slog.Logger

	mu    sync.Mutex
	state State
	snap  status.Snapshot
}

func NewRunner(a Adapter, cfg Config) *Runner {
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.FaultBackoff <= 0 {
		cfg.FaultBackoff = DefaultFaultBackoff
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Runner{
		adapter: a,
		cfg:     cfg,
		log:     cfg.Logger.With("adapter", a.Name()),
		snap: status.Snapshot{
			Adapter: a.Name(),
			State:   Idle.String(),
			Health:  status.HealthUnknown,
		},
	}
}

// State returns the current lifecycle state.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Status returns a copy of the adapter's health snapshot.
func (r *Runner) Status() status.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snap
}

func (r *Runner) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.snap.State = s.String()
	switch s {
	case Running:
		r.snap.Recover()
	case Stopped:
		// a fatal fault stays visible
		if r.snap.Health != status.HealthError {
			r.snap.Health = status.HealthStopped
		}
	}
	r.mu.Unlock()

	r.cfg.Metrics.SetState(r.adapter.Name(), int(s))
	r.log.Debug("state", "state", s.String())
}

func (r *Runner) fail(err error) {
	class := fault.Classify(err)

	r.mu.Lock()
	// 0 is reserved for success
	r.snap.Fail(uint16(class)+1, err.Error())
	r.mu.Unlock()

	r.cfg.Metrics.Fault(r.adapter.Name(), class.String())
}

// Run blocks until ctx ends or a configuration fault stops the adapter.
// Every other fault leads back to Connecting after FaultBackoff.
func (r *Runner) Run(ctx context.Context) error {
	defer r.setState(Stopped)

	var wg sync.WaitGroup
	tickCtx, stopTick := context.WithCancel(ctx)
	defer func() {
		stopTick()
		wg.Wait()
	}()

	// seconds-in-error advances at 1Hz regardless of what the worker is doing
	wg.Add(1)
	go func() {
		defer wg.Done()
		r.tick(tickCtx)
	}()

	for {
		err := r.session(ctx)
		if ctx.Err() != nil {
			return nil
		}

		r.fail(err)

		if fault.Classify(err) == fault.Configuration {
			r.log.Error("adapter stopped", "error", err)
			return err
		}

		r.setState(Faulted)
		r.log.Warn("adapter faulted", "error", err, "backoff", r.cfg.FaultBackoff)

		if err := retry.Sleep(ctx, r.cfg.FaultBackoff); err != nil {
			return nil
		}
	}
}

func (r *Runner) tick(ctx context.Context) {
	t := time.NewTicker(time.Second)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.mu.Lock()
			r.snap.Tick()
			r.mu.Unlock()
		}
	}
}

// session runs Connecting → Joined → Running once and returns the fault
// that ended it.
func (r *Runner) session(ctx context.Context) error {
	name := r.adapter.Name()

	// ---- Connecting ----
	r.setState(Connecting)

	err := retry.Do(ctx, r.retryConfig("open"), func() error {
		err := r.adapter.Open(ctx)
		if err != nil && fault.Classify(err) == fault.Configuration {
			return &retry.Stop{Err: err}
		}
		return err
	})
	if err != nil {
		return err
	}
	defer r.adapter.Teardown()

	r.log.Info("transport open")

	b, err := r.cfg.Dial(ctx, name)
	if err != nil {
		return err
	}

	sctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		if err := b.Close(); err != nil {
			r.log.Debug("bus close", "error", err)
		}
	}()

	// ---- Joined ----
	s := newSession(sctx, name, b, r.cfg.Metrics)

	if err := b.Register(sctx, bus.StatusProcedure(name), r.statusProcedure); err != nil {
		return err
	}
	if err := r.adapter.Join(sctx, s); err != nil {
		return err
	}
	r.setState(Joined)
	r.log.Info("joined bus")

	// ---- Running ----
	return r.loop(sctx, s)
}

func (r *Runner) retryConfig(op string) retry.Config {
	cfg := retry.Fixed(r.cfg.RetryDelay)
	cfg.OnRetry = func(attempt int, err error, next time.Duration) {
		r.fail(err)
		r.log.Warn(op+" failed", "attempt", attempt, "error", err, "retry_in", next)
	}
	return cfg
}

func (r *Runner) statusProcedure(context.Context, bus.Message) (any, error) {
	return r.Status(), nil
}

func (r *Runner) loop(ctx context.Context, s *Session) error {
	name := r.adapter.Name()
	r.setState(Running)

	ticker := time.NewTicker(r.adapter.Period())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-s.bus.Done():
			return &BusLostError{Adapter: name}

		case t := <-s.inbox:
			r.cfg.Metrics.Received(name, t.msg.Topic)

			err := r.absorb(t.fn(ctx, t.msg), "delivery skipped", t.msg.Topic)
			if t.result != nil {
				// nil acknowledges; anything else leaves the message for redelivery
				t.result <- err
			}
			if err != nil {
				return err
			}

		case <-ticker.C:
			start := time.Now()
			err := r.adapter.Cycle(ctx, s)
			r.cfg.Metrics.ObserveCycle(name, time.Since(start))

			if err := r.absorb(err, "cycle skipped", ""); err != nil {
				return err
			}
		}
	}
}

// absorb handles protocol faults in place and passes everything else up.
func (r *Runner) absorb(err error, msg, topic string) error {
	if err == nil {
		return nil
	}
	if fault.Classify(err) != fault.Protocol {
		return err
	}

	r.cfg.Metrics.Fault(r.adapter.Name(), fault.Protocol.String())
	if topic != "" {
		r.log.Warn(msg, "topic", topic, "error", err)
	} else {
		r.log.Warn(msg, "error", err)
	}
	return nil
}
