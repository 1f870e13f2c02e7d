// internal/retry/retry.go
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Config describes a retry schedule.
// MaxAttempts == 0 retries until fn succeeds or ctx ends.
// Multiplier <= 1 keeps the delay fixed.
type Config struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64

	// OnRetry is called after each failed attempt, before sleeping.
	OnRetry func(attempt int, err error, next time.Duration)
}

// Fixed returns a schedule that retries forever with a constant delay.
func Fixed(delay time.Duration) Config {
	return Config{InitialDelay: delay, MaxDelay: delay, Multiplier: 1}
}

// Stop wraps an error to end retrying immediately.
type Stop struct {
	Err error
}

func (s *Stop) Error() string { return fmt.Sprintf("retry stopped: %v", s.Err) }

func (s *Stop) Unwrap() error { return s.Err }

// Do runs fn until it succeeds, returns a *Stop, attempts run out, or ctx ends.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	if cfg.InitialDelay < 0 || cfg.MaxDelay < 0 {
		return errors.New("retry: delays cannot be negative")
	}
	if cfg.MaxDelay > 0 && cfg.MaxDelay < cfg.InitialDelay {
		return errors.New("retry: MaxDelay must be >= InitialDelay")
	}

	delay := cfg.InitialDelay

	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		var stop *Stop
		if errors.As(err, &stop) {
			return stop.Err
		}

		if cfg.MaxAttempts > 0 && attempt >= cfg.MaxAttempts {
			return fmt.Errorf("retry failed after %d attempts: %w", attempt, err)
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, delay)
		}

		if err := Sleep(ctx, delay); err != nil {
			return fmt.Errorf("retry cancelled after %d attempts: %w", attempt, err)
		}

		if cfg.Multiplier > 1 {
			next := time.Duration(float64(delay) * cfg.Multiplier)
			if cfg.MaxDelay > 0 && next > cfg.MaxDelay {
				next = cfg.MaxDelay
			}
			delay = next
		}
	}
}

// Sleep waits for d or until ctx ends, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
