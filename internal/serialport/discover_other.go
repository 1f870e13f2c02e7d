//go:build !linux

// internal/serialport/discover_other.go

package serialport

import (
	"context"
	"time"
)

const rescanInterval = 2 * time.Second

// waitForDevice sleeps one rescan interval, then rescans.
func waitForDevice(ctx context.Context, rescan func() (bool, error)) error {
	t := time.NewTimer(rescanInterval)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
	}

	_, err := rescan()
	return err
}
