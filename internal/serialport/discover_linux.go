//go:build linux

// internal/serialport/discover_linux.go

package serialport

import (
	"context"
	"fmt"

	"golang.org/x/sys/unix"
)

const devDir = "/dev"

// waitForDevice watches /dev, rescans once the watch is in place, and then
// blocks until an entry is created in /dev or ctx ends.
func waitForDevice(ctx context.Context, rescan func() (bool, error)) error {
	fd, err := unix.InotifyInit1(unix.IN_NONBLOCK | unix.IN_CLOEXEC)
	if err != nil {
		return fmt.Errorf("inotify_init1: %w", err)
	}
	defer unix.Close(fd)

	if _, err := unix.InotifyAddWatch(fd, devDir, unix.IN_CREATE|unix.IN_MOVED_TO|unix.IN_ATTRIB); err != nil {
		return fmt.Errorf("inotify_add_watch on %s: %w", devDir, err)
	}

	// a device created before the watch existed is only visible to a scan
	if found, err := rescan(); found || err != nil {
		return err
	}

	buf := make([]byte, 4096)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		// 100ms poll keeps ctx cancellation responsive
		fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		n, err := unix.Poll(fds, 100)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return fmt.Errorf("poll: %w", err)
		}
		if n == 0 {
			continue
		}

		read, err := unix.Read(fd, buf)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EINTR {
				continue
			}
			return fmt.Errorf("inotify read: %w", err)
		}
		if read >= unix.SizeofInotifyEvent {
			return nil
		}
	}
}
