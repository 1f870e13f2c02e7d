// internal/serialport/discover.go
package serialport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"go.bug.st/serial/enumerator"

	"github.com/tamzrod/uavbridge/internal/fault"
)

// Selector picks a USB serial device. Empty fields match anything.
// IDs and the interface class are hex strings as reported by sysfs,
// for example VendorID "2341", InterfaceClass "02".
type Selector struct {
	VendorID       string
	ProductID      string
	InterfaceClass string
}

func (s Selector) IsZero() bool {
	return s.VendorID == "" && s.ProductID == "" && s.InterfaceClass == ""
}

func (s Selector) String() string {
	return fmt.Sprintf("vid=%s pid=%s class=%s", s.VendorID, s.ProductID, s.InterfaceClass)
}

// Resolver finds the device path for a Selector, waiting for a device to
// appear when none matches.
type Resolver struct {
	List           func() ([]*enumerator.PortDetails, error)
	InterfaceClass func(portName string) (string, error)

	// Wait arms a device watch and calls rescan once. Unless rescan found a
	// match it then blocks until a device event arrives or ctx ends.
	Wait func(ctx context.Context, rescan func() (bool, error)) error

	Logger *slog.Logger
}

// NewResolver returns a resolver backed by the system enumerator.
func NewResolver(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		List:           enumerator.GetDetailedPortsList,
		InterfaceClass: sysfsInterfaceClass,
		Wait:           waitForDevice,
		Logger:         logger.With("component", "serialport-resolve"),
	}
}

// Resolve is NewResolver(nil).Resolve.
func Resolve(ctx context.Context, sel Selector) (string, error) {
	return NewResolver(nil).Resolve(ctx, sel)
}

// Resolve returns the path of the first USB port matching sel.
func (r *Resolver) Resolve(ctx context.Context, sel Selector) (string, error) {
	if sel.IsZero() {
		return "", &fault.ConfigError{Reason: "serial selector is empty"}
	}

	path, err := r.find(sel)
	if err != nil {
		return "", err
	}

	rescan := func() (bool, error) {
		path, err = r.find(sel)
		return path != "", err
	}

	for path == "" {
		r.Logger.Debug("no matching device, waiting", "selector", sel.String())
		if err := r.Wait(ctx, rescan); err != nil {
			return "", err
		}
	}

	r.Logger.Info("device resolved", "selector", sel.String(), "path", path)
	return path, nil
}

func (r *Resolver) find(sel Selector) (string, error) {
	ports, err := r.List()
	if err != nil {
		return "", fmt.Errorf("serialport: enumerate: %w", err)
	}

	for _, p := range ports {
		if !p.IsUSB {
			continue
		}
		if sel.VendorID != "" && !strings.EqualFold(p.VID, sel.VendorID) {
			continue
		}
		if sel.ProductID != "" && !strings.EqualFold(p.PID, sel.ProductID) {
			continue
		}
		if sel.InterfaceClass != "" {
			class, err := r.InterfaceClass(p.Name)
			if err != nil {
				r.Logger.Debug("interface class unavailable", "port", p.Name, "error", err)
				continue
			}
			if !strings.EqualFold(class, sel.InterfaceClass) {
				continue
			}
		}
		return p.Name, nil
	}
	return "", nil
}

var sysfsRoot = "/sys/class/tty"

// sysfsInterfaceClass reads bInterfaceClass of the USB interface behind a
// tty, looking at the device node first and then its parent.
func sysfsInterfaceClass(portName string) (string, error) {
	base := filepath.Join(sysfsRoot, filepath.Base(portName), "device")

	candidates := []string{filepath.Join(base, "bInterfaceClass")}
	if real, err := filepath.EvalSymlinks(base); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(real), "bInterfaceClass"))
	}

	for _, p := range candidates {
		b, err := os.ReadFile(p)
		if err == nil {
			return strings.TrimSpace(string(b)), nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
	}
	return "", os.ErrNotExist
}
