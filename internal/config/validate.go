// internal/config/validate.go
package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/tamzrod/uavbridge/internal/fault"
	"github.com/tamzrod/uavbridge/internal/nmea"
	"github.com/tamzrod/uavbridge/internal/status"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return invalid("config is empty")
	}

	if err := validateBus(cfg.Bus); err != nil {
		return err
	}

	// ------------------------------------------------------------
	// ADAPTER SELECTION
	// ------------------------------------------------------------

	enabled := cfg.Enabled()
	if len(enabled) == 0 {
		return invalid("no adapters configured")
	}

	seen := make(map[string]bool)
	for _, name := range enabled {
		if !slices.Contains(AdapterNames, name) {
			return invalid("unknown adapter %q (known: %s)", name, strings.Join(AdapterNames, ", "))
		}
		if seen[name] {
			return invalid("adapter %q listed twice", name)
		}
		seen[name] = true

		if !cfg.configured(name) {
			return invalid("adapter %q enabled but its section is missing", name)
		}
	}

	if cfg.RetryDelayMs < 0 || cfg.FaultBackoffMs < 0 {
		return invalid("retry_delay_ms and fault_backoff_ms must not be negative")
	}

	if s := cfg.Simulator; s != nil {
		if err := validateSimulator(s); err != nil {
			return err
		}
	}
	if h := cfg.Hardware; h != nil {
		if err := validateHardware(h); err != nil {
			return err
		}
	}
	if m := cfg.Map; m != nil && m.Listen == "" {
		return invalid("map.listen is required")
	}
	if st := cfg.Statistics; st != nil && st.Path == "" {
		return invalid("statistics.path is required")
	}
	if m := cfg.Mirror; m != nil {
		if err := validateMirror(m); err != nil {
			return err
		}
	}

	return nil
}

func validateBus(b BusConfig) error {
	if b.URL == "" {
		return invalid("bus.url is required")
	}

	u, err := url.Parse(b.URL)
	if err != nil {
		return invalid("bus.url: %v", err)
	}
	switch u.Scheme {
	case "nats", "tls", "memory":
	default:
		return invalid("bus.url: unsupported scheme %q", u.Scheme)
	}
	return nil
}

func validateSimulator(s *SimulatorConfig) error {
	switch s.Transport {
	case "", "telnet":
		if s.Address == "" {
			return invalid("simulator.address is required for telnet")
		}
	case "udp":
		if s.Listen == "" {
			return invalid("simulator.listen is required for udp")
		}
		if len(s.Fields) == 0 {
			return invalid("simulator.fields is required for udp")
		}
		if len(s.Commands) > 0 {
			return invalid("simulator.commands needs the telnet transport")
		}
	default:
		return invalid("simulator.transport must be telnet or udp, got %q", s.Transport)
	}

	for id, path := range s.Commands {
		if !strings.HasPrefix(path, "/") {
			return invalid("simulator.commands[%d]: property path %q must be absolute", id, path)
		}
	}
	return nil
}

func validateHardware(h *HardwareConfig) error {
	if h.Device == "" && h.VendorID == "" && h.ProductID == "" && h.InterfaceClass == "" {
		return invalid("hardware: set device or a vendor_id/product_id/interface_class selector")
	}
	if h.Baud < 0 {
		return invalid("hardware.baud must not be negative")
	}
	if _, err := nmea.ParseChecksumMode(h.Checksum); err != nil {
		return invalid("hardware.checksum: %v", err)
	}
	return nil
}

func validateMirror(m *MirrorConfig) error {
	type span struct {
		start int
		end   int
		owner string
	}

	if m.Endpoint == "" {
		return invalid("mirror.endpoint is required")
	}
	if m.UnitID > 255 {
		return invalid("mirror.unit_id %d out of range", m.UnitID)
	}
	if len(m.Fields) == 0 {
		return invalid("mirror.fields must not be empty")
	}

	for i, f := range m.Fields {
		if f.Key == "" {
			return invalid("mirror.fields[%d]: key is required", i)
		}
		if f.Scale < 0 {
			return invalid("mirror.fields[%d]: scale must not be negative", i)
		}
	}

	// ------------------------------------------------------------
	// REGISTER GEOMETRY
	// ------------------------------------------------------------

	var spans []span

	fieldEnd := int(m.Address) + len(m.Fields) - 1
	if fieldEnd > 0xFFFF {
		return invalid("mirror: field block %d-%d exceeds the register space", m.Address, fieldEnd)
	}
	spans = append(spans, span{start: int(m.Address), end: fieldEnd, owner: "fields"})

	if m.Status != nil {
		if len(m.Status.Adapters) == 0 {
			return invalid("mirror.status is set but lists no adapters")
		}

		names := make(map[string]bool)
		for i, name := range m.Status.Adapters {
			if name == "" {
				return invalid("mirror.status.adapters[%d] is empty", i)
			}
			// adapter name sanity (ASCII only)
			for j := 0; j < len(name); j++ {
				if name[j] > 0x7F {
					return invalid("mirror.status adapter %q must contain ASCII characters only", name)
				}
			}
			if names[name] {
				return invalid("mirror.status adapter %q listed twice", name)
			}
			names[name] = true

			start := int(m.Status.Address) + i*status.SlotsPerAdapter
			end := start + status.SlotsPerAdapter - 1
			if end > 0xFFFF {
				return invalid("mirror.status block for %q exceeds the register space", name)
			}
			spans = append(spans, span{start: start, end: end, owner: "status " + name})
		}
	}

	for i := range spans {
		for j := i + 1; j < len(spans); j++ {
			a, b := spans[i], spans[j]
			// overlap check (inclusive)
			if !(a.end < b.start || a.start > b.end) {
				return invalid(
					"mirror register overlap: %s range=%d-%d overlaps with %s range=%d-%d",
					b.owner, b.start, b.end, a.owner, a.start, a.end,
				)
			}
		}
	}

	return nil
}

func invalid(format string, args ...any) error {
	return &fault.ConfigError{Reason: fmt.Sprintf(format, args...)}
}
