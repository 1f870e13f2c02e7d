// internal/writer/status_writer.go
package writer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tamzrod/uavbridge/internal/status"
)

// StatusWriter is the delivery-only contract for adapter status.
// It receives a snapshot and writes it verbatim.
type StatusWriter interface {
	WriteStatus(s status.Snapshot) error
}

// adapterStatusWriter owns one status block.
type adapterStatusWriter struct {
	endpoint string
	unitID   uint8
	base     uint16
	cli      endpointClient

	needFull bool
	last     status.Snapshot
}

// NewStatusWriters builds one status writer per adapter in plan.Status.
// The result is keyed by adapter name; it is empty when status is disabled.
func NewStatusWriters(plan Plan, cli endpointClient) map[string]StatusWriter {
	out := make(map[string]StatusWriter)
	if plan.Status == nil {
		return out
	}

	for i, name := range plan.Status.Adapters {
		out[name] = &adapterStatusWriter{
			endpoint: plan.Endpoint,
			unitID:   plan.UnitID,
			base:     plan.Status.BaseAddress + uint16(i*status.SlotsPerAdapter),
			cli:      cli,
			needFull: true, // full re-assert on first successful write
			last:     status.Snapshot{Adapter: name, Health: status.HealthUnknown},
		}
	}
	return out
}

// WriteStatus delivers a snapshot into status memory.
// On any write failure, the next successful call re-asserts the full block.
func (sw *adapterStatusWriter) WriteStatus(s status.Snapshot) error {
	if sw.cli == nil {
		return fmt.Errorf("status writer: missing client for endpoint %s", sw.endpoint)
	}

	// the name is part of the block identity, not of the live state
	s.Adapter = sw.last.Adapter

	// ------------------------------------------------------------
	// Full block write (identity re-assert)
	// ------------------------------------------------------------
	if sw.needFull {
		if err := sw.cli.WriteRegisters(sw.unitID, sw.base, status.Encode(s)); err != nil {
			return &WriteError{Endpoint: sw.endpoint, Err: fmt.Errorf("status full block: %w", err)}
		}
		sw.needFull = false
		sw.last = s
		return nil
	}

	var errs []string

	write := func(slot int, v uint16, label string) bool {
		if err := sw.cli.WriteRegisters(sw.unitID, sw.base+uint16(slot), []uint16{v}); err != nil {
			errs = append(errs, fmt.Sprintf("%s write failed: %v", label, err))
			return false
		}
		return true
	}

	if sw.last.Health != s.Health && write(status.SlotHealthCode, s.Health, "health") {
		sw.last.Health = s.Health
	}
	if sw.last.LastErrorCode != s.LastErrorCode && write(status.SlotLastErrorCode, s.LastErrorCode, "last_error") {
		sw.last.LastErrorCode = s.LastErrorCode
	}
	if sw.last.SecondsInError != s.SecondsInError && write(status.SlotSecondsInError, s.SecondsInError, "seconds") {
		sw.last.SecondsInError = s.SecondsInError
	}
	if uint16(sw.last.Faults) != uint16(s.Faults) && write(status.SlotFaultCount, uint16(s.Faults), "faults") {
		sw.last.Faults = s.Faults
	}

	if len(errs) > 0 {
		sw.needFull = true
		return &WriteError{Endpoint: sw.endpoint, Err: errors.New(strings.Join(errs, " | "))}
	}
	return nil
}
