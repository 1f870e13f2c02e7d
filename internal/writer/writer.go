// internal/writer/writer.go
package writer

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/tamzrod/uavbridge/internal/telemetry"
)

type registerWriter struct {
	plan Plan
	cli  endpointClient

	needFull bool
	last     []uint16
}

// New returns a writer that asserts the full block first and after any
// failure, and only changed registers otherwise.
func New(plan Plan, cli endpointClient) Writer {
	return &registerWriter{
		plan:     plan,
		cli:      cli,
		needFull: true,
	}
}

func (w *registerWriter) Write(s telemetry.Snapshot) error {
	regs, err := encodeFields(s, w.plan.Fields)
	if err != nil {
		return err
	}

	// ------------------------------------------------------------
	// Full block write
	// ------------------------------------------------------------
	if w.needFull {
		if err := w.cli.WriteRegisters(w.plan.UnitID, w.plan.BaseAddress, regs); err != nil {
			return &WriteError{Endpoint: w.plan.Endpoint, Err: fmt.Errorf("full block: %w", err)}
		}
		w.needFull = false
		w.last = regs
		return nil
	}

	// ------------------------------------------------------------
	// Changed runs only
	// ------------------------------------------------------------
	var errs []string
	for _, run := range changedRuns(w.last, regs) {
		addr := w.plan.BaseAddress + uint16(run[0])
		if err := w.cli.WriteRegisters(w.plan.UnitID, addr, regs[run[0]:run[1]]); err != nil {
			errs = append(errs, fmt.Sprintf("addr=%d qty=%d err=%v", addr, run[1]-run[0], err))
			continue
		}
		copy(w.last[run[0]:run[1]], regs[run[0]:run[1]])
	}

	if len(errs) > 0 {
		// any partial failure introduces doubt: re-assert on next success
		w.needFull = true
		return &WriteError{Endpoint: w.plan.Endpoint, Err: errors.New(strings.Join(errs, " | "))}
	}
	return nil
}

// encodeFields scales each field into a signed 16-bit register.
// Values outside the int16 range saturate.
func encodeFields(s telemetry.Snapshot, fields []Field) ([]uint16, error) {
	regs := make([]uint16, len(fields))
	for i, f := range fields {
		v, err := s.Float(f.Key)
		if err != nil {
			return nil, err
		}
		scaled := math.Round(v * f.Scale)
		switch {
		case math.IsNaN(scaled):
			scaled = 0
		case scaled > math.MaxInt16:
			scaled = math.MaxInt16
		case scaled < math.MinInt16:
			scaled = math.MinInt16
		}
		regs[i] = uint16(int16(scaled))
	}
	return regs, nil
}

// changedRuns returns [start, end) index pairs of contiguous registers
// that differ between prev and next.
func changedRuns(prev, next []uint16) [][2]int {
	var runs [][2]int
	start := -1
	for i := range next {
		diff := i >= len(prev) || prev[i] != next[i]
		switch {
		case diff && start < 0:
			start = i
		case !diff && start >= 0:
			runs = append(runs, [2]int{start, i})
			start = -1
		}
	}
	if start >= 0 {
		runs = append(runs, [2]int{start, len(next)})
	}
	return runs
}
