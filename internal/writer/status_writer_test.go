// internal/writer/status_writer_test.go
package writer

import (
	"testing"

	"github.com/tamzrod/uavbridge/internal/status"
)

func statusPlan() Plan {
	return Plan{
		Endpoint: "status-endpoint",
		UnitID:   1,
		Status: &StatusPlan{
			BaseAddress: 200,
			Adapters:    []string{"sim", "uav"},
		},
	}
}

func TestNameWrittenOnFullAssertOnly(t *testing.T) {
	cli := &fakeEndpointClient{}
	sw := NewStatusWriters(statusPlan(), cli)["uav"]
	if sw == nil {
		t.Fatalf("status writer for uav missing")
	}

	// ---- first write: FULL ASSERT ----
	if err := sw.WriteStatus(status.Snapshot{Health: status.HealthOK}); err != nil {
		t.Fatalf("initial full assert failed: %v", err)
	}

	if len(cli.lastRegs) != status.SlotsPerAdapter {
		t.Fatalf("expected full block write (%d regs), got %d", status.SlotsPerAdapter, len(cli.lastRegs))
	}
	if cli.lastRegsAddr != 200+status.SlotsPerAdapter {
		t.Fatalf("second adapter block misplaced: addr=%d", cli.lastRegsAddr)
	}

	expectedName := status.EncodeName("uav")
	for i := 0; i < status.SlotNameSlots; i++ {
		if cli.lastRegs[status.SlotNameStart+i] != expectedName[i] {
			t.Fatalf("name slot %d mismatch", i)
		}
	}

	// ---- second write: INCREMENTAL ONLY ----
	if err := sw.WriteStatus(status.Snapshot{Health: status.HealthError, LastErrorCode: 1, SecondsInError: 1, Faults: 1}); err != nil {
		t.Fatalf("incremental write failed: %v", err)
	}
	if len(cli.lastRegs) == status.SlotsPerAdapter {
		t.Fatalf("name should not be rewritten on incremental update")
	}
	// health, last_error, seconds, faults
	if len(cli.writes) != 5 {
		t.Fatalf("expected 4 single-register writes after the full block, got %d", len(cli.writes)-1)
	}
}

func TestSecondsInErrorResetOnRecovery(t *testing.T) {
	cli := &fakeEndpointClient{}
	sw := NewStatusWriters(statusPlan(), cli)["sim"]

	// simulate ERROR
	if err := sw.WriteStatus(status.Snapshot{Health: status.HealthError, LastErrorCode: 1, SecondsInError: 3, Faults: 1}); err != nil {
		t.Fatalf("error snapshot write failed: %v", err)
	}

	// simulate recovery
	if err := sw.WriteStatus(status.Snapshot{Health: status.HealthOK, Faults: 1}); err != nil {
		t.Fatalf("recovery snapshot write failed: %v", err)
	}

	expectedAddr := uint16(200 + status.SlotSecondsInError)
	if cli.lastRegsAddr != expectedAddr {
		t.Fatalf("unexpected write addr: got=%d want=%d", cli.lastRegsAddr, expectedAddr)
	}
	if len(cli.lastRegs) != 1 || cli.lastRegs[0] != 0 {
		t.Fatalf("seconds_in_error not reset: %v", cli.lastRegs)
	}
}

func TestStatusDisabled(t *testing.T) {
	if got := NewStatusWriters(Plan{Endpoint: "x"}, &fakeEndpointClient{}); len(got) != 0 {
		t.Fatalf("status disabled should build no writers, got %d", len(got))
	}
}
