// internal/writer/types.go
package writer

import "github.com/tamzrod/uavbridge/internal/telemetry"

// Field maps one telemetry property onto one holding register.
// The register holds round(value * Scale) as a signed 16-bit integer.
type Field struct {
	Key   string
	Scale float64
}

// StatusPlan places one adapter status block per adapter, back to back.
type StatusPlan struct {
	BaseAddress uint16
	Adapters    []string
}

// Plan is the fully-built register plan for one endpoint.
type Plan struct {
	Endpoint    string
	UnitID      uint8
	BaseAddress uint16
	Fields      []Field
	Status      *StatusPlan
}

// Writer writes telemetry snapshots into registers.
type Writer interface {
	Write(s telemetry.Snapshot) error
}

// endpointClient is the exact contract the writers use.
type endpointClient interface {
	WriteRegisters(unitID uint8, addr uint16, regs []uint16) error
}
