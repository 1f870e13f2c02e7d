// internal/fgfs/client.go
package fgfs

import (
	"context"

	"github.com/tamzrod/uavbridge/internal/telemetry"
)

// TelemetrySource produces telemetry snapshots from the simulator.
type TelemetrySource interface {
	Connect(ctx context.Context) error
	ReadTelemetry(ctx context.Context) (telemetry.Snapshot, error)
	Close() error
}

// Commander pushes property writes into the simulator.
// Sources that cannot write do not implement it.
type Commander interface {
	SendCommand(line string) error
	WriteProperty(name, value string) error
	SetPosition(lat, lon string) error
}
