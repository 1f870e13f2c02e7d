// internal/nmea/errors.go
package nmea

import (
	"fmt"

	"github.com/tamzrod/uavbridge/internal/fault"
)

// IncompleteTelemetryError means a snapshot lacks a key the sentences need.
type IncompleteTelemetryError struct {
	Key string
	Err error
}

func (e *IncompleteTelemetryError) Error() string {
	return fmt.Sprintf("nmea: incomplete telemetry: %s: %v", e.Key, e.Err)
}

func (e *IncompleteTelemetryError) Unwrap() error { return e.Err }

func (e *IncompleteTelemetryError) Class() fault.Class { return fault.Protocol }

// MalformedCommandError means the command identifier is not an integer.
type MalformedCommandError struct {
	Line string
	Err  error
}

func (e *MalformedCommandError) Error() string {
	return fmt.Sprintf("nmea: malformed command %q: %v", e.Line, e.Err)
}

func (e *MalformedCommandError) Unwrap() error { return e.Err }

func (e *MalformedCommandError) Class() fault.Class { return fault.Protocol }
