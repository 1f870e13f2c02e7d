// internal/telemetry/snapshot.go
package telemetry

import (
	"fmt"
	"time"

	"github.com/tamzrod/uavbridge/internal/fault"
)

// TimestampKey carries the capture time when a snapshot travels as a flat mapping.
const TimestampKey = "dt"

// Well-known property names read from the simulator.
const (
	KeyLatitude    = "latitude-deg"
	KeyLongitude   = "longitude-deg"
	KeyAltitude    = "altitude-ft"
	KeyHeading     = "heading-deg"
	KeyRoll        = "roll-deg"
	KeyPitch       = "pitch-deg"
	KeyAirspeed    = "airspeed-kt"
	KeyGroundspeed = "groundspeed-kt"
)

// Snapshot is one polling cycle worth of simulator properties.
// Values are float64, bool or string.
// A snapshot must not be modified after it has been published.
type Snapshot struct {
	At    float64
	Props map[string]any
}

// New returns an empty snapshot stamped with t.
func New(t time.Time) Snapshot {
	return Snapshot{
		At:    float64(t.UnixNano()) / 1e9,
		Props: make(map[string]any),
	}
}

// Merge copies m into the snapshot. Later keys overwrite earlier ones.
func (s *Snapshot) Merge(m map[string]any) {
	if s.Props == nil {
		s.Props = make(map[string]any, len(m))
	}
	for k, v := range m {
		s.Props[k] = v
	}
}

// Float returns the float property key.
func (s Snapshot) Float(key string) (float64, error) {
	v, ok := s.Props[key]
	if !ok {
		return 0, &MissingKeyError{Key: key}
	}
	f, ok := v.(float64)
	if !ok {
		return 0, &MissingKeyError{Key: key, Got: v}
	}
	return f, nil
}

// Map flattens the snapshot for the bus, capture time under TimestampKey.
func (s Snapshot) Map() map[string]any {
	out := make(map[string]any, len(s.Props)+1)
	for k, v := range s.Props {
		out[k] = v
	}
	out[TimestampKey] = s.At
	return out
}

// FromMap is the inverse of Map.
// Integer values are widened to float64 so numeric properties read the same
// regardless of how the wire codec packed them.
func FromMap(m map[string]any) Snapshot {
	s := Snapshot{Props: make(map[string]any, len(m))}
	for k, v := range m {
		v = widen(v)
		if k == TimestampKey {
			if f, ok := v.(float64); ok {
				s.At = f
			}
			continue
		}
		s.Props[k] = v
	}
	return s
}

func widen(v any) any {
	switch n := v.(type) {
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case uint64:
		return float64(n)
	default:
		return v
	}
}

// MissingKeyError reports a property that is absent or has the wrong type.
type MissingKeyError struct {
	Key string
	Got any
}

func (e *MissingKeyError) Error() string {
	if e.Got != nil {
		return fmt.Sprintf("telemetry: %s is %T, want float64", e.Key, e.Got)
	}
	return fmt.Sprintf("telemetry: %s missing", e.Key)
}

func (e *MissingKeyError) Class() fault.Class { return fault.Protocol }
