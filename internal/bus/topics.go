// internal/bus/topics.go
package bus

// Topics carried between adapters.
const (
	// TopicTelemetry carries telemetry.Snapshot.Map() payloads.
	TopicTelemetry = "sim.telemetry"

	// TopicCommand carries raw "<id>,<field>,..." command lines.
	TopicCommand = "uav.cmd"

	// TopicPosition carries Position payloads.
	TopicPosition = "map.position"

	// TopicPID carries PID payloads.
	TopicPID = "map.pid"
)

// StatusProcedure is the name under which an adapter answers health queries.
func StatusProcedure(adapter string) string {
	return adapter + ".status"
}

// Position is a location picked on the map.
type Position struct {
	Lat float64 `cbor:"lat" json:"lat"`
	Lon float64 `cbor:"lon" json:"lon"`
}

// PID holds controller gains tuned from the map UI.
type PID struct {
	Kp float64 `cbor:"kp" json:"kp"`
	Ki float64 `cbor:"ki" json:"ki"`
	Kd float64 `cbor:"kd" json:"kd"`
}
