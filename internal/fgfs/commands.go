// internal/fgfs/commands.go
package fgfs

// DefaultCommands maps command ids to simulator property paths.
func DefaultCommands() map[int]string {
	return map[int]string{
		1: "/controls/engines/engine[0]/throttle",
		2: "/controls/engines/engine[1]/throttle",
	}
}

// TelemetryPaths are the subtrees read for one telemetry snapshot, in merge order.
var TelemetryPaths = []string{
	"position",
	"orientation/model",
	"velocities",
}

// ---- position ----

const (
	latitudeProperty  = "position/latitude-deg"
	longitudeProperty = "position/longitude-deg"
)
