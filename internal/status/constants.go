// internal/status/constants.go
package status

// ---- CONNECTION STATES ----

// ConnState is the lifecycle of one transport handle.
type ConnState int

const (
	Disconnected ConnState = iota
	Connecting
	Connected
	Faulted
)

func (s ConnState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Faulted:
		return "faulted"
	default:
		return "unknown"
	}
}

// ---- HEALTH CODES ----

// HealthUnknown represents an unknown or boot state.
const HealthUnknown uint16 = 0

// HealthOK represents a running adapter.
const HealthOK uint16 = 1

// HealthError represents an adapter that is faulted or reconnecting.
const HealthError uint16 = 2

// HealthStopped represents an adapter that has shut down.
const HealthStopped uint16 = 3

// ---- BLOCK GEOMETRY ----

// Adapter status block layout, as mirrored into holding registers.
// These values define the register protocol and are not configurable.

// SlotsPerAdapter is the fixed number of registers per adapter.
const SlotsPerAdapter = 20

// SlotHealthCode holds the adapter health code.
const SlotHealthCode = 0

// SlotLastErrorCode holds the fault class code of the last fault.
const SlotLastErrorCode = 1

// SlotSecondsInError holds how long the adapter has been unhealthy.
const SlotSecondsInError = 2

// SlotFaultCount holds the low 16 bits of the fault counter.
const SlotFaultCount = 3

// Slots 4-10 are reserved.

// SlotNameStart is the first register of the adapter name.
const SlotNameStart = 11

// SlotNameSlots is the number of registers holding the name.
const SlotNameSlots = 8

// ---- LIMITS ----

// NameMaxChars is the maximum number of ASCII characters stored for a name.
const NameMaxChars = 16

// MaxSecondsInError caps the error duration counter.
const MaxSecondsInError = 65535
