// internal/relay/state.go
package relay

// State is one step of the adapter lifecycle.
type State int

const (
	Idle State = iota
	Connecting
	Joined
	Running
	Faulted
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case Joined:
		return "joined"
	case Running:
		return "running"
	case Faulted:
		return "faulted"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}
