// internal/status/snapshot.go
package status

// Snapshot is the health of one adapter as reported over the bus.
// It contains no memory of the past beyond current state.
type Snapshot struct {
	Adapter        string `cbor:"adapter"`
	State          string `cbor:"state"`
	Health         uint16 `cbor:"health"`
	LastErrorCode  uint16 `cbor:"last_error_code"`
	LastError      string `cbor:"last_error,omitempty"`
	SecondsInError uint16 `cbor:"seconds_in_error"`
	Faults         uint64 `cbor:"faults"`
}

// Recover marks the adapter healthy and clears error bookkeeping.
// It reports whether anything changed.
func (s *Snapshot) Recover() bool {
	changed := s.Health != HealthOK || s.LastErrorCode != 0 || s.SecondsInError != 0
	s.Health = HealthOK
	s.LastErrorCode = 0
	s.LastError = ""
	s.SecondsInError = 0
	return changed
}

// Fail records a fault. code is opaque to the snapshot; 0 is reserved for success.
func (s *Snapshot) Fail(code uint16, msg string) {
	s.Health = HealthError
	s.LastErrorCode = code
	s.LastError = msg
	s.Faults++
}

// Tick advances the seconds-in-error counter while in error. It never wraps.
func (s *Snapshot) Tick() bool {
	if s.Health != HealthError {
		return false
	}
	if s.SecondsInError >= MaxSecondsInError {
		return false
	}
	s.SecondsInError++
	return true
}
