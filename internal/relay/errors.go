// internal/relay/errors.go
package relay

import (
	"errors"
	"fmt"

	"github.com/tamzrod/uavbridge/internal/fault"
)

// ErrSessionClosed is returned to bus deliveries that arrive after the
// session that subscribed them has ended.
var ErrSessionClosed = errors.New("relay: session closed")

// BusLostError means the bus connection went away under a running adapter.
// The whole join sequence is retried.
type BusLostError struct {
	Adapter string
}

func (e *BusLostError) Error() string {
	return fmt.Sprintf("relay: %s: bus connection lost", e.Adapter)
}

func (e *BusLostError) Class() fault.Class { return fault.Resolution }
