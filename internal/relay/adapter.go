// internal/relay/adapter.go
package relay

import (
	"context"
	"time"
)

// Adapter bridges the bus to one external transport.
//
// The Runner calls every method from a single goroutine, so implementations
// keep their connection and caches without locking.
type Adapter interface {
	// Name is the bus client name and the status procedure prefix.
	Name() string

	// Period is the delay between cycles.
	Period() time.Duration

	// Open brings up the primary transport.
	Open(ctx context.Context) error

	// Join subscribes to input topics through the session.
	Join(ctx context.Context, s *Session) error

	// Cycle runs one periodic iteration.
	Cycle(ctx context.Context, s *Session) error

	// Teardown closes the primary transport and drops per-connection state.
	Teardown()
}
