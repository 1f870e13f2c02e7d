// internal/relay/harness_test.go
package relay

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/uavbridge/internal/bus"
	"github.com/tamzrod/uavbridge/internal/fault"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

type harness struct {
	hub *bus.Hub
}

func newHarness() *harness {
	return &harness{hub: bus.NewHub(5*time.Millisecond, nil)}
}

// run starts a runner for a and returns once it reaches Running.
func (h *harness) run(t *testing.T, a Adapter) *Runner {
	t.Helper()

	r := h.start(t, a)
	require.Eventually(t, func() bool { return r.State() == Running }, waitFor, tick)
	return r
}

func (h *harness) start(t *testing.T, a Adapter) *Runner {
	t.Helper()

	r := NewRunner(a, Config{
		RetryDelay:   5 * time.Millisecond,
		FaultBackoff: 5 * time.Millisecond,
		Dial:         h.hub.Dialer(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(waitFor):
			t.Error("runner did not stop")
		}
	})
	return r
}

// client is a plain bus connection standing in for other adapters.
func (h *harness) client(t *testing.T, name string) *bus.MemoryClient {
	t.Helper()

	c := h.hub.Connect(name)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// inbox collects deliveries of one type from a topic.
type inbox[T any] struct {
	mu  sync.Mutex
	got []T
}

func listen[T any](t *testing.T, c bus.Bus, topic string) *inbox[T] {
	t.Helper()

	in := &inbox[T]{}
	require.NoError(t, c.Subscribe(context.Background(), topic, func(_ context.Context, m bus.Message) {
		var v T
		if err := m.Decode(&v); err != nil {
			return
		}
		in.mu.Lock()
		in.got = append(in.got, v)
		in.mu.Unlock()
	}))
	return in
}

func (in *inbox[T]) all() []T {
	in.mu.Lock()
	defer in.mu.Unlock()
	return append([]T(nil), in.got...)
}

func (in *inbox[T]) len() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.got)
}

// ---- fake adapter ----

type protoErr struct{ msg string }

func (e protoErr) Error() string { return e.msg }

// Class marks the error as a skippable protocol fault.
func (protoErr) Class() fault.Class { return fault.Protocol }

type fakeAdapter struct {
	name string

	mu        sync.Mutex
	openErrs  []error
	cycleErrs []error
	opens     int
	joins     int
	cycles    int
	teardowns int
	handled   []string

	topic string

	// gate, when set, holds Open until it is closed or ctx ends.
	gate chan struct{}
}

func (a *fakeAdapter) Name() string          { return a.name }
func (a *fakeAdapter) Period() time.Duration { return 5 * time.Millisecond }

func (a *fakeAdapter) Open(ctx context.Context) error {
	a.mu.Lock()
	a.opens++
	gate := a.gate
	var err error
	if len(a.openErrs) > 0 {
		err = a.openErrs[0]
		a.openErrs = a.openErrs[1:]
	}
	a.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (a *fakeAdapter) Join(ctx context.Context, s *Session) error {
	a.mu.Lock()
	a.joins++
	topic := a.topic
	a.mu.Unlock()

	if topic == "" {
		return nil
	}
	return s.Subscribe(ctx, topic, func(_ context.Context, m bus.Message) error {
		var v string
		if err := m.Decode(&v); err != nil {
			return err
		}
		a.mu.Lock()
		defer a.mu.Unlock()
		a.handled = append(a.handled, v)
		return nil
	})
}

func (a *fakeAdapter) Cycle(context.Context, *Session) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.cycles++
	if len(a.cycleErrs) > 0 {
		err := a.cycleErrs[0]
		a.cycleErrs = a.cycleErrs[1:]
		return err
	}
	return nil
}

func (a *fakeAdapter) Teardown() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.teardowns++
}

func (a *fakeAdapter) counts() (opens, joins, cycles, teardowns int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.opens, a.joins, a.cycles, a.teardowns
}
