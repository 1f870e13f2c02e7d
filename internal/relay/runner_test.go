// internal/relay/runner_test.go
package relay

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/uavbridge/internal/bus"
	"github.com/tamzrod/uavbridge/internal/fault"
	"github.com/tamzrod/uavbridge/internal/status"
)

func TestRunner_RetriesOpenUntilSuccess(t *testing.T) {
	h := newHarness()
	a := &fakeAdapter{
		name:     "sim",
		openErrs: []error{io.EOF, io.ErrUnexpectedEOF},
	}

	r := h.run(t, a)

	opens, joins, _, _ := a.counts()
	assert.Equal(t, 3, opens)
	assert.Equal(t, 1, joins)

	snap := r.Status()
	assert.Equal(t, status.HealthOK, snap.Health)
	assert.Equal(t, uint64(2), snap.Faults)
	assert.Equal(t, "running", snap.State)
}

func TestRunner_ConfigurationFaultIsFatal(t *testing.T) {
	h := newHarness()
	a := &fakeAdapter{
		name:     "uav",
		openErrs: []error{&fault.ConfigError{Reason: "no device path"}},
	}

	r := NewRunner(a, Config{RetryDelay: time.Millisecond, Dial: h.hub.Dialer()})

	err := r.Run(context.Background())
	assert.Equal(t, fault.Configuration, fault.Classify(err))
	assert.Equal(t, Stopped, r.State())

	opens, joins, _, _ := a.counts()
	assert.Equal(t, 1, opens, "configuration faults are not retried")
	assert.Equal(t, 0, joins)

	snap := r.Status()
	assert.Equal(t, status.HealthError, snap.Health)
	assert.Equal(t, uint16(fault.Configuration)+1, snap.LastErrorCode)
}

func TestRunner_ProtocolFaultSkipped(t *testing.T) {
	h := newHarness()
	a := &fakeAdapter{
		name:      "map",
		cycleErrs: []error{protoErr{"bad line"}, protoErr{"bad line"}},
	}

	r := h.run(t, a)

	require.Eventually(t, func() bool {
		_, _, cycles, _ := a.counts()
		return cycles > 4
	}, waitFor, tick)

	opens, _, _, teardowns := a.counts()
	assert.Equal(t, 1, opens)
	assert.Equal(t, 0, teardowns)
	assert.Equal(t, Running, r.State())
}

func TestRunner_TransportFaultReconnects(t *testing.T) {
	h := newHarness()
	a := &fakeAdapter{
		name:      "sim",
		cycleErrs: []error{io.EOF},
	}

	r := h.start(t, a)

	require.Eventually(t, func() bool {
		opens, joins, _, teardowns := a.counts()
		return opens == 2 && joins == 2 && teardowns == 1
	}, waitFor, tick)
	require.Eventually(t, func() bool { return r.State() == Running }, waitFor, tick)

	snap := r.Status()
	assert.Equal(t, uint64(1), snap.Faults)
	assert.Equal(t, status.HealthOK, snap.Health)
}

func TestRunner_DeliveriesRunOnWorker(t *testing.T) {
	h := newHarness()
	a := &fakeAdapter{name: "sim", topic: bus.TopicCommand}
	h.run(t, a)

	pub := h.client(t, "pub")
	for _, line := range []string{"1,0.1", "1,0.2", "1,0.3"} {
		require.NoError(t, pub.Publish(context.Background(), bus.TopicCommand, line))
	}

	require.Eventually(t, func() bool {
		a.mu.Lock()
		defer a.mu.Unlock()
		return len(a.handled) == 3
	}, waitFor, tick)

	a.mu.Lock()
	defer a.mu.Unlock()
	assert.Equal(t, []string{"1,0.1", "1,0.2", "1,0.3"}, a.handled)
}

func TestRunner_DecodeFailureSkipsDelivery(t *testing.T) {
	h := newHarness()
	a := &fakeAdapter{name: "sim", topic: bus.TopicCommand}
	r := h.run(t, a)

	pub := h.client(t, "pub")
	require.NoError(t, pub.Publish(context.Background(), bus.TopicCommand, 42))
	require.NoError(t, pub.Publish(context.Background(), bus.TopicCommand, "1,0.5"))

	require.Eventually(t, func() bool {
		a.mu.Lock()
		defer a.mu.Unlock()
		return len(a.handled) == 1
	}, waitFor, tick)

	opens, _, _, _ := a.counts()
	assert.Equal(t, 1, opens)
	assert.Equal(t, Running, r.State())
}

func TestRunner_StatusProcedure(t *testing.T) {
	h := newHarness()
	h.run(t, &fakeAdapter{name: "sim"})

	var snap status.Snapshot
	c := h.client(t, "query")
	require.NoError(t, c.Call(context.Background(), bus.StatusProcedure("sim"), struct{}{}, &snap))

	assert.Equal(t, "sim", snap.Adapter)
	assert.Equal(t, "running", snap.State)
	assert.Equal(t, status.HealthOK, snap.Health)
}

func TestRunner_StopClosesTransport(t *testing.T) {
	h := newHarness()
	a := &fakeAdapter{name: "uav"}

	r := NewRunner(a, Config{Dial: h.hub.Dialer()})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool { return r.State() == Running }, waitFor, tick)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("runner did not stop")
	}

	_, _, _, teardowns := a.counts()
	assert.Equal(t, 1, teardowns)
	assert.Equal(t, Stopped, r.State())
	assert.Equal(t, status.HealthStopped, r.Status().Health)

	// the status procedure left with the session
	var snap status.Snapshot
	err := h.client(t, "query").Call(context.Background(), bus.StatusProcedure("uav"), struct{}{}, &snap)
	assert.ErrorIs(t, err, bus.ErrNoProcedure)
}

func TestRunner_SecondsInErrorTicks(t *testing.T) {
	h := newHarness()
	a := &fakeAdapter{name: "sim"}
	for i := 0; i < 1000; i++ {
		a.openErrs = append(a.openErrs, io.EOF)
	}

	r := NewRunner(a, Config{RetryDelay: 10 * time.Millisecond, Dial: h.hub.Dialer()})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = r.Run(ctx) }()

	require.Eventually(t, func() bool { return r.Status().SecondsInError >= 1 }, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, Connecting, r.State())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "faulted", Faulted.String())
	assert.Equal(t, "unknown", State(42).String())
}

func TestRunner_NoErrorSecondsBeforeFirstFault(t *testing.T) {
	h := newHarness()
	a := &fakeAdapter{name: "sim", gate: make(chan struct{})}

	r := NewRunner(a, Config{RetryDelay: 10 * time.Millisecond, Dial: h.hub.Dialer()})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = r.Run(ctx) }()

	require.Eventually(t, func() bool { return r.State() == Connecting }, waitFor, tick)
	time.Sleep(1500 * time.Millisecond)

	snap := r.Status()
	assert.Equal(t, status.HealthUnknown, snap.Health)
	assert.Zero(t, snap.SecondsInError)
	assert.Zero(t, snap.Faults)
}
