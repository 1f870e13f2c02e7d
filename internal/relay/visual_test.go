// internal/relay/visual_test.go
package relay

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/uavbridge/internal/bus"
	"github.com/tamzrod/uavbridge/internal/freshness"
	"github.com/tamzrod/uavbridge/internal/mapui"
)

type mapSlots struct {
	out *freshness.Slot[mapui.Marker]
	in  *freshness.Slot[bus.Position]
	pid *freshness.Slot[bus.PID]
}

func mapAdapter() (*MapAdapter, mapSlots) {
	s := mapSlots{
		out: freshness.New[mapui.Marker](),
		in:  freshness.New[bus.Position](),
		pid: freshness.New[bus.PID](),
	}
	return NewMapAdapter(MapConfig{Period: tick, Out: s.out, In: s.in, PID: s.pid}), s
}

func TestMapAdapter_TelemetryToMarker(t *testing.T) {
	h := newHarness()
	a, slots := mapAdapter()
	h.run(t, a)

	require.NoError(t, h.client(t, "sim").Publish(context.Background(), bus.TopicTelemetry, riga()))

	require.Eventually(t, func() bool { return slots.out.Len() == 1 }, waitFor, tick)
	m, _ := slots.out.Pop()
	assert.Equal(t, mapui.Marker{Lat: 56.9, Lng: 24.18, Heading: 90}, m)
}

func TestMapAdapter_MissingHeadingSkipped(t *testing.T) {
	h := newHarness()
	a, slots := mapAdapter()
	r := h.run(t, a)

	partial := riga()
	delete(partial, "heading-deg")
	partial["latitude-deg"] = 10.0

	pub := h.client(t, "sim")
	require.NoError(t, pub.Publish(context.Background(), bus.TopicTelemetry, partial))
	require.NoError(t, pub.Publish(context.Background(), bus.TopicTelemetry, riga()))

	require.Eventually(t, func() bool { return slots.out.Len() == 1 }, waitFor, tick)
	m, _ := slots.out.Pop()
	assert.Equal(t, 56.9, m.Lat)
	assert.Equal(t, uint64(0), slots.out.Overwritten())
	assert.Equal(t, Running, r.State())
}

func TestMapAdapter_PublishesOverrides(t *testing.T) {
	h := newHarness()
	a, slots := mapAdapter()

	watch := h.client(t, "watch")
	positions := listen[bus.Position](t, watch, bus.TopicPosition)
	gains := listen[bus.PID](t, watch, bus.TopicPID)
	h.run(t, a)

	// only the latest forced position survives
	slots.in.Push(bus.Position{Lat: 1, Lon: 1})
	slots.in.Push(bus.Position{Lat: 56.95, Lon: 24.1})
	slots.pid.Push(bus.PID{Kp: 0.5, Ki: 0.1, Kd: 0.05})

	require.Eventually(t, func() bool { return positions.len() == 1 && gains.len() == 1 }, waitFor, tick)
	assert.Equal(t, []bus.Position{{Lat: 56.95, Lon: 24.1}}, positions.all())
	assert.Equal(t, []bus.PID{{Kp: 0.5, Ki: 0.1, Kd: 0.05}}, gains.all())
}
