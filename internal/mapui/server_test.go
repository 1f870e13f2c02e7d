// internal/mapui/server_test.go
package mapui

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/uavbridge/internal/bus"
	"github.com/tamzrod/uavbridge/internal/freshness"
)

type fixture struct {
	out *freshness.Slot[Marker]
	in  *freshness.Slot[bus.Position]
	pid *freshness.Slot[bus.PID]
	srv *Server
	url string
}

func (f *fixture) connected() bool {
	f.srv.mu.Lock()
	defer f.srv.mu.Unlock()
	return f.srv.active != nil
}

func start(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		out: freshness.New[Marker](),
		in:  freshness.New[bus.Position](),
		pid: freshness.New[bus.PID](),
	}

	f.srv = New(Config{
		Interval: 5 * time.Millisecond,
		Out:      f.out,
		In:       f.in,
		PID:      f.pid,
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.srv.Serve(ctx, ln) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("server did not stop")
		}
	})

	f.url = "ws://" + ln.Addr().String() + "/ws"
	return f
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestServer_SendsLatestMarker(t *testing.T) {
	f := start(t)
	conn := dial(t, f.url)

	f.out.Push(Marker{Lat: 1, Lng: 2, Heading: 3})
	f.out.Push(Marker{Lat: 56.9, Lng: 24.18, Heading: 90})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var got map[string]float64
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, map[string]float64{"lat": 56.9, "lng": 24.18, "heading": 90}, got)
}

func TestServer_PushesForcedPosition(t *testing.T) {
	f := start(t)
	conn := dial(t, f.url)

	require.NoError(t, conn.WriteJSON(map[string]float64{"lat": 10.5, "lng": -20.25}))

	require.Eventually(t, func() bool { return f.in.Len() == 1 }, 2*time.Second, 5*time.Millisecond)
	p, ok := f.in.Pop()
	require.True(t, ok)
	assert.Equal(t, bus.Position{Lat: 10.5, Lon: -20.25}, p)
	assert.Equal(t, 0, f.pid.Len())
}

func TestServer_PushesPID(t *testing.T) {
	f := start(t)
	conn := dial(t, f.url)

	require.NoError(t, conn.WriteJSON(map[string]float64{"kp": 1.2, "ki": 0, "kd": 3}))

	require.Eventually(t, func() bool { return f.pid.Len() == 1 }, 2*time.Second, 5*time.Millisecond)
	p, _ := f.pid.Pop()
	assert.Equal(t, bus.PID{Kp: 1.2, Ki: 0, Kd: 3}, p)
}

func TestServer_MalformedMessageKeepsConnection(t *testing.T) {
	f := start(t)
	conn := dial(t, f.url)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"lat":"north"}`)))
	require.NoError(t, conn.WriteJSON(map[string]float64{"lat": 1, "lng": 2}))

	require.Eventually(t, func() bool { return f.in.Len() == 1 }, 2*time.Second, 5*time.Millisecond)
}

func TestServer_NewPageReplacesOld(t *testing.T) {
	f := start(t)
	old := dial(t, f.url)
	require.Eventually(t, f.connected, 2*time.Second, 5*time.Millisecond)
	_ = dial(t, f.url)

	require.NoError(t, old.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := old.ReadMessage()
	assert.Error(t, err)
}
