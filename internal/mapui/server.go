// internal/mapui/server.go
package mapui

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tamzrod/uavbridge/internal/bus"
	"github.com/tamzrod/uavbridge/internal/freshness"
)

// Marker is the aircraft position drawn on the map.
type Marker struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Heading float64 `json:"heading"`
}

// inbound is anything the map page sends: a forced position, PID gains, or both.
type inbound struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
	Kp  *float64 `json:"kp"`
	Ki  *float64 `json:"ki"`
	Kd  *float64 `json:"kd"`
}

const (
	DefaultInterval = 100 * time.Millisecond
	writeWait       = 10 * time.Second
)

type Config struct {
	Listen string

	// Interval is how often the outbound slot is polled for a new marker.
	Interval time.Duration

	Out *freshness.Slot[Marker]
	In  *freshness.Slot[bus.Position]
	PID *freshness.Slot[bus.PID]

	Logger *slog.Logger
}

// Server bridges one map page to the freshness slots over a websocket.
// The outbound slot has a single consumer, so a new page replaces the
// previous one.
type Server struct {
	cfg      Config
	log      *slog.Logger
	upgrader websocket.Upgrader

	mu     sync.Mutex
	active *websocket.Conn
}

func New(cfg Config) *Server {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Server{
		cfg: cfg,
		log: cfg.Logger.With("component", "mapui"),
		upgrader: websocket.Upgrader{
			// the page is served from anywhere on the operator's machine
			CheckOrigin:     func(*http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Handler serves the websocket endpoint on /ws.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}

// Run serves until ctx ends.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx ends.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		s.replace(nil)
	}()

	s.log.Info("map ui listening", "addr", ln.Addr().String())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// replace makes conn the active page and closes the previous one.
func (s *Server) replace(conn *websocket.Conn) {
	s.mu.Lock()
	prev := s.active
	s.active = conn
	s.mu.Unlock()

	if prev != nil {
		_ = prev.Close()
	}
}

func (s *Server) release(conn *websocket.Conn) {
	s.mu.Lock()
	if s.active == conn {
		s.active = nil
	}
	s.mu.Unlock()
	_ = conn.Close()
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("upgrade failed", "error", err)
		return
	}

	s.replace(conn)
	s.log.Info("map page connected", "remote", r.RemoteAddr)

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.readLoop(conn)
	}()

	s.writeLoop(conn, done)
	s.release(conn)
	<-done
	s.log.Info("map page disconnected", "remote", r.RemoteAddr)
}

// writeLoop sends the latest marker each interval until the page goes away.
func (s *Server) writeLoop(conn *websocket.Conn, done <-chan struct{}) {
	t := time.NewTicker(s.cfg.Interval)
	defer t.Stop()

	for {
		select {
		case <-done:
			return
		case <-t.C:
			m, ok := s.cfg.Out.Pop()
			if !ok {
				continue
			}

			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(m); err != nil {
				s.log.Debug("write failed", "error", err)
				// unblock the reader
				_ = conn.Close()
				return
			}
		}
	}
}

func (s *Server) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) && !errors.Is(err, net.ErrClosed) {
				s.log.Debug("read failed", "error", err)
			}
			return
		}

		var in inbound
		if err := json.Unmarshal(data, &in); err != nil {
			s.log.Warn("malformed map message", "error", err)
			continue
		}
		s.accept(in)
	}
}

func (s *Server) accept(in inbound) {
	used := false

	if in.Lat != nil && in.Lng != nil && s.cfg.In != nil {
		s.cfg.In.Push(bus.Position{Lat: *in.Lat, Lon: *in.Lng})
		used = true
	}
	if in.Kp != nil && in.Ki != nil && in.Kd != nil && s.cfg.PID != nil {
		s.cfg.PID.Push(bus.PID{Kp: *in.Kp, Ki: *in.Ki, Kd: *in.Kd})
		used = true
	}

	if !used {
		s.log.Warn("ignored map message: neither lat/lng nor kp/ki/kd")
	}
}
