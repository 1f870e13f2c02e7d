// internal/fgfs/datagram.go
package fgfs

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tamzrod/uavbridge/internal/status"
	"github.com/tamzrod/uavbridge/internal/telemetry"
)

// DatagramConfig describes a generic-protocol UDP output of the simulator.
// Each datagram is one line of Separator-delimited values, mapped onto Fields
// by position.
type DatagramConfig struct {
	Listen    string
	Fields    []string
	Separator string
	IOTimeout time.Duration

	Logger *slog.Logger
	Now    func() time.Time
}

// DatagramClient receives telemetry pushed by the simulator over UDP.
// It is read-only and does not implement Commander.
type DatagramClient struct {
	cfg    DatagramConfig
	logger *slog.Logger

	mu    sync.Mutex
	conn  net.PacketConn
	state status.ConnState
	buf   []byte
}

var _ TelemetrySource = (*DatagramClient)(nil)

func NewDatagramClient(cfg DatagramConfig) *DatagramClient {
	if cfg.Separator == "" {
		cfg.Separator = ","
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &DatagramClient{
		cfg:    cfg,
		logger: logger.With("component", "fgfs-udp", "listen", cfg.Listen),
		buf:    make([]byte, 64*1024),
	}
}

func (c *DatagramClient) State() status.ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Addr is the bound local address, nil before Connect.
func (c *DatagramClient) Addr() net.Addr {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	return c.conn.LocalAddr()
}

// Connect binds the listening socket.
func (c *DatagramClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}

	var lc net.ListenConfig
	conn, err := lc.ListenPacket(ctx, "udp", c.cfg.Listen)
	if err != nil {
		c.state = status.Disconnected
		return &ConnectionError{Addr: c.cfg.Listen, Err: err}
	}

	c.conn = conn
	c.state = status.Connected
	c.logger.Info("listening")
	return nil
}

func (c *DatagramClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = status.Disconnected
	if c.conn == nil {
		return nil
	}

	err := c.conn.Close()
	c.conn = nil
	if errors.Is(err, net.ErrClosed) {
		err = nil
	}
	return err
}

// ReadTelemetry blocks for the next datagram.
func (c *DatagramClient) ReadTelemetry(ctx context.Context) (telemetry.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return telemetry.Snapshot{}, &TransportError{Op: "recv", Err: ErrNotConnected}
	}

	deadline := time.Time{}
	if c.cfg.IOTimeout > 0 {
		deadline = time.Now().Add(c.cfg.IOTimeout)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	_ = c.conn.SetReadDeadline(deadline)

	n, _, err := c.conn.ReadFrom(c.buf)
	if err != nil {
		c.state = status.Faulted
		return telemetry.Snapshot{}, &TransportError{Op: "recv", Err: err}
	}

	snap := telemetry.New(c.cfg.Now())
	snap.Merge(parseDatagram(string(c.buf[:n]), c.cfg.Separator, c.cfg.Fields))
	return snap, nil
}

// parseDatagram maps values onto fields by position. Extra values are
// ignored; missing ones leave their field unset.
func parseDatagram(line, sep string, fields []string) map[string]any {
	line = strings.TrimRight(line, "\r\n")
	values := strings.Split(line, sep)

	out := make(map[string]any, len(fields))
	for i, name := range fields {
		if i >= len(values) {
			break
		}
		raw := strings.TrimSpace(values[i])
		if raw == "" {
			continue
		}

		switch {
		case raw == "true" || raw == "false":
			out[name] = raw == "true"
		default:
			if f, err := strconv.ParseFloat(raw, 64); err == nil {
				out[name] = f
			} else {
				out[name] = raw
			}
		}
	}
	return out
}
