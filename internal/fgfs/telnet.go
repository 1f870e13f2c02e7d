// internal/fgfs/telnet.go
package fgfs

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"net"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/tamzrod/uavbridge/internal/nmea"
	"github.com/tamzrod/uavbridge/internal/status"
	"github.com/tamzrod/uavbridge/internal/telemetry"
)

const prompt = "/> "

// TelnetConfig is the runtime config for one simulator session.
type TelnetConfig struct {
	Addr        string
	DialTimeout time.Duration
	IOTimeout   time.Duration

	// Commands maps command ids to property paths. Nil uses DefaultCommands.
	Commands map[int]string

	Logger *slog.Logger
	Now    func() time.Time
}

// TelnetClient is a single line-oriented session with the simulator's
// property server. Requests are serialized; the client never reconnects
// by itself.
type TelnetClient struct {
	cfg    TelnetConfig
	logger *slog.Logger

	mu    sync.Mutex
	conn  net.Conn
	r     *bufio.Reader
	state status.ConnState

	// last fields written per command id, valid for the current session only
	sent map[int][]string
}

var (
	_ TelemetrySource = (*TelnetClient)(nil)
	_ Commander       = (*TelnetClient)(nil)
)

func NewTelnetClient(cfg TelnetConfig) *TelnetClient {
	if cfg.Commands == nil {
		cfg.Commands = DefaultCommands()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &TelnetClient{
		cfg:    cfg,
		logger: logger.With("component", "fgfs", "addr", cfg.Addr),
		sent:   make(map[int][]string),
	}
}

// State reports the session state.
func (c *TelnetClient) State() status.ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect opens a fresh session. Any previous session is dropped.
func (c *TelnetClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.dropLocked()
	c.state = status.Connecting

	d := net.Dialer{Timeout: c.cfg.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", c.cfg.Addr)
	if err != nil {
		c.state = status.Disconnected
		return &ConnectionError{Addr: c.cfg.Addr, Err: err}
	}

	c.conn = conn
	c.r = bufio.NewReader(conn)
	c.state = status.Connected

	c.logger.Info("connected")
	return nil
}

// Close ends the session. Safe to call repeatedly.
func (c *TelnetClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		c.state = status.Disconnected
		return nil
	}

	err := c.conn.Close()
	c.conn = nil
	c.dropLocked()
	if errors.Is(err, net.ErrClosed) {
		err = nil
	}
	return err
}

func (c *TelnetClient) dropLocked() {
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.conn = nil
	c.r = nil
	c.state = status.Disconnected
	clear(c.sent)
}

// ---- requests ----

// roundTripLocked writes one request line and returns the reply up to and
// including the prompt.
func (c *TelnetClient) roundTripLocked(op, req string) (string, error) {
	if c.conn == nil {
		return "", &TransportError{Op: op, Err: ErrNotConnected}
	}

	if c.cfg.IOTimeout > 0 {
		_ = c.conn.SetDeadline(time.Now().Add(c.cfg.IOTimeout))
	}

	if _, err := c.conn.Write([]byte(req + "\r\n")); err != nil {
		return "", c.failLocked(op, err)
	}

	reply, err := readUntil(c.r, prompt)
	if err != nil {
		return "", c.failLocked(op, err)
	}
	return reply, nil
}

func (c *TelnetClient) failLocked(op string, err error) error {
	c.state = status.Faulted
	c.logger.Warn("transport fault", "op", op, "error", err)
	return &TransportError{Op: op, Err: err}
}

// ReadSubtree lists one property directory.
func (c *TelnetClient) ReadSubtree(path string) (map[string]any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	reply, err := c.roundTripLocked("ls "+path, "ls "+path)
	if err != nil {
		return nil, err
	}
	return parseListing(reply), nil
}

// WriteProperty sets one property and waits for the prompt.
func (c *TelnetClient) WriteProperty(name, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.roundTripLocked("set "+name, "set "+name+" "+value)
	return err
}

// ReadTelemetry reads the telemetry subtrees into one snapshot.
// The capture time is taken before the first read.
func (c *TelnetClient) ReadTelemetry(ctx context.Context) (telemetry.Snapshot, error) {
	snap := telemetry.New(c.cfg.Now())

	for _, path := range TelemetryPaths {
		if err := ctx.Err(); err != nil {
			return telemetry.Snapshot{}, err
		}

		props, err := c.ReadSubtree(path)
		if err != nil {
			return telemetry.Snapshot{}, err
		}
		snap.Merge(props)
	}

	return snap, nil
}

// SendCommand applies one "<id>,<field>,..." command line.
// A command whose fields equal the last ones written for the same id in
// this session is skipped.
func (c *TelnetClient) SendCommand(line string) error {
	cmd, err := nmea.Decode(line)
	if err != nil {
		return err
	}

	path, ok := c.cfg.Commands[cmd.ID]
	if !ok {
		return &UnknownCommandError{ID: cmd.ID}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if last, seen := c.sent[cmd.ID]; seen && slices.Equal(last, cmd.Fields) {
		c.logger.Debug("duplicate command skipped", "id", cmd.ID)
		return nil
	}

	value := strings.Join(cmd.Fields, ",")
	if _, err := c.roundTripLocked("set "+path, "set "+path+" "+value); err != nil {
		return err
	}

	c.sent[cmd.ID] = slices.Clone(cmd.Fields)
	return nil
}

// SetPosition moves the aircraft: latitude first, then longitude.
func (c *TelnetClient) SetPosition(lat, lon string) error {
	if err := c.WriteProperty(latitudeProperty, lat); err != nil {
		return err
	}
	return c.WriteProperty(longitudeProperty, lon)
}
