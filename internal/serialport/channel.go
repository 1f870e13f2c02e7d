// internal/serialport/channel.go
package serialport

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/tamzrod/uavbridge/internal/status"
)

// Port is the subset of serial.Port the channel depends on.
type Port interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
}

// Opener opens a device. serial.Open is used when nil.
type Opener func(path string, mode *serial.Mode) (Port, error)

type Config struct {
	Path     string
	BaudRate int

	// PollTimeout bounds a single read; PollReadable never blocks longer.
	PollTimeout time.Duration

	// MaxFrame caps the bytes buffered while waiting for a line terminator.
	MaxFrame int

	Open   Opener
	Logger *slog.Logger
}

const (
	defaultBaudRate    = 115200
	defaultPollTimeout = 10 * time.Millisecond
	defaultMaxFrame    = 4096
)

// Channel is a line-oriented serial device.
// It is not safe for use from multiple goroutines without external ordering,
// but Close may be called at any time.
type Channel struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	port    Port
	state   status.ConnState
	pending []byte
	scratch []byte
}

func openSerial(path string, mode *serial.Mode) (Port, error) {
	p, err := serial.Open(path, mode)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Open opens the device at cfg.Path with 8N1 framing.
func Open(cfg Config) (*Channel, error) {
	if cfg.BaudRate <= 0 {
		cfg.BaudRate = defaultBaudRate
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = defaultPollTimeout
	}
	if cfg.MaxFrame <= 0 {
		cfg.MaxFrame = defaultMaxFrame
	}
	if cfg.Open == nil {
		cfg.Open = openSerial
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "serialport", "path", cfg.Path)

	port, err := cfg.Open(cfg.Path, &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, &DeviceOpenError{Path: cfg.Path, Err: err}
	}

	if err := port.SetReadTimeout(cfg.PollTimeout); err != nil {
		_ = port.Close()
		return nil, &DeviceOpenError{Path: cfg.Path, Err: err}
	}

	logger.Info("opened", "baud", cfg.BaudRate)

	return &Channel{
		cfg:     cfg,
		logger:  logger,
		port:    port,
		state:   status.Connected,
		scratch: make([]byte, 256),
	}, nil
}

func (c *Channel) Path() string { return c.cfg.Path }

func (c *Channel) State() status.ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// WriteLine writes text followed by a newline. Either every byte is
// written or an error is returned.
func (c *Channel) WriteLine(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.port == nil {
		return &WriteError{Path: c.cfg.Path, Err: ErrClosed}
	}

	buf := []byte(text + "\n")
	for len(buf) > 0 {
		n, err := c.port.Write(buf)
		if err != nil {
			c.state = status.Faulted
			return &WriteError{Path: c.cfg.Path, Err: err}
		}
		if n == 0 {
			c.state = status.Faulted
			return &WriteError{Path: c.cfg.Path, Err: io.ErrShortWrite}
		}
		buf = buf[n:]
	}
	return nil
}

// PollReadable reports whether a complete line is buffered, so that a
// following ReadLine returns without waiting. When none is pending it
// performs at most one read bounded by PollTimeout; partial input stays
// buffered.
func (c *Channel) PollReadable() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if bytes.IndexByte(c.pending, '\n') >= 0 {
		return true, nil
	}
	if err := c.readOnceLocked(); err != nil {
		return false, err
	}
	if bytes.IndexByte(c.pending, '\n') >= 0 {
		return true, nil
	}
	if err := c.checkFrameLocked(); err != nil {
		return false, err
	}
	return false, nil
}

// ReadLine returns the next line without its terminator. It blocks until a
// full line is buffered or ctx ends; partial input stays buffered.
func (c *Channel) ReadLine(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for {
		if i := bytes.IndexByte(c.pending, '\n'); i >= 0 {
			line := string(bytes.TrimSuffix(c.pending[:i], []byte{'\r'}))
			c.pending = c.pending[i+1:]
			if len(c.pending) == 0 {
				c.pending = nil
			}
			return line, nil
		}

		if err := c.checkFrameLocked(); err != nil {
			return "", err
		}

		if err := ctx.Err(); err != nil {
			return "", err
		}
		if err := c.readOnceLocked(); err != nil {
			return "", err
		}
	}
}

// checkFrameLocked drops an unterminated frame that outgrew MaxFrame.
func (c *Channel) checkFrameLocked() error {
	if len(c.pending) <= c.cfg.MaxFrame {
		return nil
	}
	n := len(c.pending)
	c.pending = nil
	return &FrameTooLongError{Path: c.cfg.Path, Size: n}
}

func (c *Channel) readOnceLocked() error {
	if c.port == nil {
		return &ReadError{Path: c.cfg.Path, Err: ErrClosed}
	}

	n, err := c.port.Read(c.scratch)
	if n > 0 {
		c.pending = append(c.pending, c.scratch[:n]...)
	}
	if err != nil {
		c.state = status.Faulted
		return &ReadError{Path: c.cfg.Path, Err: err}
	}
	return nil
}

// Close releases the device. Safe to call repeatedly.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = status.Disconnected
	c.pending = nil
	if c.port == nil {
		return nil
	}

	err := c.port.Close()
	c.port = nil
	c.logger.Debug("closed")
	return err
}
