// internal/writer/modbus/client.go
package modbus

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goburrow/modbus"
)

const (
	defaultTimeout     = 2 * time.Second
	defaultIdleTimeout = time.Minute
)

type Config struct {
	Endpoint string
	Timeout  time.Duration
}

// EndpointClient is one Modbus TCP session to the mirror endpoint.
// Requests are serialized because the unit id lives on the shared handler.
// A failed request drops the session; the next request dials again.
type EndpointClient struct {
	endpoint string

	mu      sync.Mutex
	handler *modbus.TCPClientHandler
	client  modbus.Client
}

// NewEndpointClient dials the endpoint once so a bad address surfaces at open.
func NewEndpointClient(cfg Config) (*EndpointClient, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("writer modbus: endpoint required")
	}

	h := modbus.NewTCPClientHandler(cfg.Endpoint)
	h.Timeout = cfg.Timeout
	if h.Timeout <= 0 {
		h.Timeout = defaultTimeout
	}
	h.IdleTimeout = defaultIdleTimeout

	if err := h.Connect(); err != nil {
		return nil, fmt.Errorf("writer modbus: dial %s: %w", cfg.Endpoint, err)
	}

	return &EndpointClient{
		endpoint: cfg.Endpoint,
		handler:  h,
		client:   modbus.NewClient(h),
	}, nil
}

func (c *EndpointClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handler.Close()
}

// WriteRegisters writes holding registers starting at addr.
// A single register goes out as FC 6, anything longer as FC 16.
func (c *EndpointClient) WriteRegisters(unitID uint8, addr uint16, regs []uint16) error {
	if len(regs) == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.handler.SlaveId = unitID

	var err error
	if len(regs) == 1 {
		_, err = c.client.WriteSingleRegister(addr, regs[0])
	} else {
		_, err = c.client.WriteMultipleRegisters(addr, uint16(len(regs)), packRegisters(regs))
	}
	if err != nil {
		_ = c.handler.Close()
		return fmt.Errorf("unit=%d addr=%d qty=%d: %w", unitID, addr, len(regs), err)
	}
	return nil
}

// packRegisters lays registers out big-endian, as FC 16 expects.
func packRegisters(regs []uint16) []byte {
	out := make([]byte, 0, len(regs)*2)
	for _, r := range regs {
		out = append(out, byte(r>>8), byte(r))
	}
	return out
}
