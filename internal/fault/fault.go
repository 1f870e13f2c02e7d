// internal/fault/fault.go
package fault

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"
)

// Class groups errors by the scope that is able to recover from them.
type Class int

const (
	// Transport faults are recovered by tearing down and reopening the transport.
	Transport Class = iota
	// Protocol faults are recovered by skipping one unit of work.
	Protocol
	// Resolution faults are recovered by retrying the whole bus join sequence.
	Resolution
	// Configuration faults are fatal at startup.
	Configuration
)

func (c Class) String() string {
	switch c {
	case Transport:
		return "transport"
	case Protocol:
		return "protocol"
	case Resolution:
		return "resolution"
	case Configuration:
		return "configuration"
	default:
		return "unknown"
	}
}

// Classed is implemented by every typed error in this module.
type Classed interface {
	error
	Class() Class
}

// ConfigError reports a configuration fault.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return "configuration: " + e.Reason }

func (e *ConfigError) Class() Class { return Configuration }

// Classify returns the recovery class for err.
// Unknown errors are treated as transport faults so the adapter reconnects
// instead of crashing.
func Classify(err error) Class {
	var c Classed
	if errors.As(err, &c) {
		return c.Class()
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return Resolution
	}

	return Transport
}

// IsTransport reports whether err is one of the well-known I/O faults
// (end-of-stream, reset, broken pipe, timeout, refused) or carries the
// transport class.
func IsTransport(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}

	return Classify(err) == Transport
}
