// internal/fgfs/errors.go
package fgfs

import (
	"errors"
	"fmt"

	"github.com/tamzrod/uavbridge/internal/fault"
)

// ErrNotConnected is returned by operations issued before Connect or after Close.
var ErrNotConnected = errors.New("fgfs: not connected")

// ConnectionError means the simulator endpoint refused or could not be reached.
type ConnectionError struct {
	Addr string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("fgfs: connect %s: %v", e.Addr, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

func (e *ConnectionError) Class() fault.Class {
	return fault.Classify(e.Err)
}

// TransportError wraps any read or write failure on an open session.
// The session is unusable afterwards.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("fgfs: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Class() fault.Class { return fault.Transport }

// UnknownCommandError means a command id has no property mapping.
type UnknownCommandError struct {
	ID int
}

func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("fgfs: unknown command id %d", e.ID)
}

func (e *UnknownCommandError) Class() fault.Class { return fault.Protocol }
