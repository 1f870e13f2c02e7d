// internal/serialport/errors.go
package serialport

import (
	"errors"
	"fmt"

	"go.bug.st/serial"

	"github.com/tamzrod/uavbridge/internal/fault"
)

// ErrClosed is returned by I/O on a channel that has been closed.
var ErrClosed = errors.New("serialport: channel closed")

// DeviceOpenError means the device could not be opened.
type DeviceOpenError struct {
	Path string
	Err  error
}

func (e *DeviceOpenError) Error() string {
	return fmt.Sprintf("serialport: open %s: %v", e.Path, e.Err)
}

func (e *DeviceOpenError) Unwrap() error { return e.Err }

// Class reports invalid port parameters as configuration faults. Missing,
// busy or forbidden devices may recover and are transport faults.
func (e *DeviceOpenError) Class() fault.Class {
	var pe *serial.PortError
	if errors.As(e.Err, &pe) {
		switch pe.Code() {
		case serial.InvalidSpeed, serial.InvalidDataBits, serial.InvalidParity,
			serial.InvalidStopBits, serial.InvalidTimeoutValue:
			return fault.Configuration
		}
	}
	return fault.Transport
}

// WriteError means a line was not fully written.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("serialport: write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

func (e *WriteError) Class() fault.Class { return fault.Transport }

// ReadError means the device stopped delivering input.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("serialport: read %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

func (e *ReadError) Class() fault.Class { return fault.Transport }

// FrameTooLongError means no line terminator arrived within MaxFrame bytes.
// The buffered bytes are discarded.
type FrameTooLongError struct {
	Path string
	Size int
}

func (e *FrameTooLongError) Error() string {
	return fmt.Sprintf("serialport: %s: frame exceeds %d bytes", e.Path, e.Size)
}

func (e *FrameTooLongError) Class() fault.Class { return fault.Protocol }
