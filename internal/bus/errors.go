// internal/bus/errors.go
package bus

import (
	"errors"
	"fmt"

	"github.com/tamzrod/uavbridge/internal/fault"
)

var (
	// ErrClosed is returned by operations on a closed connection.
	ErrClosed = errors.New("bus: connection closed")

	// ErrNoProcedure is returned by Call when nobody registered the name.
	ErrNoProcedure = errors.New("bus: no such procedure")
)

// ResolutionError means the router could not be reached or resolved.
// The whole join sequence has to be retried.
type ResolutionError struct {
	URL string
	Err error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("bus: join %s: %v", e.URL, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

func (e *ResolutionError) Class() fault.Class { return fault.Resolution }

// DecodeError means a payload could not be decoded into the expected type.
type DecodeError struct {
	Topic string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("bus: decode %s: %v", e.Topic, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Class() fault.Class { return fault.Protocol }

// RemoteError carries the error string returned by a procedure.
type RemoteError struct {
	Procedure string
	Message   string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("bus: %s: %s", e.Procedure, e.Message)
}

func (e *RemoteError) Class() fault.Class { return fault.Protocol }
