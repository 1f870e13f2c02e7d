// internal/writer/errors.go
package writer

import (
	"fmt"

	"github.com/tamzrod/uavbridge/internal/fault"
)

// WriteError means registers on the endpoint may be stale.
type WriteError struct {
	Endpoint string
	Err      error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("writer: %s: %v", e.Endpoint, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

func (e *WriteError) Class() fault.Class { return fault.Transport }
