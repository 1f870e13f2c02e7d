// internal/fault/fault_test.go
package fault

import (
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

type protoErr struct{}

func (protoErr) Error() string { return "bad line" }
func (protoErr) Class() Class  { return Protocol }

func TestClassify(t *testing.T) {
	assert.Equal(t, Protocol, Classify(fmt.Errorf("wrapped: %w", protoErr{})))
	assert.Equal(t, Configuration, Classify(&ConfigError{Reason: "no serial"}))
	assert.Equal(t, Resolution, Classify(&net.DNSError{Err: "no such host", Name: "bus"}))
	assert.Equal(t, Transport, Classify(errors.New("something else")))
}

func TestIsTransport(t *testing.T) {
	assert.True(t, IsTransport(io.EOF))
	assert.True(t, IsTransport(fmt.Errorf("read: %w", syscall.ECONNRESET)))
	assert.True(t, IsTransport(fmt.Errorf("write: %w", syscall.EPIPE)))
	assert.False(t, IsTransport(nil))
	assert.False(t, IsTransport(protoErr{}))
}

func TestClassString(t *testing.T) {
	assert.Equal(t, "transport", Transport.String())
	assert.Equal(t, "configuration", Configuration.String())
	assert.Equal(t, "unknown", Class(42).String())
}
