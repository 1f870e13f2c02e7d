// internal/writer/modbus/client_test.go
package modbus

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackRegistersBigEndian(t *testing.T) {
	assert.Equal(t, []byte{0x01, 0x02, 0xFF, 0xFE}, packRegisters([]uint16{0x0102, 0xFFFE}))
	assert.Empty(t, packRegisters(nil))
}

func TestNewEndpointClientRequiresEndpoint(t *testing.T) {
	_, err := NewEndpointClient(Config{})
	assert.Error(t, err)
}

func TestNewEndpointClientRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	_, err = NewEndpointClient(Config{Endpoint: addr})
	require.Error(t, err)
	assert.Contains(t, err.Error(), addr)
}

func TestWriteRegistersEmptyIsNoop(t *testing.T) {
	c := &EndpointClient{}
	assert.NoError(t, c.WriteRegisters(1, 0, nil))
}
