package transport

import "net"

// NewPipe returns two connected, in-memory Connections — no socket, no
// serial port. Used by the transport, framer and session tests that
// need a real Connection without real hardware.
func NewPipe() (Connection, Connection) {
	a, b := net.Pipe()
	return NewTCPConnection(a), NewTCPConnection(b)
}
