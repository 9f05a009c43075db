package transport

import (
	"net"
	"time"

	"github.com/egyptianego17/btlcore/pkg/bterr"
)

// TCPConnection is a Connection backed by a TCP socket, generalized
// from the teacher's TCPConnection — used when a serial-to-TCP bridge
// sits between the host and the device, or in cmd/btlsim to exercise
// the session controller over localhost without real hardware.
type TCPConnection struct {
	conn net.Conn
}

// DialTCP connects to addr (host:port) with a fixed connect timeout.
func DialTCP(addr string) (*TCPConnection, error) {
	conn, err := net.DialTimeout("tcp", addr, 10*time.Second)
	if err != nil {
		return nil, wrapIo(err)
	}
	return &TCPConnection{conn: conn}, nil
}

// NewTCPConnection wraps an already-accepted connection, e.g. from
// net.Listener.Accept in cmd/btlsim serve.
func NewTCPConnection(conn net.Conn) *TCPConnection {
	return &TCPConnection{conn: conn}
}

func (t *TCPConnection) Send(data []byte) error {
	total := 0
	for total < len(data) {
		n, err := t.conn.Write(data[total:])
		if err != nil {
			return wrapIo(err)
		}
		total += n
	}
	return nil
}

func (t *TCPConnection) RecvExact(buf []byte, n int, deadline time.Time) error {
	if err := t.conn.SetReadDeadline(deadline); err != nil {
		return wrapIo(err)
	}

	total := 0
	for total < n {
		read, err := t.conn.Read(buf[total:n])
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				return bterr.ErrTimeout
			}
			return wrapIo(err)
		}
		if read == 0 {
			return bterr.ErrTimeout
		}
		total += read
	}
	return nil
}

func (t *TCPConnection) Close() error {
	return t.conn.Close()
}
