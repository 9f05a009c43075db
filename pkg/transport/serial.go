package transport

import (
	"fmt"
	"time"

	"github.com/egyptianego17/btlcore/pkg/bterr"
	"go.bug.st/serial"
)

// SerialConnection is a Connection backed by a real serial port,
// generalized from the teacher's SerialConnection: same open-with-retry
// behavior, same read-until-n-bytes loop, now parameterized by a
// per-call deadline instead of one fixed port-level timeout.
type SerialConnection struct {
	port serial.Port
}

// DialSerial opens portName at the given baud rate, 8N1, retrying the
// open once on failure (matches the teacher's "close and reopen" quirk
// for flaky USB-serial adapters).
func DialSerial(portName string, baud int) (*SerialConnection, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		if port != nil {
			port.Close()
		}
		port, err = serial.Open(portName, mode)
		if err != nil {
			return nil, wrapIo(fmt.Errorf("open %s: %w", portName, err))
		}
	}

	return &SerialConnection{port: port}, nil
}

func (s *SerialConnection) Send(data []byte) error {
	total := 0
	for total < len(data) {
		n, err := s.port.Write(data[total:])
		if err != nil {
			return wrapIo(err)
		}
		total += n
	}
	return nil
}

func (s *SerialConnection) RecvExact(buf []byte, n int, deadline time.Time) error {
	remaining := time.Until(deadline)
	if remaining < 0 {
		remaining = 0
	}
	if err := s.port.SetReadTimeout(remaining); err != nil {
		return wrapIo(err)
	}

	total := 0
	for total < n {
		if time.Now().After(deadline) {
			return bterr.ErrTimeout
		}
		read, err := s.port.Read(buf[total:n])
		if err != nil {
			return wrapIo(err)
		}
		if read == 0 {
			return bterr.ErrTimeout
		}
		total += read
	}
	return nil
}

func (s *SerialConnection) Close() error {
	return s.port.Close()
}
