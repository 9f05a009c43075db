// Package transport provides byte-level send/receive over a reliable
// ordered link with timeouts. It has no framing of its own — that is
// pkg/framer's job.
package transport

import (
	"fmt"
	"time"

	"github.com/egyptianego17/btlcore/pkg/bterr"
)

// Connection is the byte-level link the framer reads and writes
// through. Implementations must preserve ordering.
type Connection interface {
	// Send writes all of data, blocking until written or an error occurs.
	Send(data []byte) error

	// RecvExact blocks until exactly n bytes have arrived into buf[:n]
	// or deadline passes, in which case it returns bterr.ErrTimeout.
	RecvExact(buf []byte, n int, deadline time.Time) error

	// Close releases the underlying link.
	Close() error
}

// wrapIo wraps err, if any, as bterr.ErrIo for the caller to match with
// errors.Is while keeping the original cause in the message.
func wrapIo(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", bterr.ErrIo, err)
}
