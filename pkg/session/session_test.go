package session

import (
	"errors"
	"testing"
	"time"

	"github.com/egyptianego17/btlcore/pkg/bterr"
	"github.com/egyptianego17/btlcore/pkg/flashdrv"
	"github.com/egyptianego17/btlcore/pkg/framer"
	"github.com/egyptianego17/btlcore/pkg/transport"
)

const testTimeout = time.Second

// newTestPair wires a Controller on one end of an in-memory pipe and
// hands the test the raw Connection on the other end, so the test can
// speak the wire protocol directly without a second Framer/Controller.
func newTestPair(t *testing.T, cfg Config, drv flashdrv.Driver) (transport.Connection, *Controller) {
	t.Helper()
	serverConn, clientConn := transport.NewPipe()
	serverFramer := framer.New(serverConn, testTimeout)
	ctrl := New(serverFramer, drv, cfg, nil)
	return clientConn, ctrl
}

// S1: GetVersion returns the fixed version string.
func TestControllerGetVersion(t *testing.T) {
	drv := flashdrv.NewSimDriver(0x08008000, 0x0805FFFF)
	clientConn, ctrl := newTestPair(t, DefaultConfig(), drv)

	done := make(chan error, 1)
	go func() { done <- ctrl.ServeOne() }()

	if err := clientConn.Send([]byte{0x00, 0x00, byte(framer.CmdGetVersion)}); err != nil {
		t.Fatalf("Send(header) = %v", err)
	}

	want := "Bootloader Version: 1.1.1\r\n"
	buf := make([]byte, len(want))
	if err := clientConn.RecvExact(buf, len(want), time.Now().Add(testTimeout)); err != nil {
		t.Fatalf("RecvExact(version) = %v", err)
	}
	if string(buf) != want {
		t.Errorf("version = %q, want %q", buf, want)
	}

	if err := <-done; err != nil {
		t.Fatalf("ServeOne() = %v", err)
	}
	if ctrl.State() != StateIdle {
		t.Errorf("State() = %v, want StateIdle", ctrl.State())
	}
}

// S2: single-packet FlashApplication whose only record is EndOfFile.
func TestControllerFlashApplicationEndOfFileOnly(t *testing.T) {
	drv := flashdrv.NewSimDriver(0x08008000, 0x0805FFFF)
	cfg := DefaultConfig()
	clientConn, ctrl := newTestPair(t, cfg, drv)

	done := make(chan error, 1)
	go func() { done <- ctrl.ServeOne() }()

	body := []byte("00000001FF\n")

	hdr := []byte{byte(len(body)), 0x00, byte(framer.CmdFlashApplication)}
	if err := clientConn.Send(hdr); err != nil {
		t.Fatalf("Send(header) = %v", err)
	}

	ackBuf := make([]byte, 1)
	if err := clientConn.RecvExact(ackBuf, 1, time.Now().Add(testTimeout)); err != nil {
		t.Fatalf("RecvExact(ack-for-command) = %v", err)
	}
	if ackBuf[0] != byte(framer.CmdFlashApplication) {
		t.Fatalf("command ack = 0x%02X, want 0x%02X", ackBuf[0], framer.CmdFlashApplication)
	}

	meta := []byte{0x01, 0x01, 0x00, 0x00}
	if err := clientConn.Send(meta); err != nil {
		t.Fatalf("Send(meta) = %v", err)
	}
	if err := clientConn.Send(body); err != nil {
		t.Fatalf("Send(body) = %v", err)
	}

	if err := clientConn.RecvExact(ackBuf, 1, time.Now().Add(testTimeout)); err != nil {
		t.Fatalf("RecvExact(ack-for-packet) = %v", err)
	}
	if ackBuf[0] != byte(framer.CmdFlashApplication) {
		t.Fatalf("packet ack = 0x%02X, want 0x%02X", ackBuf[0], framer.CmdFlashApplication)
	}

	if err := <-done; err != nil {
		t.Fatalf("ServeOne() = %v", err)
	}
	if ctrl.State() != StateIdle {
		t.Errorf("State() = %v, want StateIdle after a clean flash", ctrl.State())
	}
	if len(drv.Snapshot()) != 0 {
		t.Errorf("Snapshot() = %v, want empty for an EOF-only image", drv.Snapshot())
	}
}

// A declared chunk length beyond the session's working buffer must be
// rejected, not used to slice past the buffer's end.
func TestControllerFlashApplicationChunkTooLargeRejected(t *testing.T) {
	drv := flashdrv.NewSimDriver(0x08008000, 0x0805FFFF)
	clientConn, ctrl := newTestPair(t, DefaultConfig(), drv)

	done := make(chan error, 1)
	go func() { done <- ctrl.ServeOne() }()

	length := DataBufferSize + 1
	hdr := []byte{byte(length), byte(length >> 8), byte(framer.CmdFlashApplication)}
	if err := clientConn.Send(hdr); err != nil {
		t.Fatalf("Send(header) = %v", err)
	}

	ackBuf := make([]byte, 1)
	if err := clientConn.RecvExact(ackBuf, 1, time.Now().Add(testTimeout)); err != nil {
		t.Fatalf("RecvExact(ack-for-command) = %v", err)
	}

	err := <-done
	if !errors.Is(err, bterr.ErrChunkTooLarge) {
		t.Fatalf("ServeOne() = %v, want ErrChunkTooLarge", err)
	}
}

// GetId echoes the board-configured identifier.
func TestControllerGetID(t *testing.T) {
	drv := flashdrv.NewSimDriver(0x08008000, 0x0805FFFF)
	drv.ID = 0x1234
	clientConn, ctrl := newTestPair(t, DefaultConfig(), drv)

	done := make(chan error, 1)
	go func() { done <- ctrl.ServeOne() }()

	if err := clientConn.Send([]byte{0x00, 0x00, byte(framer.CmdGetID)}); err != nil {
		t.Fatalf("Send(header) = %v", err)
	}

	buf := make([]byte, 2)
	if err := clientConn.RecvExact(buf, 2, time.Now().Add(testTimeout)); err != nil {
		t.Fatalf("RecvExact(id) = %v", err)
	}
	if buf[0] != 0x12 || buf[1] != 0x34 {
		t.Errorf("id bytes = %v, want [0x12 0x34]", buf)
	}

	if err := <-done; err != nil {
		t.Fatalf("ServeOne() = %v", err)
	}
}

// MemRead echoes bytes already programmed into the driver's backing store.
func TestControllerMemRead(t *testing.T) {
	drv := flashdrv.NewSimDriver(0x08008000, 0x0805FFFF)
	drv.Unlock()
	drv.ProgramByte(0x08008000, 0xDE)
	drv.ProgramByte(0x08008001, 0xAD)
	clientConn, ctrl := newTestPair(t, DefaultConfig(), drv)

	done := make(chan error, 1)
	go func() { done <- ctrl.ServeOne() }()

	hdr := []byte{memReadRequestSize, 0x00, byte(framer.CmdMemRead)}
	if err := clientConn.Send(hdr); err != nil {
		t.Fatalf("Send(header) = %v", err)
	}

	req := []byte{0x08, 0x00, 0x80, 0x00, 0x00, 0x02}
	if err := clientConn.Send(req); err != nil {
		t.Fatalf("Send(request) = %v", err)
	}

	buf := make([]byte, 2)
	if err := clientConn.RecvExact(buf, 2, time.Now().Add(testTimeout)); err != nil {
		t.Fatalf("RecvExact(data) = %v", err)
	}
	if buf[0] != 0xDE || buf[1] != 0xAD {
		t.Errorf("data = %v, want [0xDE 0xAD]", buf)
	}

	if err := <-done; err != nil {
		t.Fatalf("ServeOne() = %v", err)
	}
}

// An unrecognized command id is NACKed, not dropped.
func TestControllerUnknownCommandNacks(t *testing.T) {
	drv := flashdrv.NewSimDriver(0x08008000, 0x0805FFFF)
	clientConn, ctrl := newTestPair(t, DefaultConfig(), drv)

	done := make(chan error, 1)
	go func() { done <- ctrl.ServeOne() }()

	if err := clientConn.Send([]byte{0x00, 0x00, 0x7F}); err != nil {
		t.Fatalf("Send(header) = %v", err)
	}

	buf := make([]byte, 1)
	if err := clientConn.RecvExact(buf, 1, time.Now().Add(testTimeout)); err != nil {
		t.Fatalf("RecvExact(nack) = %v", err)
	}
	if buf[0] != 0x00 {
		t.Errorf("reply = 0x%02X, want NACK (0x00)", buf[0])
	}

	if err := <-done; err != nil {
		t.Fatalf("ServeOne() = %v", err)
	}
}
