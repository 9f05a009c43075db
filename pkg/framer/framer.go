// Package framer reads and writes the fixed-shape packets of the
// host<->device protocol: a 3-byte command header, a 4-byte chunk
// metadata block, and a body of ASCII hex records; plus single-byte
// ACK/NACK replies and bounded diagnostic text.
package framer

import (
	"fmt"
	"time"

	"github.com/egyptianego17/btlcore/pkg/transport"
)

// CmdID identifies a host->device command.
type CmdID byte

const (
	CmdGetVersion       CmdID = 0x01
	CmdGetHelp          CmdID = 0x02
	CmdGetID            CmdID = 0x03
	CmdFlashApplication CmdID = 0x04
	CmdFlashErase       CmdID = 0x05
	CmdMemRead          CmdID = 0x06
	CmdOtpRead          CmdID = 0x07
)

// nackByte is sent in place of a command id on failure. It is
// indistinguishable from a command id of 0x00, which is fine today
// because the command set starts at 0x01 (spec open question 4).
const nackByte = 0x00

// maxTextLen bounds a single diagnostic string, matching the source's
// fixed 512-byte message buffer.
const maxTextLen = 512

// ChunkMeta is the 4-byte metadata block that precedes a chunk's body:
// whether more chunks follow, how many records the body holds, and a
// hint about the size of the next chunk's body.
type ChunkMeta struct {
	Done        bool
	RecordCount byte
	NextSizeHi  byte
	NextSizeLo  byte
}

// NextSize reconstructs the declared size of the next chunk's body.
// This intentionally uses a 4-bit shift, not 8 — the source does this
// and any implementation that wants wire compatibility must match it
// exactly (spec open question 3); it caps the reconstructed value at
// 0xFFF even though the two bytes could encode up to 0xFFFF.
func (m ChunkMeta) NextSize() int {
	return int(m.NextSizeHi)<<4 | int(m.NextSizeLo)
}

// Framer drives one Connection's framing.
type Framer struct {
	conn    transport.Connection
	timeout time.Duration
}

// New wraps conn with a per-call receive timeout.
func New(conn transport.Connection, timeout time.Duration) *Framer {
	return &Framer{conn: conn, timeout: timeout}
}

func (f *Framer) deadline() time.Time {
	return time.Now().Add(f.timeout)
}

// RecvCommand reads the 3-byte command header and returns the command
// id and the declared body length (little-endian, LSB first).
func (f *Framer) RecvCommand() (CmdID, uint16, error) {
	var hdr [3]byte
	if err := f.conn.RecvExact(hdr[:], 3, f.deadline()); err != nil {
		return 0, 0, err
	}
	length := uint16(hdr[0]) | uint16(hdr[1])<<8
	return CmdID(hdr[2]), length, nil
}

// RecvChunk reads a chunk's 4-byte metadata followed by its length-byte
// body into buf[:length]. buf must have capacity >= length.
func (f *Framer) RecvChunk(buf []byte, length int) (ChunkMeta, error) {
	var meta [4]byte
	if err := f.conn.RecvExact(meta[:], 4, f.deadline()); err != nil {
		return ChunkMeta{}, err
	}

	if length > 0 {
		if err := f.conn.RecvExact(buf[:length], length, f.deadline()); err != nil {
			return ChunkMeta{}, err
		}
	}

	return ChunkMeta{
		Done:        meta[0] == 0x01,
		RecordCount: meta[1],
		NextSizeHi:  meta[2],
		NextSizeLo:  meta[3],
	}, nil
}

// SendAck transmits a single byte equal to cmd on success.
func (f *Framer) SendAck(cmd CmdID) error {
	return f.conn.Send([]byte{byte(cmd)})
}

// SendNack transmits a single 0x00 byte.
func (f *Framer) SendNack() error {
	return f.conn.Send([]byte{nackByte})
}

// SendText writes a formatted diagnostic string, truncated to
// maxTextLen bytes.
func (f *Framer) SendText(format string, args ...interface{}) error {
	s := fmt.Sprintf(format, args...)
	if len(s) > maxTextLen {
		s = s[:maxTextLen]
	}
	return f.conn.Send([]byte(s))
}

// SendBytes writes a raw payload, used by the GetId/MemRead/OtpRead
// replies which carry binary data rather than diagnostic text.
func (f *Framer) SendBytes(data []byte) error {
	return f.conn.Send(data)
}

// RecvBody reads exactly length bytes of a command's request body (used
// by MemRead/OtpRead, whose declared length in the command header is
// the size of their own request payload, not a flashing chunk).
func (f *Framer) RecvBody(buf []byte, length int) error {
	if length == 0 {
		return nil
	}
	return f.conn.RecvExact(buf[:length], length, f.deadline())
}

// EncodeNextSize splits size into the two meta bytes NextSize decodes
// with its 4-bit shift, capping at the representable 0xFFF. Lo is left
// unmasked by NextSize's decode, so a host that wants a clean round
// trip must keep it at or below 0x0F.
func EncodeNextSize(size int) (hi, lo byte) {
	if size > 0xFFF {
		size = 0xFFF
	}
	return byte(size >> 4), byte(size & 0x0F)
}

// SendCommand writes the 3-byte command header that starts a host's
// exchange with the device, the host-side counterpart of RecvCommand.
func (f *Framer) SendCommand(cmd CmdID, length uint16) error {
	hdr := []byte{byte(length), byte(length >> 8), byte(cmd)}
	return f.conn.Send(hdr)
}

// SendChunk writes a chunk's 4-byte metadata followed by its body, the
// host-side counterpart of RecvChunk.
func (f *Framer) SendChunk(meta ChunkMeta, body []byte) error {
	done := byte(0x00)
	if meta.Done {
		done = 0x01
	}
	hdr := []byte{done, meta.RecordCount, meta.NextSizeHi, meta.NextSizeLo}
	if err := f.conn.Send(hdr); err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	return f.conn.Send(body)
}

// RecvReply reads the single-byte ACK/NACK a device sends after a
// command or chunk. ok reports whether the byte matched the expected
// command id; a mismatch (including a NACK) is reported as ok=false,
// not as an error.
func (f *Framer) RecvReply(want CmdID) (ok bool, err error) {
	var b [1]byte
	if err := f.conn.RecvExact(b[:], 1, f.deadline()); err != nil {
		return false, err
	}
	return b[0] == byte(want), nil
}

// RecvRaw reads exactly len(buf) bytes of a reply payload, used for
// GetVersion/GetHelp text and GetId/MemRead/OtpRead binary replies,
// both of which the host must know the length of in advance.
func (f *Framer) RecvRaw(buf []byte) error {
	return f.conn.RecvExact(buf, len(buf), f.deadline())
}
