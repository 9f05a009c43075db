// Package hexrecord decodes one Intel-HEX-style ASCII record at a time
// from a packet body. It is free of I/O and of address-range validation
// (that belongs to pkg/validator) — this package only turns ASCII nibble
// pairs into the fields a record is made of.
package hexrecord

// MaxDataBytes bounds the fixed Data array below. The wire format caps a
// record's byte count at the validator's ByteCountRange.Max, but the decoder
// itself stays defensive against a corrupt or hostile byte_count field
// so it never reads outside the array regardless of what the host sent.
const MaxDataBytes = 16

// Type classifies a decoded record.
type Type byte

const (
	TypeData            Type = 0x00
	TypeEndOfFile       Type = 0x01
	TypeExtSegmentAddr  Type = 0x02
	TypeExtLinearAddr   Type = 0x04
	TypeStartLinearAddr Type = 0x05
)

// Record is the decoded form of one line of the object-file stream. It
// is a plain value: callers own it on the stack for the duration of a
// single record's processing.
type Record struct {
	ByteCount  byte
	OffsetAddr uint16
	Type       Type
	Data       [MaxDataBytes]byte
	Checksum   byte
}

// Payload returns the record's data bytes, clamped to what was actually
// decoded (min(ByteCount, MaxDataBytes)).
func (r Record) Payload() []byte {
	n := int(r.ByteCount)
	if n > MaxDataBytes {
		n = MaxDataBytes
	}
	return r.Data[:n]
}

// nibble maps an ASCII hex digit to its 0..15 value. Anything else maps
// to 0 — this lossy mapping is preserved for wire parity; callers must
// rest validation on the record checksum, never on filtering input bytes.
func nibble(ascii byte) byte {
	switch {
	case ascii >= '0' && ascii <= '9':
		return ascii - '0'
	case ascii >= 'A' && ascii <= 'F':
		return ascii - 'A' + 10
	case ascii >= 'a' && ascii <= 'f':
		return ascii - 'a' + 10
	default:
		return 0
	}
}

// readByte decodes the ASCII hex pair at buf[pos:pos+2]. Out-of-range
// positions decode as zero rather than panicking, matching the
// decoder's no-side-effects, no-validation contract.
func readByte(buf []byte, pos int) byte {
	hi := byte(0)
	lo := byte(0)
	if pos >= 0 && pos < len(buf) {
		hi = nibble(buf[pos])
	}
	if pos+1 >= 0 && pos+1 < len(buf) {
		lo = nibble(buf[pos+1])
	}
	return hi<<4 | lo
}

// Field offsets relative to a record's start, matching the source's
// BTL_CC_0.. / BTL_ADD_0.. / BTL_RT_0.. / BTL_DATA_0.. layout.
const (
	offByteCountHi = 0
	offByteCountLo = 1
	offAddrHi      = 2
	offAddrLo      = 4
	offTypeHi      = 6
	offDataStart   = 8
)

// ParseRecord decodes one record from buf starting at cursor. It does
// not advance the cursor and performs no range or checksum validation.
func ParseRecord(buf []byte, cursor int) Record {
	var r Record
	r.ByteCount = readByte(buf, cursor+offByteCountHi)
	r.OffsetAddr = uint16(readByte(buf, cursor+offAddrHi))<<8 | uint16(readByte(buf, cursor+offAddrLo))
	r.Type = Type(readByte(buf, cursor+offTypeHi))

	n := int(r.ByteCount)
	if n > MaxDataBytes {
		n = MaxDataBytes
	}
	for i := 0; i < n; i++ {
		r.Data[i] = readByte(buf, cursor+offDataStart+i*2)
	}

	r.Checksum = readByte(buf, cursor+offDataStart+int(r.ByteCount)*2)
	return r
}

// Length returns how far a cursor advances after consuming a record
// with the given byte count: 2 for count + 4 for address + 2 for type +
// 2*byteCount for data + 2 for checksum + 1 for the trailing newline.
func Length(byteCount byte) int {
	return int(byteCount)*2 + 11
}

// Cursor is a mutable pointer into a packet's ASCII buffer. It is a
// per-packet value; the Programmer advances it after successfully
// applying each record.
type Cursor struct {
	Buf []byte
	Pos int
}

// NewCursor starts a cursor at the beginning of buf.
func NewCursor(buf []byte) *Cursor {
	return &Cursor{Buf: buf, Pos: 0}
}

// Peek decodes the record at the cursor's current position without
// advancing.
func (c *Cursor) Peek() Record {
	return ParseRecord(c.Buf, c.Pos)
}

// Advance moves the cursor past a consumed record of the given byte count.
func (c *Cursor) Advance(byteCount byte) {
	c.Pos += Length(byteCount)
}
