// Package validator range-checks decoded record fields and verifies a
// record's stated checksum against the recomputed one. It is the only
// place address-range policy for flashing lives — the decoder itself
// must stay free of it.
package validator

import (
	"github.com/egyptianego17/btlcore/pkg/bterr"
	"github.com/egyptianego17/btlcore/pkg/checksum"
	"github.com/egyptianego17/btlcore/pkg/hexrecord"
)

// AddressContext tracks the most recently seen upper 16 bits of the
// target address, as set by ExtLinearAddr records. It lives for the
// duration of one flashing session.
type AddressContext struct {
	HighWord uint16
}

// DefaultHighWord is the vendor flash base's high word, used to seed a
// fresh AddressContext.
const DefaultHighWord = 0x0800

// NewAddressContext seeds a context with DefaultHighWord.
func NewAddressContext() AddressContext {
	return AddressContext{HighWord: DefaultHighWord}
}

// Target combines the context's high word with a record's offset into
// a 32-bit address.
func (c AddressContext) Target(offset uint16) uint32 {
	return uint32(c.HighWord)<<16 | uint32(offset)
}

// Range is the inclusive [Base, Max] application address window a Data
// record's target must fall within.
type Range struct {
	Base uint32
	Max  uint32
}

// Contains reports whether addr falls in [r.Base, r.Max].
func (r Range) Contains(addr uint32) bool {
	return addr >= r.Base && addr <= r.Max
}

// ByteCountRange is the inclusive [Min, Max] a record's byte count must
// fall within.
type ByteCountRange struct {
	Min byte
	Max byte
}

// Contains reports whether n falls in [r.Min, r.Max].
func (r ByteCountRange) Contains(n byte) bool {
	return n >= r.Min && n <= r.Max
}

// CheckBuffer builds the bytes a Data or ExtLinearAddr/StartLinearAddr
// record's checksum is computed over: the byte-count byte, the two
// offset bytes, the type byte, and the record's data bytes. It is sized
// for the stack — callers pass a backing array via buf with capacity
// hexrecord.MaxDataBytes+4 and receive the populated slice back.
func CheckBuffer(buf []byte, r hexrecord.Record) []byte {
	buf = buf[:0]
	buf = append(buf, r.ByteCount, byte(r.OffsetAddr>>8), byte(r.OffsetAddr))
	buf = append(buf, byte(r.Type))
	buf = append(buf, r.Payload()...)
	return buf
}

// ValidateData checks a Data record against the application address
// range, the byte-count bounds, and its stated checksum. addr is the
// fully composed target address (AddressContext.Target(r.OffsetAddr)).
func ValidateData(r hexrecord.Record, addr uint32, appRange Range, ccRange ByteCountRange) error {
	if !appRange.Contains(addr) {
		return bterr.ErrAddressOutOfRange
	}
	if !ccRange.Contains(r.ByteCount) {
		return bterr.ErrBadByteCount
	}

	var scratch [hexrecord.MaxDataBytes + 4]byte
	check := CheckBuffer(scratch[:0], r)
	if checksum.Compute(check) != r.Checksum {
		return bterr.ErrBadChecksum
	}
	return nil
}
