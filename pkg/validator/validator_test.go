package validator

import (
	"errors"
	"testing"

	"github.com/egyptianego17/btlcore/pkg/bterr"
	"github.com/egyptianego17/btlcore/pkg/checksum"
	"github.com/egyptianego17/btlcore/pkg/hexrecord"
)

var appRange = Range{Base: 0x08000000, Max: 0x0805FFFF}
var ccRange = ByteCountRange{Min: 0x00, Max: 0x10}

func TestValidateDataAccepted(t *testing.T) {
	buf := []byte("04000000DEADBEEFC4\n")
	r := hexrecord.ParseRecord(buf, 0)
	ctx := NewAddressContext()

	if err := ValidateData(r, ctx.Target(r.OffsetAddr), appRange, ccRange); err != nil {
		t.Fatalf("ValidateData() = %v, want nil", err)
	}
}

func TestValidateDataBadChecksum(t *testing.T) {
	buf := []byte("04000000DEADBEEF00\n")
	r := hexrecord.ParseRecord(buf, 0)
	ctx := NewAddressContext()

	err := ValidateData(r, ctx.Target(r.OffsetAddr), appRange, ccRange)
	if !errors.Is(err, bterr.ErrBadChecksum) {
		t.Fatalf("ValidateData() = %v, want ErrBadChecksum", err)
	}
}

func TestValidateDataAddressBelowBase(t *testing.T) {
	r := hexrecord.Record{ByteCount: 0, OffsetAddr: 0xFFFF, Type: hexrecord.TypeData}
	ctx := AddressContext{HighWord: 0x07FF}
	addr := ctx.Target(r.OffsetAddr)
	if addr != 0x07FFFFFF {
		t.Fatalf("addr = 0x%X, want 0x07FFFFFF", addr)
	}

	err := ValidateData(r, addr, appRange, ccRange)
	if !errors.Is(err, bterr.ErrAddressOutOfRange) {
		t.Fatalf("ValidateData() = %v, want ErrAddressOutOfRange", err)
	}
}

func TestValidateDataAtAppBaseAccepted(t *testing.T) {
	ctx := AddressContext{HighWord: 0x0800}
	r := hexrecord.Record{ByteCount: 0, OffsetAddr: 0x8000, Type: hexrecord.TypeData}
	var scratch [hexrecord.MaxDataBytes + 4]byte
	r.Checksum = checksum.Compute(CheckBuffer(scratch[:0], r))

	addr := ctx.Target(r.OffsetAddr)
	if addr != 0x08008000 {
		t.Fatalf("addr = 0x%X, want 0x08008000", addr)
	}
	if err := ValidateData(r, addr, appRange, ccRange); err != nil {
		t.Fatalf("ValidateData() at APP_BASE = %v, want nil", err)
	}
}

// The source validates BTL_ADD against BTL_MIN_ADDRESS (0x08000000), not
// the post-offset application base (0x08008000), so an address just
// below the application base but still above the flash origin is
// accepted — the +BootloaderSize offset is what lands the actual write
// at the application base, not the validation floor.
func TestValidateDataJustBelowAppBaseAccepted(t *testing.T) {
	ctx := AddressContext{HighWord: 0x0800}
	r := hexrecord.Record{ByteCount: 0, OffsetAddr: 0x7FFF, Type: hexrecord.TypeData}
	var scratch [hexrecord.MaxDataBytes + 4]byte
	r.Checksum = checksum.Compute(CheckBuffer(scratch[:0], r))

	addr := ctx.Target(r.OffsetAddr)
	if addr != 0x08007FFF {
		t.Fatalf("addr = 0x%X, want 0x08007FFF", addr)
	}
	if err := ValidateData(r, addr, appRange, ccRange); err != nil {
		t.Fatalf("ValidateData() just below APP_BASE = %v, want nil", err)
	}
}

func TestValidateDataBadByteCount(t *testing.T) {
	ctx := NewAddressContext()
	r := hexrecord.Record{ByteCount: 0x11, OffsetAddr: 0x0000, Type: hexrecord.TypeData}
	err := ValidateData(r, ctx.Target(r.OffsetAddr), appRange, ccRange)
	if !errors.Is(err, bterr.ErrBadByteCount) {
		t.Fatalf("ValidateData() = %v, want ErrBadByteCount", err)
	}
}

func TestMultipleExtLinearAddrMostRecentWins(t *testing.T) {
	ctx := NewAddressContext()
	ctx.HighWord = 0x0801
	ctx.HighWord = 0x0802 // last one wins, matching a packet with two ExtLinearAddr records

	if ctx.Target(0x0000) != 0x08020000 {
		t.Fatalf("Target = 0x%X, want 0x08020000", ctx.Target(0x0000))
	}
}
