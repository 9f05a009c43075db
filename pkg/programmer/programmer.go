// Package programmer programs one packet's worth of records into
// already-erased flash: decode, validate, write bytes, track the running
// address context across ExtLinearAddr records. Erasing the sectors is
// left to the caller (pkg/session).
package programmer

import (
	"github.com/egyptianego17/btlcore/pkg/bterr"
	"github.com/egyptianego17/btlcore/pkg/flashdrv"
	"github.com/egyptianego17/btlcore/pkg/hexrecord"
	"github.com/egyptianego17/btlcore/pkg/validator"
)

// Quirks toggles the two source behaviors flagged in the design notes
// as preserved-verbatim-but-questionable. Both default true so the
// out-of-the-box wire behavior matches the original bootloader exactly.
type Quirks struct {
	// ResetHighWordPerRecord re-seeds AddressContext.HighWord to
	// validator.DefaultHighWord before dispatching every record, which
	// defeats ExtLinearAddr for any Data record that follows it in the
	// same packet. The corrected behavior (false) only sets HighWord on
	// ExtLinearAddr records and otherwise leaves it alone.
	ResetHighWordPerRecord bool

	// DoubleOffsetBootloaderSize adds BootloaderSize on top of the
	// already-application-ranged target address before programming,
	// which writes BootloaderSize bytes past where the record's address
	// says it should land. The corrected behavior (false) programs at
	// the validated target address directly.
	DoubleOffsetBootloaderSize bool
}

// DefaultQuirks preserves the source's wire-compatible behavior.
func DefaultQuirks() Quirks {
	return Quirks{ResetHighWordPerRecord: true, DoubleOffsetBootloaderSize: true}
}

// Config bundles everything ProcessPacket needs beyond the packet body
// itself.
type Config struct {
	AppRange       validator.Range
	CCRange        validator.ByteCountRange
	BootloaderSize uint32
	MaxFailures    int
	Quirks         Quirks
}

// Result reports what happened while processing one packet.
type Result struct {
	// Aborted is true if the packet-level failure cap was hit.
	Aborted bool

	// FailCount is the number of record-level failures seen.
	FailCount int

	// EndOfFile is true if an EndOfFile record stopped the loop.
	EndOfFile bool

	// StartAddress is set if a StartLinearAddr record was seen.
	StartAddress *uint32
}

// ProcessPacket decodes and applies every record in body up to
// recordCount, updating ctx in place (ExtLinearAddr records persist
// across packets within one session, per AddressContext's lifetime).
func ProcessPacket(body []byte, recordCount byte, ctx *validator.AddressContext, drv flashdrv.Driver, cfg Config) (Result, error) {
	cursor := hexrecord.NewCursor(body)
	var result Result
	var recordIndex byte

	for recordIndex < recordCount {
		if cfg.Quirks.ResetHighWordPerRecord {
			ctx.HighWord = validator.DefaultHighWord
		}

		rec := cursor.Peek()
		ok := false

		switch rec.Type {
		case hexrecord.TypeEndOfFile:
			result.EndOfFile = true
			return result, nil

		case hexrecord.TypeData:
			addr := ctx.Target(rec.OffsetAddr)
			if err := validator.ValidateData(rec, addr, cfg.AppRange, cfg.CCRange); err == nil {
				target := addr
				if cfg.Quirks.DoubleOffsetBootloaderSize {
					target += cfg.BootloaderSize
				}
				ok = programBytes(drv, target, rec.Payload())
			}

		case hexrecord.TypeExtLinearAddr:
			payload := rec.Payload()
			if len(payload) >= 2 {
				ctx.HighWord = uint16(payload[0])<<8 | uint16(payload[1])
			}
			ok = true

		case hexrecord.TypeStartLinearAddr:
			payload := rec.Payload()
			if len(payload) >= 4 {
				start := uint32(payload[0])<<24 | uint32(payload[1])<<16 | uint32(payload[2])<<8 | uint32(payload[3])
				result.StartAddress = &start
			}
			ok = true
		}

		if ok {
			cursor.Advance(rec.ByteCount)
			recordIndex++
			continue
		}

		result.FailCount++
		if result.FailCount >= cfg.MaxFailures {
			result.Aborted = true
			return result, bterr.ErrOverrun
		}
	}

	return result, nil
}

// programBytes writes payload starting at target, one byte at a time
// in ascending offset order, stopping at the first failure and never
// leaving a partially-written record counted as a success.
func programBytes(drv flashdrv.Driver, target uint32, payload []byte) bool {
	for i, b := range payload {
		if err := drv.ProgramByte(target+uint32(i), b); err != nil {
			return false
		}
	}
	return true
}
