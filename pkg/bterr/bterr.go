// Package bterr defines the error kinds shared across the bootloader core.
//
// Record-level kinds (BadChecksum, AddressOutOfRange, BadByteCount,
// FlashProgramFailed) are absorbed by the programmer and only ever
// surface to the host as a NACK plus an incremented failure counter.
// Session-level kinds (Io, Timeout, FlashEraseFailed, Overrun) unwind
// the active command back to Idle.
package bterr

import "errors"

var (
	// ErrIo wraps any transport failure. Fatal to the current command.
	ErrIo = errors.New("bterr: transport io error")

	// ErrTimeout indicates a recv deadline elapsed before enough bytes arrived.
	ErrTimeout = errors.New("bterr: transport timeout")

	// ErrBadChecksum indicates a record's stated checksum did not match
	// the recomputed one. Counted against a session's fail count.
	ErrBadChecksum = errors.New("bterr: record checksum mismatch")

	// ErrAddressOutOfRange indicates a Data record targets an address
	// outside the application region. Counted against a session's fail count.
	ErrAddressOutOfRange = errors.New("bterr: address out of range")

	// ErrBadByteCount indicates a record's byte count fell outside [MinCC, MaxCC].
	ErrBadByteCount = errors.New("bterr: byte count out of range")

	// ErrFlashEraseFailed indicates the flash driver did not report the
	// erase completion sentinel. Fatal to the session.
	ErrFlashEraseFailed = errors.New("bterr: flash erase failed")

	// ErrFlashProgramFailed indicates a single byte-program call failed.
	// Counted against a session's fail count.
	ErrFlashProgramFailed = errors.New("bterr: flash program failed")

	// ErrOverrun indicates the per-session failure cap was exceeded. Fatal.
	ErrOverrun = errors.New("bterr: too many failures, aborting")

	// ErrUnknownCommand is returned for a command id the session doesn't
	// recognize; the controller replies with a NACK.
	ErrUnknownCommand = errors.New("bterr: unknown command")

	// ErrUnknownRecordType is counted against a session's fail count when
	// a record's type byte isn't one of the five known kinds.
	ErrUnknownRecordType = errors.New("bterr: unknown record type")

	// ErrChunkTooLarge indicates a declared chunk length exceeded the
	// session's working buffer. Fatal to the current command.
	ErrChunkTooLarge = errors.New("bterr: chunk length exceeds buffer")
)
