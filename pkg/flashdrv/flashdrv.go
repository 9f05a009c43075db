// Package flashdrv is the thin adapter the core programs flash
// through — unlock, sector-erase, byte-program, lock. The core only
// ever depends on the Driver interface; a real board wires it to the
// vendor HAL, tests and the harness wire it to SimDriver.
package flashdrv

import "github.com/egyptianego17/btlcore/pkg/bterr"

// Sector identifies one erasable region by its controller-level index.
type Sector struct {
	Bank  int
	Index int
}

// Driver is the vendor-HAL-shaped interface the programmer drives.
type Driver interface {
	// Unlock enables flash writes. Must be paired with Lock.
	Unlock() error

	// Lock disables flash writes. Called on every exit path from a
	// flashing session, including faults.
	Lock() error

	// Erase erases the given sectors. It must fail as a whole (returning
	// bterr.ErrFlashEraseFailed) unless every sector reports the
	// completion sentinel.
	Erase(sectors []Sector) error

	// ProgramByte writes a single byte at addr. Fails on alignment or
	// protection violations.
	ProgramByte(addr uint32, value byte) error
}

// SimDriver is an in-memory Driver standing in for the vendor HAL. It
// backs the harness's simulated board and the package-level tests; it
// is never used to drive real silicon.
type SimDriver struct {
	mem      map[uint32]byte
	unlocked bool

	// AppRange bounds what ProgramByte considers writable at all, mirroring
	// a real flash controller's protected regions. Set by NewSimDriver.
	AppRange struct{ Base, Max uint32 }

	// FailErase, when true, makes the next Erase call report failure
	// (simulating a hardware erase that doesn't return the sentinel).
	FailErase bool

	// FailProgramAt, when non-nil, makes ProgramByte fail for exactly
	// that address (simulating an alignment/protection violation).
	FailProgramAt *uint32

	// OTP is the one-time-programmable region OtpRead serves from. It's
	// a plain exported map so a test or harness can seed it directly.
	OTP map[uint32]byte

	// ID is the value GetId reports, standing in for a real chip's
	// DBGMCU->IDCODE register.
	ID uint16
}

// NewSimDriver creates a SimDriver whose writable window is [base, max].
func NewSimDriver(base, max uint32) *SimDriver {
	d := &SimDriver{mem: make(map[uint32]byte), OTP: make(map[uint32]byte)}
	d.AppRange.Base = base
	d.AppRange.Max = max
	return d
}

func (d *SimDriver) Unlock() error {
	d.unlocked = true
	return nil
}

func (d *SimDriver) Lock() error {
	d.unlocked = false
	return nil
}

func (d *SimDriver) Erase(sectors []Sector) error {
	if d.FailErase {
		return bterr.ErrFlashEraseFailed
	}
	for addr := range d.mem {
		if addr >= d.AppRange.Base && addr <= d.AppRange.Max {
			delete(d.mem, addr)
		}
	}
	return nil
}

func (d *SimDriver) ProgramByte(addr uint32, value byte) error {
	if !d.unlocked {
		return bterr.ErrFlashProgramFailed
	}
	if d.FailProgramAt != nil && addr == *d.FailProgramAt {
		return bterr.ErrFlashProgramFailed
	}
	if addr < d.AppRange.Base || addr > d.AppRange.Max {
		return bterr.ErrFlashProgramFailed
	}
	d.mem[addr] = value
	return nil
}

// ReadMem returns the byte at addr and whether it has ever been
// programmed. It backs the session controller's MemRead command.
func (d *SimDriver) ReadMem(addr uint32) (byte, bool) {
	v, ok := d.mem[addr]
	return v, ok
}

// ReadOTP returns the byte at addr in the OTP region and whether it has
// ever been set. It backs the session controller's OtpRead command.
func (d *SimDriver) ReadOTP(addr uint32) (byte, bool) {
	v, ok := d.OTP[addr]
	return v, ok
}

// GetID returns the simulated chip identifier. It backs the session
// controller's GetId command.
func (d *SimDriver) GetID() uint16 {
	return d.ID
}

// Snapshot returns a copy of every programmed (address, value) pair, for
// assertions in tests that don't want to poke at internals directly.
func (d *SimDriver) Snapshot() map[uint32]byte {
	out := make(map[uint32]byte, len(d.mem))
	for k, v := range d.mem {
		out[k] = v
	}
	return out
}
