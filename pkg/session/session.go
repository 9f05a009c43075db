// Package session implements the bootloader's flat command dispatch
// state machine: Get Version, Get Help, Get ID, Flash Application,
// Flash Erase, Mem Read, OTP Read.
package session

import (
	"encoding/binary"
	"errors"
	"log"

	"github.com/egyptianego17/btlcore/pkg/bterr"
	"github.com/egyptianego17/btlcore/pkg/flashdrv"
	"github.com/egyptianego17/btlcore/pkg/framer"
	"github.com/egyptianego17/btlcore/pkg/programmer"
	"github.com/egyptianego17/btlcore/pkg/validator"
)

// DataBufferSize is the single fixed-size per-session working buffer,
// zeroed between packets. No heap allocation is required in the core
// beyond this one buffer.
const DataBufferSize = 2048

// Version is the literal bootloader version string reported by
// GetVersion.
type Version struct {
	Major, Minor, Patch byte
}

// String renders the version the way BTL_GetVersion does.
func (v Version) String() string {
	return string([]byte{v.Major}) + "." + string([]byte{v.Minor}) + "." + string([]byte{v.Patch})
}

// MemReader is the optional capability a Driver may implement to serve
// MemRead. It is intentionally separate from flashdrv.Driver, which
// stays exactly the unlock/erase/program/lock shape spec.md names.
type MemReader interface {
	ReadMem(addr uint32) (byte, bool)
}

// OTPReader is the optional capability a Driver may implement to serve
// OtpRead.
type OTPReader interface {
	ReadOTP(addr uint32) (byte, bool)
}

// IDProvider is the optional capability a Driver may implement to serve
// GetId.
type IDProvider interface {
	GetID() uint16
}

// State is one of the session's three flat states.
type State int

const (
	StateIdle State = iota
	StateFlashing
	StateError
)

// Config bundles the board-specific constants and quirks the session
// controller and the programmer beneath it need.
type Config struct {
	Version Version

	// AppRange is the pre-offset validation window: BTL_CheckRecord
	// validates the record's address before BootloaderSize is added, so
	// this floors at BTL_MIN_ADDRESS (the flash origin), not the
	// post-offset application base.
	AppRange    validator.Range
	CCRange     validator.ByteCountRange
	Sectors     []flashdrv.Sector
	MaxFailures int
	Quirks      programmer.Quirks

	// BootloaderSize is added to a validated target address before
	// programming, per the preserved-verbatim double-offset quirk
	// (programmer.Quirks.DoubleOffsetBootloaderSize).
	BootloaderSize uint32
}

// DefaultConfig returns the STM32F4 constants from the original source,
// with both preserved-verbatim quirks on, so default behavior matches
// the bootloader exactly.
func DefaultConfig() Config {
	return Config{
		Version:        Version{Major: '1', Minor: '1', Patch: '1'},
		AppRange:       validator.Range{Base: 0x08000000, Max: 0x0805FFFF},
		CCRange:        validator.ByteCountRange{Min: 0x00, Max: 0x10},
		Sectors:        []flashdrv.Sector{{Bank: 1, Index: 2}, {Bank: 1, Index: 3}, {Bank: 1, Index: 4}, {Bank: 1, Index: 5}},
		MaxFailures:    5,
		Quirks:         programmer.DefaultQuirks(),
		BootloaderSize: 0x8000,
	}
}

// Controller owns the session state machine for one connection.
type Controller struct {
	f      *framer.Framer
	drv    flashdrv.Driver
	cfg    Config
	logger *log.Logger

	state State
	ctx   validator.AddressContext
}

// New creates a Controller in the Idle state. logger may be nil, in
// which case the controller has no logging side effects.
func New(f *framer.Framer, drv flashdrv.Driver, cfg Config, logger *log.Logger) *Controller {
	return &Controller{f: f, drv: drv, cfg: cfg, logger: logger, state: StateIdle}
}

// State reports the controller's current state.
func (c *Controller) State() State {
	return c.state
}

func (c *Controller) logf(format string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Printf(format, args...)
	}
}

// ServeOne reads and dispatches exactly one command. It returns a
// non-nil error for a fatal transport failure or for a FlashApplication
// chunk length larger than DataBufferSize (bterr.ErrChunkTooLarge); the
// caller should close the connection. Other command-level failures are
// reported to the host as a NACK and ServeOne returns nil so the caller
// can keep serving the same connection, except that a FlashApplication
// whose erase fails sends no reply after its initial ACK.
func (c *Controller) ServeOne() error {
	cmd, length, err := c.f.RecvCommand()
	if err != nil {
		return err
	}

	switch cmd {
	case framer.CmdGetVersion:
		return c.handleGetVersion()
	case framer.CmdGetHelp:
		return c.handleGetHelp()
	case framer.CmdGetID:
		return c.handleGetID()
	case framer.CmdFlashApplication:
		return c.handleFlashApplication(length)
	case framer.CmdFlashErase:
		return c.handleFlashErase()
	case framer.CmdMemRead:
		return c.handleMemRead(length)
	case framer.CmdOtpRead:
		return c.handleOtpRead(length)
	default:
		c.logf("unknown command id %#x", cmd)
		return c.f.SendNack()
	}
}

// HelpText is the fixed reply to GetHelp. A host that doesn't negotiate
// length in advance can rely on len(HelpText) to size its read buffer.
const HelpText = "commands: version help id flash erase memread otpread\r\n"

// VersionReplyLength is the fixed length of the GetVersion reply text:
// major/minor/patch are each rendered as a single byte, so the overall
// length never varies with their value.
const VersionReplyLength = len("Bootloader Version: X.Y.Z\r\n")

func (c *Controller) handleGetVersion() error {
	return c.f.SendText("Bootloader Version: %s\r\n", c.cfg.Version.String())
}

func (c *Controller) handleGetHelp() error {
	return c.f.SendText(HelpText)
}

func (c *Controller) handleGetID() error {
	idp, ok := c.drv.(IDProvider)
	if !ok {
		return c.f.SendNack()
	}
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], idp.GetID())
	return c.f.SendBytes(buf[:])
}

// memReadRequestSize is the fixed request body for MemRead/OtpRead: a
// 4-byte big-endian address followed by a 2-byte big-endian count.
const memReadRequestSize = 6

func (c *Controller) handleMemRead(length uint16) error {
	return c.serveRead(length, func(addr uint32) (byte, bool) {
		r, ok := c.drv.(MemReader)
		if !ok {
			return 0, false
		}
		return r.ReadMem(addr)
	})
}

func (c *Controller) handleOtpRead(length uint16) error {
	return c.serveRead(length, func(addr uint32) (byte, bool) {
		r, ok := c.drv.(OTPReader)
		if !ok {
			return 0, false
		}
		return r.ReadOTP(addr)
	})
}

func (c *Controller) serveRead(length uint16, readByte func(addr uint32) (byte, bool)) error {
	if length != memReadRequestSize {
		return c.f.SendNack()
	}

	var req [memReadRequestSize]byte
	if err := c.f.RecvBody(req[:], memReadRequestSize); err != nil {
		return err
	}

	addr := binary.BigEndian.Uint32(req[0:4])
	count := binary.BigEndian.Uint16(req[4:6])

	out := make([]byte, count)
	for i := range out {
		v, ok := readByte(addr + uint32(i))
		if !ok {
			return c.f.SendNack()
		}
		out[i] = v
	}
	return c.f.SendBytes(out)
}

func (c *Controller) handleFlashErase() error {
	if err := c.drv.Unlock(); err != nil {
		return c.f.SendNack()
	}
	defer c.drv.Lock()

	if err := c.drv.Erase(c.cfg.Sectors); err != nil {
		c.logf("erase failed: %v", err)
		return c.f.SendNack()
	}
	return c.f.SendAck(framer.CmdFlashErase)
}

// handleFlashApplication drives the multi-packet flashing loop: ACK,
// erase, then repeatedly receive a chunk and apply it until the final
// packet or the failure cap, re-locking flash on every exit path.
func (c *Controller) handleFlashApplication(firstLength uint16) error {
	if err := c.f.SendAck(framer.CmdFlashApplication); err != nil {
		return err
	}

	if err := c.drv.Unlock(); err != nil {
		c.state = StateIdle
		return c.f.SendNack()
	}
	defer c.drv.Lock()
	defer func() { c.state = StateIdle }()

	if err := c.drv.Erase(c.cfg.Sectors); err != nil {
		c.logf("erase failed: %v", err)
		c.state = StateError
		return nil
	}

	c.state = StateFlashing
	c.ctx = validator.NewAddressContext()

	buf := make([]byte, DataBufferSize)
	length := int(firstLength)
	if length > DataBufferSize {
		return bterr.ErrChunkTooLarge
	}
	failCount := 0

	progCfg := programmer.Config{
		AppRange:       c.cfg.AppRange,
		CCRange:        c.cfg.CCRange,
		BootloaderSize: c.cfg.BootloaderSize,
		MaxFailures:    c.cfg.MaxFailures,
		Quirks:         c.cfg.Quirks,
	}

	for {
		meta, err := c.f.RecvChunk(buf, length)
		if err != nil {
			return err
		}

		result, perr := programmer.ProcessPacket(buf[:length], meta.RecordCount, &c.ctx, c.drv, progCfg)
		if perr != nil && !errors.Is(perr, bterr.ErrOverrun) {
			return perr
		}

		if perr != nil {
			if err := c.f.SendNack(); err != nil {
				return err
			}
			failCount++
		} else {
			if err := c.f.SendAck(framer.CmdFlashApplication); err != nil {
				return err
			}
		}

		for i := range buf[:length] {
			buf[i] = 0
		}

		if meta.Done || failCount >= c.cfg.MaxFailures {
			return nil
		}
		length = meta.NextSize()
		if length > DataBufferSize {
			return bterr.ErrChunkTooLarge
		}
	}
}
