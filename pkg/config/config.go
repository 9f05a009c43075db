// Package config provides configuration management for btlcore. It
// reads board and transport settings from btlcore.ini using multiple
// search paths.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/ini.v1"

	"github.com/egyptianego17/btlcore/pkg/flashdrv"
	"github.com/egyptianego17/btlcore/pkg/programmer"
	"github.com/egyptianego17/btlcore/pkg/session"
	"github.com/egyptianego17/btlcore/pkg/validator"
)

// Config holds every setting needed to stand up a session.Controller
// against either real hardware or the simulator.
type Config struct {
	// Serial/connection settings
	Port    string
	Baud    int
	Timeout int

	// TCP is used instead of Port/Baud when non-empty, for talking to a
	// btlsim instance running in TCP-bridge mode.
	TCP string

	// Board settings. MinAddress and AppMax bound the record address
	// BTL_CheckRecord validates *before* BootloaderSize is added
	// (BTL_MIN_ADDRESS/BTL_MAX_ADDRESS in the original); AppBase is the
	// post-offset application base real writes land at, used to size the
	// simulator's writable window.
	MinAddress     uint32
	AppBase        uint32
	AppMax         uint32
	BootloaderSize uint32
	CCMin          byte
	CCMax          byte
	MaxFailures    int
	Sectors        []flashdrv.Sector

	// Quirks toggles the preserved-verbatim source behaviors. Both
	// default true to match the original bootloader's wire behavior.
	ResetHighWordPerRecord     bool
	DoubleOffsetBootloaderSize bool
}

// Load reads configuration from btlcore.ini in the following search
// order:
//  1. Current directory (./btlcore.ini)
//  2. $BTLCORE directory ($BTLCORE/btlcore.ini)
//  3. Home directory (~/btlcore.ini)
//
// If no file is found, Load returns the defaults rather than an error —
// unlike a flashing tool with no sane baud-rate default, the simulator
// harness should run with zero configuration present.
func Load() (*Config, error) {
	var searchPaths []string
	searchPaths = append(searchPaths, filepath.Join(".", "btlcore.ini"))

	if dir := os.Getenv("BTLCORE"); dir != "" {
		searchPaths = append(searchPaths, filepath.Join(dir, "btlcore.ini"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(home, "btlcore.ini"))
	}

	var iniFile *ini.File
	for _, path := range searchPaths {
		if _, statErr := os.Stat(path); statErr == nil {
			f, err := ini.Load(path)
			if err != nil {
				return nil, fmt.Errorf("loading %s: %w", path, err)
			}
			iniFile = f
			break
		}
	}

	cfg := Default()
	if iniFile == nil {
		return cfg, nil
	}

	section := iniFile.Section("DEFAULT")
	cfg.Port = section.Key("port").MustString(cfg.Port)
	cfg.Baud = section.Key("baud").MustInt(cfg.Baud)
	cfg.Timeout = section.Key("timeout").MustInt(cfg.Timeout)
	cfg.TCP = section.Key("tcp").MustString(cfg.TCP)

	cfg.MinAddress = uint32(section.Key("min_address").MustUint64(uint64(cfg.MinAddress)))
	cfg.AppBase = uint32(section.Key("app_base").MustUint64(uint64(cfg.AppBase)))
	cfg.AppMax = uint32(section.Key("app_max").MustUint64(uint64(cfg.AppMax)))
	cfg.BootloaderSize = uint32(section.Key("bootloader_size").MustUint64(uint64(cfg.BootloaderSize)))
	cfg.CCMin = byte(section.Key("cc_min").MustUint64(uint64(cfg.CCMin)))
	cfg.CCMax = byte(section.Key("cc_max").MustUint64(uint64(cfg.CCMax)))
	cfg.MaxFailures = section.Key("max_failures").MustInt(cfg.MaxFailures)

	cfg.ResetHighWordPerRecord = section.Key("quirk_reset_high_word").MustBool(cfg.ResetHighWordPerRecord)
	cfg.DoubleOffsetBootloaderSize = section.Key("quirk_double_offset").MustBool(cfg.DoubleOffsetBootloaderSize)

	return cfg, nil
}

// Default returns the STM32F4 board constants from the original
// bootloader, with both preserved-verbatim quirks on.
func Default() *Config {
	return &Config{
		Port:                       "/dev/ttyUSB0",
		Baud:                       115200,
		Timeout:                    5,
		MinAddress:                 0x08000000,
		AppBase:                    0x08008000,
		AppMax:                     0x0805FFFF,
		BootloaderSize:             0x8000,
		CCMin:                      0x00,
		CCMax:                      0x10,
		MaxFailures:                5,
		Sectors:                    []flashdrv.Sector{{Bank: 1, Index: 2}, {Bank: 1, Index: 3}, {Bank: 1, Index: 4}, {Bank: 1, Index: 5}},
		ResetHighWordPerRecord:     true,
		DoubleOffsetBootloaderSize: true,
	}
}

// SessionConfig translates the loaded ini settings into a
// session.Config ready to hand to session.New.
func (c *Config) SessionConfig() session.Config {
	sc := session.DefaultConfig()
	sc.AppRange = validator.Range{Base: c.MinAddress, Max: c.AppMax}
	sc.CCRange = validator.ByteCountRange{Min: c.CCMin, Max: c.CCMax}
	sc.Sectors = c.Sectors
	sc.MaxFailures = c.MaxFailures
	sc.BootloaderSize = c.BootloaderSize
	sc.Quirks = programmer.Quirks{
		ResetHighWordPerRecord:     c.ResetHighWordPerRecord,
		DoubleOffsetBootloaderSize: c.DoubleOffsetBootloaderSize,
	}
	return sc
}

// ConfigPath returns the path to the config file Load would read, if
// any of the search locations has one.
func ConfigPath() (string, error) {
	paths := []string{filepath.Join(".", "btlcore.ini")}

	if dir := os.Getenv("BTLCORE"); dir != "" {
		paths = append(paths, filepath.Join(dir, "btlcore.ini"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, "btlcore.ini"))
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("no btlcore.ini file found")
}
