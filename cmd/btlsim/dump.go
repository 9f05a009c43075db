package main

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/egyptianego17/btlcore/pkg/framer"
	"github.com/egyptianego17/btlcore/pkg/util"
)

var (
	dumpAddress string
	dumpCount   string
	dumpOTP     bool
)

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "read a block of device memory (or OTP) and hex-dump it",
	Long: `dump sends a MemRead (or, with --otp, OtpRead) request and renders the
reply as a hex dump.

Example:
  btlsim dump --tcp 127.0.0.1:4242 --address 08008000 --count 64`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDump()
	},
}

func init() {
	rootCmd.AddCommand(dumpCmd)
	dumpCmd.Flags().StringVar(&dumpAddress, "address", "0", "address to read from (hex, e.g. 08008000)")
	dumpCmd.Flags().StringVar(&dumpCount, "count", "40", "number of bytes to read (hex, e.g. 40 for 64 bytes)")
	dumpCmd.Flags().BoolVar(&dumpOTP, "otp", false, "read from the OTP region instead of main memory")
}

func runDump() error {
	addr, err := util.ParseHexAddress(dumpAddress)
	if err != nil {
		return fmt.Errorf("invalid address: %w", err)
	}

	count, err := util.ParseHexSize(dumpCount)
	if err != nil {
		return fmt.Errorf("invalid count: %w", err)
	}

	conn, err := dialFromConfig(cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	f := framer.New(conn, time.Duration(cfg.Timeout)*time.Second)

	cmdID := framer.CmdMemRead
	if dumpOTP {
		cmdID = framer.CmdOtpRead
	}

	if err := f.SendCommand(cmdID, 6); err != nil {
		return fmt.Errorf("failed to send command: %w", err)
	}

	req := make([]byte, 6)
	binary.BigEndian.PutUint32(req[0:4], addr)
	binary.BigEndian.PutUint16(req[4:6], count)
	if err := f.SendBytes(req); err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}

	buf := make([]byte, count)
	if err := f.RecvRaw(buf); err != nil {
		return fmt.Errorf("failed to read reply: %w", err)
	}

	util.HexDump(buf, addr)
	return nil
}
