package main

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/egyptianego17/btlcore/pkg/framer"
)

var idCmd = &cobra.Command{
	Use:   "id",
	Short: "read the device's board identifier",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runID()
	},
}

func init() {
	rootCmd.AddCommand(idCmd)
}

func runID() error {
	conn, err := dialFromConfig(cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	f := framer.New(conn, time.Duration(cfg.Timeout)*time.Second)

	if err := f.SendCommand(framer.CmdGetID, 0); err != nil {
		return fmt.Errorf("failed to send command: %w", err)
	}

	buf := make([]byte, 2)
	if err := f.RecvRaw(buf); err != nil {
		return fmt.Errorf("failed to read reply: %w", err)
	}

	fmt.Printf("Device ID: 0x%04X\n", binary.BigEndian.Uint16(buf))
	return nil
}
