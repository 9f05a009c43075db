package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/egyptianego17/btlcore/pkg/framer"
	"github.com/egyptianego17/btlcore/pkg/session"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "read the device's bootloader version string",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runVersion()
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func runVersion() error {
	conn, err := dialFromConfig(cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	f := framer.New(conn, time.Duration(cfg.Timeout)*time.Second)

	if err := f.SendCommand(framer.CmdGetVersion, 0); err != nil {
		return fmt.Errorf("failed to send command: %w", err)
	}

	buf := make([]byte, session.VersionReplyLength)
	if err := f.RecvRaw(buf); err != nil {
		return fmt.Errorf("failed to read reply: %w", err)
	}

	fmt.Print(string(buf))
	return nil
}
