package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/egyptianego17/btlcore/pkg/framer"
	"github.com/egyptianego17/btlcore/pkg/util"
)

var eraseCmd = &cobra.Command{
	Use:   "erase",
	Short: "erase the device's application flash without reprogramming it",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runErase()
	},
}

func init() {
	rootCmd.AddCommand(eraseCmd)
}

func runErase() error {
	if !util.ConfirmDanger("You are about to ERASE the device's application flash") {
		fmt.Println("Operation cancelled.")
		return nil
	}

	conn, err := dialFromConfig(cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	f := framer.New(conn, time.Duration(cfg.Timeout)*time.Second)

	if err := f.SendCommand(framer.CmdFlashErase, 0); err != nil {
		return fmt.Errorf("failed to send command: %w", err)
	}

	ok, err := f.RecvReply(framer.CmdFlashErase)
	if err != nil {
		return fmt.Errorf("failed waiting for ack: %w", err)
	}
	if !ok {
		return fmt.Errorf("device refused the erase request")
	}

	fmt.Println("Flash erase complete.")
	return nil
}
