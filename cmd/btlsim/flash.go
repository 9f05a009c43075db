package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/egyptianego17/btlcore/pkg/framer"
	"github.com/egyptianego17/btlcore/pkg/loader"
	"github.com/egyptianego17/btlcore/pkg/session"
	"github.com/egyptianego17/btlcore/pkg/util"
)

var flashCmd = &cobra.Command{
	Use:   "flash <hexfile>",
	Short: "flash an Intel HEX image to the device's application region",
	Long: `flash reads an Intel HEX file, groups its records into wire-sized
packets, and drives a FlashApplication exchange with the device.

⚠️  This erases the device's application flash before programming.

Example:
  btlsim flash --tcp 127.0.0.1:4242 firmware.hex`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFlash(args[0])
	},
}

func init() {
	rootCmd.AddCommand(flashCmd)
}

func runFlash(filename string) error {
	if !util.ConfirmDanger("You are about to erase and reprogram the device's application flash") {
		fmt.Println("Operation cancelled.")
		return nil
	}

	packets, err := loader.PacketizeIntelHexFile(filename, session.DataBufferSize)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filename, err)
	}
	if len(packets) == 0 {
		return fmt.Errorf("%s contains no records", filename)
	}

	conn, err := dialFromConfig(cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	f := framer.New(conn, time.Duration(cfg.Timeout)*time.Second)

	if err := f.SendCommand(framer.CmdFlashApplication, uint16(len(packets[0].Body))); err != nil {
		return fmt.Errorf("failed to send flash command: %w", err)
	}
	if ok, err := f.RecvReply(framer.CmdFlashApplication); err != nil {
		return fmt.Errorf("failed waiting for ack: %w", err)
	} else if !ok {
		return fmt.Errorf("device refused the flash request")
	}

	for i, p := range packets {
		done := i == len(packets)-1
		nextSize := 0
		if !done {
			nextSize = len(packets[i+1].Body)
		}
		hi, lo := framer.EncodeNextSize(nextSize)
		meta := framer.ChunkMeta{Done: done, RecordCount: p.RecordCount, NextSizeHi: hi, NextSizeLo: lo}

		if err := f.SendChunk(meta, p.Body); err != nil {
			return fmt.Errorf("failed to send chunk %d/%d: %w", i+1, len(packets), err)
		}

		ok, err := f.RecvReply(framer.CmdFlashApplication)
		if err != nil {
			return fmt.Errorf("failed waiting for ack on chunk %d/%d: %w", i+1, len(packets), err)
		}
		if !ok {
			fmt.Printf("chunk %d/%d NACKed\n", i+1, len(packets))
			continue
		}
		fmt.Printf("chunk %d/%d programmed\n", i+1, len(packets))
	}

	fmt.Println("Flash programming complete.")
	return nil
}
