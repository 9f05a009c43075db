package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/egyptianego17/btlcore/pkg/config"
)

var (
	cfg *config.Config

	portFlag    string
	tcpFlag     string
	timeoutFlag int
	verboseFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "btlsim",
	Short: "btlsim - simulate and drive the flash bootloader protocol",
	Long: `btlsim is a harness for the flash bootloader core.

It can run the device side of the protocol against a simulated in-memory
flash over TCP (serve), and act as the host side over a serial port or
TCP socket to flash an Intel HEX image, erase, dump device memory, or
read the ID or version (flash, erase, dump, id, version).`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		if portFlag != "" {
			cfg.Port = portFlag
		}
		if tcpFlag != "" {
			cfg.TCP = tcpFlag
		}
		if timeoutFlag > 0 {
			cfg.Timeout = timeoutFlag
		}

		return nil
	},
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&portFlag, "port", "", "serial port (e.g. /dev/ttyUSB0, COM3)")
	rootCmd.PersistentFlags().StringVar(&tcpFlag, "tcp", "", "TCP address (e.g. 127.0.0.1:4242), overrides --port")
	rootCmd.PersistentFlags().IntVar(&timeoutFlag, "timeout", 0, "per-reply timeout in seconds")
	rootCmd.PersistentFlags().BoolVar(&verboseFlag, "verbose", false, "log protocol diagnostics to stderr")

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

func diagLogger() *log.Logger {
	if !verboseFlag {
		return nil
	}
	return log.New(os.Stderr, "btlsim: ", log.LstdFlags)
}
