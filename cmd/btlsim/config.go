package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/egyptianego17/btlcore/pkg/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "print the resolved configuration and where it came from",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConfig()
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig() error {
	path, err := config.ConfigPath()
	if err != nil {
		fmt.Println("no btlcore.ini found, using built-in defaults")
	} else {
		fmt.Printf("loaded from %s\n", path)
	}

	fmt.Printf("port:            %s\n", cfg.Port)
	fmt.Printf("baud:            %d\n", cfg.Baud)
	fmt.Printf("tcp:             %s\n", cfg.TCP)
	fmt.Printf("timeout:         %ds\n", cfg.Timeout)
	fmt.Printf("validation range: 0x%08X-0x%08X\n", cfg.MinAddress, cfg.AppMax)
	fmt.Printf("app base:        0x%08X\n", cfg.AppBase)
	fmt.Printf("bootloader size: 0x%X\n", cfg.BootloaderSize)
	fmt.Printf("max failures:    %d\n", cfg.MaxFailures)
	fmt.Printf("quirks:          reset_high_word=%t double_offset=%t\n",
		cfg.ResetHighWordPerRecord, cfg.DoubleOffsetBootloaderSize)
	return nil
}
