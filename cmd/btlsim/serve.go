package main

import (
	"fmt"
	"log"
	"net"
	"time"

	"github.com/spf13/cobra"

	"github.com/egyptianego17/btlcore/pkg/flashdrv"
	"github.com/egyptianego17/btlcore/pkg/framer"
	"github.com/egyptianego17/btlcore/pkg/session"
	"github.com/egyptianego17/btlcore/pkg/transport"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "run a simulated device, serving the bootloader protocol over TCP",
	Long: `serve listens on a TCP address and runs the session controller against
a fresh in-memory simulated flash for every connection it accepts.

This is the harness's stand-in for real hardware: point flash/dump/id/version
at the same address with --tcp to exercise the protocol end to end without a
board attached.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveListen, "listen", ":4242", "TCP address to listen on")
}

func runServe() error {
	ln, err := net.Listen("tcp", serveListen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", serveListen, err)
	}
	defer ln.Close()

	fmt.Printf("serving simulated device on %s\n", serveListen)

	logger := diagLogger()
	timeout := time.Duration(cfg.Timeout) * time.Second

	for {
		conn, err := ln.Accept()
		if err != nil {
			return fmt.Errorf("accept failed: %w", err)
		}
		go serveConn(conn, timeout, logger)
	}
}

func serveConn(conn net.Conn, timeout time.Duration, logger *log.Logger) {
	defer conn.Close()

	c := transport.NewTCPConnection(conn)
	f := framer.New(c, timeout)
	// The double-offset quirk writes BootloaderSize past a validated
	// (pre-offset) address, so the simulated writable window has to
	// extend that far past AppMax to accept every in-range write.
	drv := flashdrv.NewSimDriver(cfg.AppBase, cfg.AppMax+cfg.BootloaderSize)

	ctrl := session.New(f, drv, cfg.SessionConfig(), logger)
	for {
		if err := ctrl.ServeOne(); err != nil {
			fmt.Printf("connection from %s closed: %v\n", conn.RemoteAddr(), err)
			return
		}
	}
}
