package main

import (
	"fmt"

	"github.com/egyptianego17/btlcore/pkg/config"
	"github.com/egyptianego17/btlcore/pkg/transport"
)

// dialFromConfig opens the connection a host-side command talks to the
// device through: TCP if --tcp/cfg.TCP is set, serial otherwise.
func dialFromConfig(c *config.Config) (transport.Connection, error) {
	if c.TCP != "" {
		conn, err := transport.DialTCP(c.TCP)
		if err != nil {
			return nil, fmt.Errorf("failed to dial %s: %w", c.TCP, err)
		}
		return conn, nil
	}

	conn, err := transport.DialSerial(c.Port, c.Baud)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", c.Port, err)
	}
	return conn, nil
}
