// btlsim is a harness for the bootloader core: it can simulate the
// device against in-memory flash, serving the protocol over a TCP
// socket, and act as the host side (over serial or TCP) for flashing
// and memory dumps.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
