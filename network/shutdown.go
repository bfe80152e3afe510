package network

import (
	"io"
	"os"
	"syscall"

	"gopkg.in/vrecan/death.v3"
)

// WaitForShutdown blocks until SIGINT or SIGTERM, then closes each closer
// in order.
func WaitForShutdown(closers ...io.Closer) error {
	d := death.NewDeath(syscall.SIGINT, syscall.SIGTERM, os.Interrupt) //linux, mac, windows
	return d.WaitForDeath(closers...)
}
