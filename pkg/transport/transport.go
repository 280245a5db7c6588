// file: pkg/transport/transport.go

// Package transport carries the byte stream between the emulated drive
// and its client, over a real serial port, the process stdio, or an
// in-memory pipe for tests.
package transport

import (
	"io"
	"time"
)

// Port is the byte conduit between the emulated drive and a client.
// Reads block until data arrives; Probe is the one read that gives up.
type Port interface {
	io.ReadWriteCloser

	// Probe reads at most one byte, giving up quietly after a short
	// wait. It reports whether a byte arrived.
	Probe() (byte, bool, error)
}

// ProbeWait is how long a Probe waits before reporting no byte. The
// serial port expresses the same wait in tenth-second termios units.
const ProbeWait = 100 * time.Millisecond
