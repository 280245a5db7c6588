// file: pkg/transport/stdio.go

package transport

import (
	"os"

	"golang.org/x/sys/unix"
)

// Stdio serves the protocol over the process's standard streams, for
// running under socat or another serial proxy.
type Stdio struct{}

func (Stdio) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (Stdio) Write(p []byte) (int, error) { return os.Stdout.Write(p) }

// Close leaves the process streams alone.
func (Stdio) Close() error { return nil }

// Probe polls stdin for readability instead of reprogramming it; the
// stream may not be a terminal.
func (Stdio) Probe() (byte, bool, error) {
	fds := []unix.PollFd{{Fd: int32(os.Stdin.Fd()), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, int(ProbeWait.Milliseconds()))
	if err == unix.EINTR {
		return 0, false, nil
	}
	if err != nil || n == 0 {
		return 0, false, err
	}
	var b [1]byte
	if _, err := os.Stdin.Read(b[:]); err != nil {
		return 0, false, err
	}
	return b[0], true, nil
}
