// file: pkg/transport/serial.go

package transport

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Default interbyte read behavior: block for the first byte, then allow
// a half-second gap before a read returns short.
const (
	defaultVMIN  = 1
	defaultVTIME = 5
)

// Baud rates the port layer can program. Keys are the plain numbers
// clients configure; values the termios speed codes.
var baudCodes = map[int]uint32{
	50:     unix.B50,
	75:     unix.B75,
	110:    unix.B110,
	134:    unix.B134,
	150:    unix.B150,
	200:    unix.B200,
	300:    unix.B300,
	600:    unix.B600,
	1200:   unix.B1200,
	1800:   unix.B1800,
	2400:   unix.B2400,
	4800:   unix.B4800,
	9600:   unix.B9600,
	19200:  unix.B19200,
	38400:  unix.B38400,
	57600:  unix.B57600,
	115200: unix.B115200,
	230400: unix.B230400,
}

// Bauds returns the supported rates in ascending order.
func Bauds() []int {
	out := make([]int, 0, len(baudCodes))
	for b := range baudCodes {
		out = append(out, b)
	}
	sort.Ints(out)
	return out
}

// Serial is a raw termios serial port. The descriptor stays in blocking
// mode so VMIN/VTIME govern read behavior.
type Serial struct {
	f   *os.File
	tio unix.Termios
}

// OpenSerial opens and configures a serial device: exclusive, raw,
// 8 data bits, modem lines ignored, optional RTS/CTS flow control.
// Pending bytes on the line are flushed.
func OpenSerial(device string, baud int, rtscts bool) (*Serial, error) {
	code, ok := baudCodes[baud]
	if !ok {
		return nil, errors.Errorf("unsupported baud rate %d", baud)
	}

	// Open non-blocking so a dangling modem line cannot hang us, then
	// restore blocking mode for VMIN/VTIME reads.
	fd, err := unix.Open(device, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", device)
	}
	unix.IoctlSetInt(fd, unix.TIOCEXCL, 0)
	unix.IoctlSetInt(fd, unix.TCFLSH, unix.TCIOFLUSH)
	flags, err := unix.FcntlInt(uintptr(fd), unix.F_GETFL, 0)
	if err == nil {
		_, err = unix.FcntlInt(uintptr(fd), unix.F_SETFL, flags&^unix.O_NONBLOCK)
	}
	if err != nil {
		unix.Close(fd)
		return nil, errors.Wrapf(err, "clear nonblock on %s", device)
	}

	tio, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		unix.Close(fd)
		return nil, errors.Wrapf(err, "read terminal settings of %s", device)
	}
	makeRaw(tio)
	tio.Cflag |= unix.CLOCAL | unix.CS8
	if rtscts {
		tio.Cflag |= unix.CRTSCTS
	} else {
		tio.Cflag &^= unix.CRTSCTS
	}
	tio.Cflag &^= unix.CBAUD
	tio.Cflag |= code
	tio.Ispeed = code
	tio.Ospeed = code
	tio.Cc[unix.VMIN] = defaultVMIN
	tio.Cc[unix.VTIME] = defaultVTIME
	if err := unix.IoctlSetTermios(fd, unix.TCSETS, tio); err != nil {
		unix.Close(fd)
		return nil, errors.Wrapf(err, "configure %s", device)
	}

	return &Serial{f: os.NewFile(uintptr(fd), device), tio: *tio}, nil
}

func makeRaw(tio *unix.Termios) {
	tio.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	tio.Oflag &^= unix.OPOST
	tio.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	tio.Cflag &^= unix.CSIZE | unix.PARENB
	tio.Cflag |= unix.CS8
}

func (s *Serial) Read(p []byte) (int, error)  { return s.f.Read(p) }
func (s *Serial) Write(p []byte) (int, error) { return s.f.Write(p) }
func (s *Serial) Close() error                { return s.f.Close() }

// vmt reprograms the interbyte read behavior, skipping the ioctl when
// nothing changes.
func (s *Serial) vmt(vmin, vtime byte) error {
	if s.tio.Cc[unix.VMIN] == vmin && s.tio.Cc[unix.VTIME] == vtime {
		return nil
	}
	s.tio.Cc[unix.VMIN] = vmin
	s.tio.Cc[unix.VTIME] = vtime
	return unix.IoctlSetTermios(int(s.f.Fd()), unix.TCSETS, &s.tio)
}

// Probe reads at most one byte with a one-tenth-second ceiling, then
// restores normal blocking reads.
func (s *Serial) Probe() (byte, bool, error) {
	if err := s.vmt(0, 1); err != nil {
		return 0, false, err
	}
	defer s.vmt(defaultVMIN, defaultVTIME)
	var b [1]byte
	n, err := s.f.Read(b[:])
	if err == io.EOF || (err == nil && n == 0) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return b[0], true, nil
}

// FindSerial lists /dev entries whose names start with prefix, the
// usual way to locate a USB serial adapter without asking.
func FindSerial(prefix string) []string {
	entries, err := os.ReadDir("/dev")
	if err != nil {
		return nil
	}
	var found []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), prefix) {
			found = append(found, filepath.Join("/dev", e.Name()))
		}
	}
	sort.Strings(found)
	return found
}
