// file: cmd/serve/bootstrap.go

package serve

import (
	"bufio"
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/gorlik/dlplus/pkg/transport"
)

// statCodes maps baud rates to the speed digit of the client's STAT
// string.
var statCodes = map[int]byte{
	75:    '1',
	110:   '2',
	300:   '3',
	600:   '4',
	1200:  '5',
	2400:  '6',
	4800:  '7',
	9600:  '8',
	19200: '9',
}

// bootstrap paces a loader program down the line, prompting the
// manual steps around it. BASIC drops bytes at full line speed, so
// each one goes out alone with a pause behind it.
func bootstrap(port transport.Port, opts *Options, libDir string) error {
	path := findLibFile(opts.Bootstrap, libDir)
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "bootstrap loader")
	}
	log.WithFields(log.Fields{"file": path, "bytes": len(data)}).Info("bootstrap")

	showText(path+".pre-install.txt", receiveInstructions(opts.Baud))
	fmt.Fprint(os.Stderr, "Press Enter when the client is receiving...")
	if _, err := bufio.NewReader(os.Stdin).ReadString('\n'); err != nil {
		return errors.Wrap(err, "bootstrap")
	}

	pace := time.Duration(opts.PacingMS) * time.Millisecond
	if err := paceOut(port, data, pace); err != nil {
		return err
	}
	// BASIC keeps loading until EOF; supply one if the file has none
	if len(data) == 0 || data[len(data)-1] != 0x1A {
		if err := paceOut(port, []byte{0x0D, 0x1A}, pace); err != nil {
			return err
		}
	}
	fmt.Fprintln(os.Stderr)
	showText(path+".post-install.txt", "")
	return nil
}

// paceOut sends data one byte at a time with a fixed gap, reporting
// progress on stderr.
func paceOut(port transport.Port, data []byte, pace time.Duration) error {
	for i, b := range data {
		if _, err := port.Write([]byte{b}); err != nil {
			return errors.Wrapf(err, "bootstrap byte %d of %d", i+1, len(data))
		}
		if i%64 == 0 || i == len(data)-1 {
			fmt.Fprintf(os.Stderr, "\r%d/%d", i+1, len(data))
		}
		if pace > 0 {
			time.Sleep(pace)
		}
	}
	return nil
}

// showText prints an instruction file next to the loader, or the
// fallback text when there is none.
func showText(path, fallback string) {
	data, err := os.ReadFile(path)
	if err != nil {
		if fallback != "" {
			fmt.Fprintln(os.Stderr, fallback)
		}
		return
	}
	os.Stderr.Write(data)
}

func receiveInstructions(baud int) string {
	code, ok := statCodes[baud]
	if !ok {
		code = '9'
	}
	return fmt.Sprintf("On the client, enter BASIC and run:\n\n    RUN \"COM:%c8N1ENN\"\n", code)
}
