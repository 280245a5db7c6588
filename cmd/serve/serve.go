// file: cmd/serve/serve.go

// Package serve runs the drive emulator: it resolves the layered
// configuration into a drive session and connects it to the client's
// serial line, or to stdio under a proxy.
package serve

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/gorlik/dlplus/pkg/dirlist"
	"github.com/gorlik/dlplus/pkg/diskimg"
	"github.com/gorlik/dlplus/pkg/drive"
	"github.com/gorlik/dlplus/pkg/fname"
	"github.com/gorlik/dlplus/pkg/transport"
)

// Options carries the daemon settings, resolved from flags,
// environment and the config file.
type Options struct {
	Device string // serial device, or - for stdio
	Baud   int
	RTSCTS bool

	Model    int
	Profile  string // profile name or BASE.EXTp width spec
	Attr     string // default attribute byte
	DME      bool   // answer the directory handshake
	Tildes   bool   // mark truncated names
	Upcase   bool   // force upper case client names
	FDCMode  bool   // power up in FDC mode
	Magic    bool   // serve loader names from the library dir
	AttrName string // alternate xattr key for attribute bytes

	RootLabel   string
	ParentLabel string
	DirLabel    string

	Paths  []string // share directories, second one is bank 1
	Image  string   // disk image file
	ROM    string   // drive CPU rom dump
	LibDir string   // loader library directory

	Bootstrap string // loader to send instead of serving
	PacingMS  int    // bootstrap per-byte delay
}

// DefaultOptions returns the stock settings.
func DefaultOptions() *Options {
	l := fname.DefaultLabels()
	return &Options{
		Baud:        19200,
		Model:       1,
		Profile:     "k85",
		Attr:        "F",
		DME:         true,
		Tildes:      true,
		Magic:       true,
		PacingMS:    8,
		RootLabel:   l.Root,
		ParentLabel: l.Parent,
		DirLabel:    l.Dir,
	}
}

// Run resolves opts into a session and serves until the client goes
// away. With a bootstrap loader configured it sends that instead.
func Run(opts *Options) error {
	cfg, err := driveConfig(opts)
	if err != nil {
		return err
	}
	port, err := openPort(opts)
	if err != nil {
		return err
	}
	defer port.Close()

	if opts.Bootstrap != "" {
		return bootstrap(port, opts, cfg.LibDir)
	}

	s, err := drive.New(port, cfg)
	if err != nil {
		return err
	}
	if err := s.Serve(); err != nil {
		return err
	}
	log.Info("client disconnected")
	return nil
}

// driveConfig maps the daemon options onto a drive configuration,
// resolving every path before the session moves the working
// directory.
func driveConfig(opts *Options) (drive.Config, error) {
	var cfg drive.Config

	profile, err := fname.Parse(opts.Profile)
	if err != nil {
		return cfg, err
	}
	if opts.Upcase {
		profile.Upcase = true
	}
	if len(opts.DirLabel) != 2 {
		return cfg, errors.Errorf("directory label %q must be two bytes", opts.DirLabel)
	}
	if opts.AttrName != "" {
		dirlist.AttrName = opts.AttrName
	}

	cfg.Model = opts.Model
	cfg.Profile = profile
	cfg.Labels = fname.Labels{
		Root:   opts.RootLabel,
		Parent: opts.ParentLabel,
		Dir:    opts.DirLabel,
	}
	// the handshake and the loader fallback only help clients that
	// understand them
	cfg.DME = opts.DME && profile.DME
	cfg.MagicFiles = opts.Magic && profile.Magic
	cfg.Tildes = opts.Tildes
	cfg.StartFDC = opts.FDCMode
	if opts.Attr != "" {
		cfg.DefaultAttr = opts.Attr[0]
	}

	if len(opts.Paths) > 2 {
		return cfg, errors.New("at most two share directories, one per bank")
	}
	for i, p := range opts.Paths {
		abs, err := filepath.Abs(expandHome(p))
		if err != nil {
			return cfg, errors.Wrapf(err, "share directory %s", p)
		}
		cfg.SharePaths[i] = abs
	}
	if cfg.SharePaths[0] == "" {
		if cfg.SharePaths[0], err = os.Getwd(); err != nil {
			return cfg, err
		}
	}
	if cfg.SharePaths[1] != "" && opts.Model != 2 {
		return cfg, errors.New("a second share directory needs a two-bank drive, use --model 2")
	}

	if opts.LibDir != "" {
		if cfg.LibDir, err = filepath.Abs(expandHome(opts.LibDir)); err != nil {
			return cfg, errors.Wrapf(err, "library directory %s", opts.LibDir)
		}
	}

	if opts.Image != "" {
		abs, err := filepath.Abs(expandHome(opts.Image))
		if err != nil {
			return cfg, errors.Wrapf(err, "image %s", opts.Image)
		}
		fallback := diskimg.TPDD1
		if cfg.Model == 2 {
			fallback = diskimg.TPDD2
		}
		geom, err := diskimg.DetectGeometry(abs, fallback)
		if err != nil {
			return cfg, errors.Wrapf(err, "image %s", opts.Image)
		}
		if geom.Model != cfg.Model {
			log.WithFields(log.Fields{
				"image": geom.Model,
				"model": cfg.Model,
			}).Warn("image geometry overrides the drive model")
			cfg.Model = geom.Model
		}
		cfg.Image = diskimg.Image{Path: abs, Geom: geom}
	}

	if opts.ROM != "" {
		rom, err := os.ReadFile(expandHome(opts.ROM))
		if err != nil {
			return cfg, errors.Wrap(err, "rom image")
		}
		cfg.ROM = rom
	}

	return cfg, nil
}

// openPort connects to the client: stdio under a proxy, a named
// serial device, or the first plausible adapter found.
func openPort(opts *Options) (transport.Port, error) {
	if opts.Device == "-" {
		log.Info("serving standard input and output")
		return transport.Stdio{}, nil
	}
	dev := opts.Device
	if dev == "" {
		var err error
		if dev, err = pickDevice(); err != nil {
			return nil, err
		}
	} else if !strings.ContainsRune(dev, '/') {
		dev = "/dev/" + dev
	}
	log.WithFields(log.Fields{"device": dev, "baud": opts.Baud}).Info("opening serial port")
	return transport.OpenSerial(dev, opts.Baud, opts.RTSCTS)
}

// pickDevice scans for USB serial adapters, asking only when there is
// a real choice.
func pickDevice() (string, error) {
	var found []string
	for _, prefix := range []string{"ttyUSB", "ttyACM"} {
		found = append(found, transport.FindSerial(prefix)...)
	}
	switch len(found) {
	case 0:
		return "", errors.New("no serial device found, pass one with --device")
	case 1:
		return found[0], nil
	}
	fmt.Fprintln(os.Stderr, "Multiple serial devices found:")
	for i, d := range found {
		fmt.Fprintf(os.Stderr, "  %d) %s\n", i+1, d)
	}
	fmt.Fprint(os.Stderr, "Device: ")
	var choice int
	if _, err := fmt.Fscanln(os.Stdin, &choice); err != nil || choice < 1 || choice > len(found) {
		return "", errors.New("no device selected")
	}
	return found[choice-1], nil
}

// findLibFile resolves a loader name: absolute and explicitly
// relative paths stay as given, a bare name comes from the library
// directory.
func findLibFile(name, libDir string) string {
	name = expandHome(name)
	if filepath.IsAbs(name) || strings.HasPrefix(name, "./") || strings.HasPrefix(name, "../") {
		return name
	}
	if libDir == "" {
		return name
	}
	return filepath.Join(libDir, name)
}

func expandHome(p string) string {
	if strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, p[2:])
		}
	}
	return p
}
