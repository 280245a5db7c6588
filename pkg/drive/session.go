// file: pkg/drive/session.go

// Package drive emulates one TPDD drive over a serial conduit: the
// Operation-mode dispatcher, the FDC-mode dispatcher, the directory
// handshake, and the TPDD2 sector cache and memory commands.
//
// A Session owns the process working directory the way a drive owns
// its disk: file operations act on whatever directory the client has
// moved into.
package drive

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/gorlik/dlplus/pkg/dirlist"
	"github.com/gorlik/dlplus/pkg/diskimg"
	"github.com/gorlik/dlplus/pkg/fname"
	"github.com/gorlik/dlplus/pkg/protocol"
	"github.com/gorlik/dlplus/pkg/transport"
)

// Config carries the per-session settings the command line and
// environment resolve to.
type Config struct {
	Model       int // 1 or 2
	Profile     fname.Profile
	Labels      fname.Labels
	DME         bool // answer the directory handshake
	Tildes      bool // mark truncated name segments
	DefaultAttr byte // zero means the profile default
	MagicFiles  bool // loader names fall back to the library dir
	StartFDC    bool // power up in FDC mode
	SharePaths  [2]string
	Image       diskimg.Image
	ROM         []byte // drive CPU rom dump, for TPDD2 memory reads
	LibDir      string
}

// Session is the drive state for one client connection.
type Session struct {
	cfg  Config
	port transport.Port
	tr   fname.Translator

	opr         bool // Operation mode; false is FDC mode
	resync      bool // one sync byte consumed while leaving FDC mode
	pending     byte // byte retained by a handshake probe
	havePending bool

	bank   int
	depth  int
	probes int  // handshake probes seen since the last listing
	dme    bool // client completed the handshake at least once

	list    dirlist.List
	cur     *dirlist.FileEntry
	scratch dirlist.FileEntry // backing for names not on disk yet

	file  *os.File
	fmode byte

	cwd   string
	label [6]byte

	cond1 byte // FDC-mode condition bits
	cond2 byte // TPDD2 condition bits

	ram    [2048]byte
	ioport [32]byte
	cpuram [128]byte
	ga     [3]byte
	rom    [4096]byte
}

// New prepares a session on port and moves the process into the share
// directory. A TPDD2 drive never answers the directory handshake, so
// the banked models force it off.
func New(port transport.Port, cfg Config) (*Session, error) {
	if cfg.Model == 0 {
		cfg.Model = 1
	}
	if cfg.Profile.Name == "" {
		cfg.Profile = fname.Default()
	}
	if cfg.Labels == (fname.Labels{}) {
		cfg.Labels = fname.DefaultLabels()
	}
	if cfg.DefaultAttr == 0 {
		cfg.DefaultAttr = cfg.Profile.DefaultAttr
	}
	if cfg.Model == 2 {
		cfg.DME = false
	}

	s := &Session{
		cfg:  cfg,
		port: port,
		tr: fname.Translator{
			Profile: cfg.Profile,
			Tildes:  cfg.Tildes,
			DME:     cfg.DME,
			Labels:  cfg.Labels,
		},
		opr: !cfg.StartFDC,
	}
	copy(s.label[:], s.tr.DirLabel("", true))
	copy(s.rom[:], cfg.ROM)

	if cfg.SharePaths[0] != "" {
		if err := os.Chdir(cfg.SharePaths[0]); err != nil {
			return nil, errors.Wrapf(err, "share directory %s", cfg.SharePaths[0])
		}
	}
	s.updateCWD()
	return s, nil
}

// Serve runs the drive until the client goes away. A clean close of
// the conduit returns nil.
func (s *Session) Serve() error {
	log.WithFields(log.Fields{
		"model":   s.cfg.Model,
		"profile": s.cfg.Profile.Name,
		"dir":     s.cwd,
	}).Info("drive ready")
	for {
		var err error
		if s.opr {
			err = s.serveOperation()
		} else {
			err = s.serveFDC()
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// serveOperation frames one request and dispatches it. Leaving FDC
// mode on a sync byte re-enters here with that byte already counted.
func (s *Session) serveOperation() error {
	src := io.Reader(s.port)
	if s.resync {
		s.resync = false
		src = io.MultiReader(bytes.NewReader([]byte{protocol.Sync}), s.port)
	}
	req, err := protocol.ReadRequest(src)
	if errors.Is(err, protocol.ErrChecksum) {
		log.WithField("opcode", fmt.Sprintf("%02X", req.Opcode)).Warn("bad checksum")
		return s.retStd(protocol.StatusParam)
	}
	if err != nil {
		return err
	}

	code, bank := protocol.Normalize(req.Opcode, s.cfg.Model == 2)
	s.bank = bank
	log.WithFields(log.Fields{
		"opcode": fmt.Sprintf("%02X", code),
		"len":    len(req.Payload),
	}).Debug("request")

	switch code {
	case protocol.ReqDirent:
		return s.reqDirent(req.Payload)
	case protocol.ReqOpen:
		return s.reqOpen(req.Payload)
	case protocol.ReqClose:
		return s.reqClose()
	case protocol.ReqRead:
		return s.reqRead()
	case protocol.ReqWrite:
		return s.reqWrite(req.Payload)
	case protocol.ReqDelete:
		return s.reqDelete()
	case protocol.ReqFormat:
		return s.reqFormat()
	case protocol.ReqStatus:
		return s.reqStatus()
	case protocol.ReqFDC:
		return s.reqFDC()
	case protocol.ReqCondition:
		return s.reqCondition()
	case protocol.ReqRename:
		return s.reqRename(req.Payload)
	case protocol.ReqVersion:
		return s.reqVersion()
	case protocol.ReqCache:
		return s.reqCache(req.Payload)
	case protocol.ReqMemWrite:
		return s.reqMemWrite(req.Payload)
	case protocol.ReqMemRead:
		return s.reqMemRead(req.Payload)
	case protocol.ReqSysinfo:
		return s.reqSysinfo()
	case protocol.ReqExec:
		return s.reqExec(req.Payload)
	}
	// locally logged only; a real drive sends nothing back
	log.WithField("opcode", fmt.Sprintf("%02X", req.Opcode)).Warn("unknown request")
	return nil
}

// respond sends one framed response.
func (s *Session) respond(opcode byte, payload []byte) error {
	_, err := s.port.Write(protocol.Frame(opcode, payload))
	return err
}

// retStd sends the one byte standard status response.
func (s *Session) retStd(status byte) error {
	return s.respond(protocol.RetStd, []byte{status})
}

// updateCWD refreshes the host directory. A directory the process
// cannot enter and write latches the write-protect condition bits.
func (s *Session) updateCWD() {
	s.cwd, _ = os.Getwd()
	if unix.Access(s.cwd, unix.W_OK|unix.X_OK) != nil {
		s.cond1 |= protocol.FDCCondWProtect
		s.cond2 |= protocol.CondWProtect
	}
}

// cdSharePath moves to the current bank's share directory when one is
// configured.
func (s *Session) cdSharePath() {
	p := s.cfg.SharePaths[s.bank]
	if p == "" || p == s.cwd {
		return
	}
	if err := os.Chdir(p); err != nil {
		log.WithError(err).WithField("dir", p).Warn("bank share unavailable")
		return
	}
	s.updateCWD()
}

// closeFile drops the open file handle, if any.
func (s *Session) closeFile() {
	if s.file != nil {
		s.file.Close()
		s.file = nil
	}
	s.fmode = 0
}

// oprCode maps a disk image failure to its Operation-mode status.
func oprCode(err error) byte {
	switch {
	case err == nil:
		return protocol.StatusOK
	case errors.Is(err, diskimg.ErrNoDisk):
		return protocol.StatusNoDisk
	case errors.Is(err, diskimg.ErrWriteProtected):
		return protocol.StatusWriteProtect
	}
	return protocol.StatusReadTimeout
}
