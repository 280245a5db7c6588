// file: pkg/drive/dme.go

package drive

import (
	log "github.com/sirupsen/logrus"

	"github.com/gorlik/dlplus/pkg/protocol"
)

// The mode-switch request doubles as the directory handshake. A
// directory-aware client sends it twice, each with a trailing
// terminator byte; a real switch to FDC mode arrives bare. Probing
// for the terminator tells them apart without breaking either: two
// terminators in a row latch the handshake and answer the directory
// packet, anything else switches modes like a real drive.
func (s *Session) reqFDC() error {
	if s.cfg.Model == 2 {
		// banked drives have no FDC mode; reject like a real TPDD2
		return s.retStd(protocol.StatusParam)
	}
	if s.probes < 2 && s.cfg.DME {
		b, ok, err := s.port.Probe()
		if err != nil {
			return err
		}
		switch {
		case ok && b == protocol.FDCTerm:
			s.probes++
			log.WithField("probe", s.probes).Debug("directory handshake")
		case ok:
			// first byte of a real FDC command; keep it for the scanner
			s.pending = b
			s.havePending = true
		}
	}
	if s.probes > 1 {
		if !s.dme {
			s.dme = true
			log.Info("directory-aware client detected")
		}
		return s.retDME()
	}
	s.opr = false
	log.Debug("switched to FDC mode")
	return nil
}

// retDME answers the handshake with the working directory label: a
// standard return stretched to eleven bytes, which no real drive
// sends. The client shows the six label bytes in the corner of its
// directory screen.
func (s *Session) retDME() error {
	p := make([]byte, 11)
	copy(p[1:7], s.label[:])
	return s.respond(protocol.RetStd, p)
}

// updateDirLabel rerenders the directory label after a change of
// directory.
func (s *Session) updateDirLabel() {
	if !s.cfg.DME {
		return
	}
	s.updateCWD()
	copy(s.label[:], s.tr.DirLabel(s.cwd, s.depth == 0))
	log.WithField("dir", s.cwd).Info("changed directory")
}
