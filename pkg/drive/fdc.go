// file: pkg/drive/fdc.go

package drive

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/gorlik/dlplus/pkg/diskimg"
	"github.com/gorlik/dlplus/pkg/protocol"
)

// serveFDC scans one FDC-mode command line and dispatches it. The
// scanner eats noise bytes until a command letter, an empty line, or
// a sync byte that means the client went back to Operation mode.
func (s *Session) serveFDC() error {
	// a retained 0xFF is line noise from the mode switch
	if s.havePending && s.pending == 0xFF {
		s.havePending = false
	}

	var cmd byte
	eol := false
	for cmd == 0 {
		var c byte
		if s.havePending {
			c = s.pending
			s.havePending = false
		} else {
			var b [1]byte
			if _, err := io.ReadFull(s.port, b[:]); err != nil {
				return err
			}
			c = b[0]
		}
		switch {
		case c == protocol.FDCTerm:
			// an empty line is consumed without a response
			log.Debug("fdc empty command")
			return nil
		case c == protocol.Sync:
			// an Operation-mode preamble; yield with one sync seen
			s.opr = true
			s.resync = true
			return nil
		case strings.IndexByte(protocol.FDCCommands, c) >= 0:
			cmd = c
		case c != 0:
			// a real drive ignores garbage; eat the rest of the line
			// so it cannot pose as the next command
			log.WithField("byte", fmt.Sprintf("%02X", c)).Debug("fdc unknown command")
			return s.drainFDCLine()
		}
	}

	var params [6]byte
	n := 0
	for n < 6 && !eol {
		var b [1]byte
		if _, err := io.ReadFull(s.port, b[:]); err != nil {
			return err
		}
		switch b[0] {
		case protocol.FDCTerm:
			eol = true
		case ' ':
		default:
			params[n] = b[0]
			n++
		}
	}

	// a stored NUL hides everything after it
	field := params[:n]
	if i := bytes.IndexByte(field, 0); i >= 0 {
		field = field[:i]
	}
	p, l := protocol.ParseFDCParams(field)

	// a real drive reports physical errors against the last valid
	// sector, or FF when there has never been one
	switch {
	case p < 0:
		return s.fdcResponse(protocol.FDCErrParam, 0xFF, 0)
	case p > 79:
		return s.fdcResponse(protocol.FDCErrPSNHigh, 0xFF, 0)
	case l < 1:
		return s.fdcResponse(protocol.FDCErrLSNLow, byte(p), 0)
	case l > 20:
		return s.fdcResponse(protocol.FDCErrLSNHigh, byte(p), 0)
	}

	log.WithFields(log.Fields{
		"cmd": fmt.Sprintf("%c", cmd),
		"p":   p,
		"l":   l,
	}).Debug("fdc command")

	switch cmd {
	case protocol.FDCSetMode:
		s.opr = p != 0
		if s.opr {
			log.Debug("switched to Operation mode")
		}
		return nil
	case protocol.FDCCondition:
		return s.fdcResponse(protocol.FDCErrOK, s.cond1, 0)
	case protocol.FDCFormat, protocol.FDCFormatNV:
		return s.fdcFormat(byte(p))
	case protocol.FDCReadID:
		return s.fdcReadID(p)
	case protocol.FDCReadSector:
		return s.fdcReadSector(p, l)
	case protocol.FDCSearchID:
		return s.fdcSearchID()
	case protocol.FDCWriteID, protocol.FDCWriteIDNV:
		return s.fdcWriteID(p)
	case protocol.FDCWriteSector, protocol.FDCWriteSectorNV:
		return s.fdcWriteSector(p, l)
	}
	return nil
}

// drainFDCLine consumes input through the line terminator so a bad
// command's parameters cannot pose as commands themselves.
func (s *Session) drainFDCLine() error {
	for i := 0; i < protocol.DataMax; i++ {
		var b [1]byte
		if _, err := io.ReadFull(s.port, b[:]); err != nil {
			return err
		}
		if b[0] == protocol.FDCTerm {
			return nil
		}
	}
	return nil
}

// fdcResponse sends the fixed eight byte ASCII status block.
func (s *Session) fdcResponse(code, dat byte, length uint16) error {
	_, err := s.port.Write(protocol.FDCResponse(code, dat, length))
	return err
}

// confirm reads the client's one byte go-ahead between the status
// response and the raw data of a sector transfer, on the same short
// timeout as the DME probe so a stalled client cannot wedge the
// session. Anything but the line terminator, or silence, abandons the
// transfer without a second response.
func (s *Session) confirm() (bool, error) {
	b, ok, err := s.port.Probe()
	if err != nil || !ok {
		return false, err
	}
	return b == protocol.FDCTerm, nil
}

// fdcFormat rewrites every physical sector with the requested logical
// size code.
func (s *Session) fdcFormat(lc byte) error {
	log.WithField("lsc", lc).Info("fdc format")
	rn, err := s.cfg.Image.FormatRecords(lc)
	if err != nil {
		return s.fdcResponse(fdcCode(err), byte(rn), 0)
	}
	return s.fdcResponse(protocol.FDCErrOK, 0, 0)
}

// fdcReadID sends a sector's ID after the client confirms the status
// response.
func (s *Session) fdcReadID(p int) error {
	h, err := s.cfg.Image.Open(p, diskimg.OpenRead)
	if err != nil {
		return s.fdcResponse(fdcCode(err), 0, 0)
	}
	hdr, err := h.ReadHeader()
	h.Close()
	if err != nil {
		return s.fdcResponse(fdcCode(err), byte(p), 0)
	}
	size, err := diskimg.LogicalSize(hdr[0])
	if err != nil {
		return s.fdcResponse(fdcCode(err), byte(p), 0)
	}
	if err := s.fdcResponse(protocol.FDCErrOK, byte(p), uint16(size)); err != nil {
		return err
	}
	ok, err := s.confirm()
	if err != nil || !ok {
		return err
	}
	_, err = s.port.Write(hdr[1:])
	return err
}

// fdcReadSector sends one logical sector after the client confirms
// the status response.
func (s *Session) fdcReadSector(tp, tl int) error {
	h, err := s.cfg.Image.Open(tp, diskimg.OpenRead)
	if err != nil {
		return s.fdcResponse(fdcCode(err), 0, 0)
	}
	hdr, err := h.ReadHeader()
	if err != nil {
		h.Close()
		return s.fdcResponse(fdcCode(err), byte(tp), 0)
	}
	size, err := diskimg.LogicalSize(hdr[0])
	if err != nil {
		h.Close()
		return s.fdcResponse(fdcCode(err), byte(tp), 0)
	}
	if size*tl > s.cfg.Image.Geom.DataLen {
		h.Close()
		return s.fdcResponse(protocol.FDCErrLSNHigh, byte(tp), uint16(size))
	}
	data := make([]byte, size)
	err = h.SeekLogical(tp, size, tl)
	if err == nil {
		err = h.Read(data)
	}
	h.Close()
	if err != nil {
		return s.fdcResponse(fdcCode(err), byte(tp), 0)
	}
	if err := s.fdcResponse(protocol.FDCErrOK, byte(tp), uint16(size)); err != nil {
		return err
	}
	ok, err := s.confirm()
	if err != nil || !ok {
		return err
	}
	_, err = s.port.Write(data)
	return err
}

// fdcSearchID scans the disk for the twelve ID bytes the client sends
// after the go-ahead response.
func (s *Session) fdcSearchID() error {
	h, err := s.cfg.Image.Open(0, diskimg.OpenRead)
	if err != nil {
		return s.fdcResponse(fdcCode(err), 0, 0)
	}
	defer h.Close()
	if err := s.fdcResponse(protocol.FDCErrOK, 0, 0); err != nil {
		return err
	}
	want := make([]byte, s.cfg.Image.Geom.HeaderLen-1)
	if _, err := io.ReadFull(s.port, want); err != nil {
		return err
	}
	rn, size, found, err := h.SearchID(want)
	if err != nil {
		return s.fdcResponse(fdcCode(err), byte(rn), 0)
	}
	if found {
		return s.fdcResponse(protocol.FDCErrOK, byte(rn), uint16(size))
	}
	return s.fdcResponse(protocol.FDCErrIDNotFound, 0xFF, uint16(size))
}

// fdcWriteID overwrites a sector's ID with the twelve bytes the
// client sends after confirming the status response.
func (s *Session) fdcWriteID(tp int) error {
	h, err := s.cfg.Image.Open(tp, diskimg.OpenEdit)
	if err != nil {
		return s.fdcResponse(fdcCode(err), 0, 0)
	}
	defer h.Close()
	lsc, err := h.ReadLSC()
	if err != nil {
		return s.fdcResponse(fdcCode(err), byte(tp), 0)
	}
	size, err := diskimg.LogicalSize(lsc)
	if err != nil {
		return s.fdcResponse(fdcCode(err), byte(tp), 0)
	}
	if err := s.fdcResponse(protocol.FDCErrOK, byte(tp), uint16(size)); err != nil {
		return err
	}
	ok, err := s.confirm()
	if err != nil || !ok {
		return err
	}
	id := make([]byte, s.cfg.Image.Geom.HeaderLen-1)
	if _, err := io.ReadFull(s.port, id); err != nil {
		return err
	}
	if err := h.Write(id); err != nil {
		return s.fdcResponse(fdcCode(err), byte(tp), 0)
	}
	return s.fdcResponse(protocol.FDCErrOK, byte(tp), uint16(size))
}

// fdcWriteSector overwrites one logical sector with the bytes the
// client sends after confirming the status response.
func (s *Session) fdcWriteSector(tp, tl int) error {
	h, err := s.cfg.Image.Open(tp, diskimg.OpenEdit)
	if err != nil {
		return s.fdcResponse(fdcCode(err), 0, 0)
	}
	defer h.Close()
	hdr, err := h.ReadHeader()
	if err != nil {
		return s.fdcResponse(fdcCode(err), byte(tp), 0)
	}
	size, err := diskimg.LogicalSize(hdr[0])
	if err != nil {
		return s.fdcResponse(fdcCode(err), byte(tp), 0)
	}
	if size*tl > s.cfg.Image.Geom.DataLen {
		return s.fdcResponse(protocol.FDCErrLSNHigh, byte(tp), uint16(size))
	}
	if err := h.SeekLogical(tp, size, tl); err != nil {
		return s.fdcResponse(fdcCode(err), byte(tp), 0)
	}
	if err := s.fdcResponse(protocol.FDCErrOK, byte(tp), uint16(size)); err != nil {
		return err
	}
	ok, err := s.confirm()
	if err != nil || !ok {
		return err
	}
	data := make([]byte, size)
	if _, err := io.ReadFull(s.port, data); err != nil {
		return err
	}
	if err := h.Write(data); err != nil {
		return s.fdcResponse(fdcCode(err), byte(tp), 0)
	}
	return s.fdcResponse(protocol.FDCErrOK, byte(tp), uint16(size))
}

// fdcCode maps a disk image failure to its FDC-mode error code.
func fdcCode(err error) byte {
	switch {
	case err == nil:
		return protocol.FDCErrOK
	case errors.Is(err, diskimg.ErrNoDisk):
		return protocol.FDCErrNoDisk
	case errors.Is(err, diskimg.ErrWriteProtected):
		return protocol.FDCErrWriteProtect
	case errors.Is(err, diskimg.ErrSizeCode):
		return protocol.FDCErrLSCHigh
	case errors.Is(err, diskimg.ErrLogicalRange):
		return protocol.FDCErrLSNHigh
	}
	return protocol.FDCErrRead
}
