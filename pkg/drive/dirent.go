// file: pkg/drive/dirent.go

package drive

import (
	"bytes"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/gorlik/dlplus/pkg/dirlist"
	"github.com/gorlik/dlplus/pkg/protocol"
)

// Directory request payload: 24 name bytes, attribute, action. The
// action decides whether the rest means anything; TS-DOS sends
// get-first and get-next with junk left in the name field.
func (s *Session) reqDirent(payload []byte) error {
	if len(payload) < 26 {
		return s.retStd(protocol.StatusParam)
	}
	switch payload[25] {
	case protocol.DirentSetName:
		return s.setName(payload)
	case protocol.DirentGetFirst:
		return s.getFirst()
	case protocol.DirentGetNext:
		return s.retDirent(s.list.Next())
	case protocol.DirentGetPrev:
		return s.retDirent(s.list.Prev())
	case protocol.DirentClose:
		return nil
	}
	return nil
}

// setName names the entry later requests act on. The listing rebuilds
// first: clients open files without ever listing, and other processes
// change the share at any time. A name with no entry still succeeds,
// since it may be about to be created; the response is blank so the
// client knows nothing exists yet.
func (s *Session) setName(payload []byte) error {
	ok, err := s.rebuildList()
	if !ok || err != nil {
		return err
	}

	name := clientName(payload[:protocol.FilenameLen])
	attr := payload[24]

	if e := s.list.Find(name, attr); e != nil {
		s.cur = e
		log.WithFields(log.Fields{"file": e.LocalName, "size": e.Size}).Debug("exists")
		return s.retDirent(e)
	}

	if s.cfg.MagicFiles && isMagicName(name) {
		if e, found := s.findMagic(name, attr); found {
			s.scratch = e
			s.cur = &s.scratch
			log.WithFields(log.Fields{"name": name, "file": e.LocalName}).Debug("loader file")
			return s.retDirent(s.cur)
		}
	}

	s.scratch = dirlist.FileEntry{
		LocalName:  s.tr.Collapse(name),
		ClientName: name,
		Attr:       attr,
		IsDir:      s.tr.IsDirName(name),
	}
	s.cur = &s.scratch
	log.WithField("file", s.scratch.LocalName).Debug("new name")
	return s.retDirent(nil)
}

// getFirst starts an enumeration, rebuilding the listing. Handshake
// probes only last until the listing they enabled; see reqFDC.
func (s *Session) getFirst() error {
	ok, err := s.rebuildList()
	if !ok || err != nil {
		return err
	}
	err = s.retDirent(s.list.First())
	s.probes = 0
	return err
}

// rebuildList re-reads the host directory into the listing. A failure
// answers the client once and aborts the request.
func (s *Session) rebuildList() (bool, error) {
	if s.cfg.Model == 2 {
		s.cdSharePath()
	}
	err := dirlist.Read(&s.list, ".", dirlist.ReadOptions{
		Translator:  &s.tr,
		DefaultAttr: s.cfg.DefaultAttr,
		IncludeDirs: s.probes > 1,
		AddParent:   s.depth > 0,
	})
	if err == nil {
		s.cur = nil
		return true, nil
	}
	log.WithError(err).Error("listing share directory failed")
	status := protocol.StatusNoFile
	if errors.Is(err, dirlist.ErrNoShare) {
		status = protocol.StatusNoDisk
	}
	return false, s.retStd(status)
}

// retDirent renders one directory entry, or the no-more-files blank
// when e is nil. The free-sector count rides on every response; some
// clients divide by it for their free-space display.
func (s *Session) retDirent(e *dirlist.FileEntry) error {
	p := make([]byte, 28)
	if e != nil {
		n := copy(p, e.ClientName)
		for i := n; i < protocol.FilenameLen; i++ {
			p[i] = ' '
		}
		p[24] = e.Attr
		p[25] = byte(e.Size >> 8)
		p[26] = byte(e.Size)
	}
	if s.cfg.Model == 2 {
		p[27] = 160
	} else {
		p[27] = 80
	}
	return s.respond(protocol.RetDirent, p)
}

// clientName extracts the search name from the fixed-width field:
// cut at the first NUL, trailing spaces stripped.
func clientName(field []byte) string {
	if i := bytes.IndexByte(field, 0); i >= 0 {
		field = field[:i]
	}
	return strings.TrimRight(string(field), " ")
}
