// file: pkg/drive/file.go

package drive

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/gorlik/dlplus/pkg/dirlist"
	"github.com/gorlik/dlplus/pkg/diskimg"
	"github.com/gorlik/dlplus/pkg/protocol"
)

// Open request: one payload byte selects write, append or read. With
// the directory extension, opening a directory entry for read moves
// into it instead of producing a handle.
func (s *Session) reqOpen(payload []byte) error {
	if len(payload) < 1 {
		return s.retStd(protocol.StatusParam)
	}
	switch payload[0] {
	case protocol.OpenWrite:
		return s.openWrite()
	case protocol.OpenAppend:
		return s.openAppend()
	case protocol.OpenRead:
		return s.openRead()
	}
	return s.retStd(protocol.StatusParam)
}

func (s *Session) openWrite() error {
	s.closeFile()
	if s.cur == nil {
		return s.retStd(protocol.StatusFmtMismatch)
	}
	if s.cur.IsDir {
		if err := os.Mkdir(s.cur.LocalName, 0777); err != nil {
			return s.retStd(protocol.StatusFmtMismatch)
		}
		log.WithField("dir", s.cur.LocalName).Info("created directory")
		return s.retStd(protocol.StatusOK)
	}
	f, err := os.OpenFile(s.cur.LocalName, os.O_CREATE|os.O_TRUNC|os.O_WRONLY|os.O_EXCL, 0666)
	if err != nil {
		return s.retStd(protocol.StatusFmtMismatch)
	}
	s.file = f
	s.fmode = protocol.OpenWrite
	dirlist.SetAttr(f, s.cur.Attr)
	log.WithFields(log.Fields{
		"file": s.cur.LocalName,
		"attr": fmt.Sprintf("%c", s.cur.Attr),
	}).Info("open for write")
	return s.retStd(protocol.StatusOK)
}

func (s *Session) openAppend() error {
	s.closeFile()
	if s.cur == nil {
		return s.retStd(protocol.StatusFmtMismatch)
	}
	f, err := os.OpenFile(s.cur.LocalName, os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return s.retStd(protocol.StatusFmtMismatch)
	}
	s.file = f
	s.fmode = protocol.OpenAppend
	dirlist.SetAttr(f, s.cur.Attr)
	log.WithField("file", s.cur.LocalName).Info("open for append")
	return s.retStd(protocol.StatusOK)
}

func (s *Session) openRead() error {
	s.closeFile()
	if s.cur == nil {
		return s.retStd(protocol.StatusNoFile)
	}
	if s.cur.IsDir {
		var err error
		if s.cur.LocalName == ".." {
			// at the share root the parent entry quietly succeeds
			if s.depth > 0 {
				if err = os.Chdir(".."); err == nil {
					s.depth--
				}
			}
		} else {
			if err = os.Chdir(s.cur.LocalName); err == nil {
				s.depth++
			}
		}
		s.updateDirLabel()
		if err != nil {
			return s.retStd(protocol.StatusFmtMismatch)
		}
		return s.retStd(protocol.StatusOK)
	}
	f, err := os.Open(s.cur.LocalName)
	if err != nil {
		return s.retStd(protocol.StatusNoFile)
	}
	s.file = f
	s.fmode = protocol.OpenRead
	s.cur.Attr = dirlist.RefreshAttr(f, s.cfg.DefaultAttr)
	log.WithFields(log.Fields{
		"file": s.cur.LocalName,
		"attr": fmt.Sprintf("%c", s.cur.Attr),
	}).Info("open for read")
	return s.retStd(protocol.StatusOK)
}

// reqRead hands out the next chunk of the open file. A short chunk
// tells the client it has everything.
func (s *Session) reqRead() error {
	if s.file == nil {
		return s.retStd(protocol.StatusNoFilename)
	}
	if s.fmode != protocol.OpenRead {
		return s.retStd(protocol.StatusFmtMismatch)
	}
	buf := make([]byte, protocol.DataMax)
	n, err := s.file.Read(buf)
	if err != nil && err != io.EOF {
		n = 0
	}
	return s.respond(protocol.RetRead, buf[:n])
}

func (s *Session) reqWrite(payload []byte) error {
	if s.file == nil {
		return s.retStd(protocol.StatusNoFilename)
	}
	if s.fmode != protocol.OpenWrite && s.fmode != protocol.OpenAppend {
		return s.retStd(protocol.StatusFmtMismatch)
	}
	if _, err := s.file.Write(payload); err != nil {
		return s.retStd(protocol.StatusSectorNum)
	}
	return s.retStd(protocol.StatusOK)
}

// reqDelete removes the named file, or an empty directory. Host
// failures map to the nearest drive error instead of leaking out.
func (s *Session) reqDelete() error {
	if s.cur == nil {
		return s.retStd(protocol.StatusNoFile)
	}
	if err := os.Remove(s.cur.LocalName); err != nil {
		log.WithError(err).WithField("file", s.cur.LocalName).Warn("delete failed")
		return s.retStd(removeCode(err))
	}
	log.WithField("file", s.cur.LocalName).Info("deleted")
	return s.retStd(protocol.StatusOK)
}

// removeCode maps a host delete failure to a drive status.
func removeCode(err error) byte {
	switch {
	case os.IsNotExist(err):
		return protocol.StatusNoFile
	case os.IsPermission(err):
		return protocol.StatusWriteProtect
	}
	return protocol.StatusSectorNum
}

// reqRename moves the named entry to a new client name, which passes
// through the same collapse as file creation. Only the banked models
// carry this request; a TPDD1 stays silent like a real one.
func (s *Session) reqRename(payload []byte) error {
	if s.cfg.Model != 2 {
		return nil
	}
	if len(payload) < protocol.FilenameLen {
		return s.retStd(protocol.StatusParam)
	}
	if s.cur == nil {
		return s.retStd(protocol.StatusNoFile)
	}
	target := s.tr.Collapse(clientName(payload[:protocol.FilenameLen]))
	if err := os.Rename(s.cur.LocalName, target); err != nil {
		log.WithError(err).Warn("rename failed")
		return s.retStd(protocol.StatusSectorNum)
	}
	log.WithFields(log.Fields{"from": s.cur.LocalName, "to": target}).Info("renamed")
	return s.retStd(protocol.StatusOK)
}

func (s *Session) reqClose() error {
	s.closeFile()
	return s.retStd(protocol.StatusOK)
}

// reqStatus always reports ready. Problems surface on the operations
// themselves.
func (s *Session) reqStatus() error {
	return s.retStd(protocol.StatusOK)
}

// reqCondition reports the TPDD2 condition bits; only the banked
// models answer it.
func (s *Session) reqCondition() error {
	if s.cfg.Model != 2 {
		return nil
	}
	return s.respond(protocol.RetCondition, []byte{s.cond2})
}

// reqFormat writes a fresh filesystem image. A failure mid-write
// reports the format-interrupted code, like media pulled from a real
// drive.
func (s *Session) reqFormat() error {
	log.Info("formatting filesystem image")
	err := s.cfg.Image.FormatFilesystem()
	switch {
	case err == nil:
		return s.retStd(protocol.StatusOK)
	case errors.Is(err, diskimg.ErrNoDisk):
		return s.retStd(protocol.StatusNoDisk)
	case errors.Is(err, diskimg.ErrWriteProtected):
		return s.retStd(protocol.StatusWriteProtect)
	}
	return s.retStd(protocol.StatusFmtInterrupt)
}
