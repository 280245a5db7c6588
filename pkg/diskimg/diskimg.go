// file: pkg/diskimg/diskimg.go

package diskimg

import (
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// Geometry describes the raw image layout of one drive model.
type Geometry struct {
	Model           int
	Tracks          int
	SectorsPerTrack int
	HeaderLen       int // size code + ID for TPDD1, sector metadata for TPDD2
	DataLen         int
}

var (
	TPDD1 = Geometry{Model: 1, Tracks: 40, SectorsPerTrack: 2, HeaderLen: 13, DataLen: 1280}
	TPDD2 = Geometry{Model: 2, Tracks: 80, SectorsPerTrack: 2, HeaderLen: 4, DataLen: 1280}
)

// Records returns the number of physical records in an image.
func (g Geometry) Records() int { return g.Tracks * g.SectorsPerTrack }

// RecordLen returns the stored length of one record, header included.
func (g Geometry) RecordLen() int { return g.HeaderLen + g.DataLen }

// ImageLen returns the byte size of a complete disk image.
func (g Geometry) ImageLen() int { return g.Records() * g.RecordLen() }

// Image is a raw sector dump of one disk. The file is opened per
// request and never held between requests, so the image can be swapped
// or inspected while the server runs.
type Image struct {
	Path string
	Geom Geometry
}

func NewImage(path string, geom Geometry) *Image {
	return &Image{Path: path, Geom: geom}
}

// OpenMode selects the access pattern for one request.
type OpenMode int

const (
	OpenRead  OpenMode = iota // existing image, header and data reads
	OpenWrite                 // sequential rewrite, creates a missing image
	OpenEdit                  // read-modify-write on an existing image
)

// Handle is an open image positioned at the start of one record.
type Handle struct {
	f    *os.File
	geom Geometry
}

// Open opens the image for one request and seeks to the named record.
// A missing image reads as no disk in the drive, and an image the
// process cannot write to reports write protection before any data
// moves.
func (im *Image) Open(record int, mode OpenMode) (*Handle, error) {
	if im.Path == "" {
		return nil, ErrNoDisk
	}
	flags := os.O_RDONLY
	switch mode {
	case OpenEdit:
		flags = os.O_RDWR
		if _, err := os.Stat(im.Path); err != nil {
			return nil, ErrNoDisk
		}
		if unix.Access(im.Path, unix.W_OK) != nil {
			return nil, ErrWriteProtected
		}
	case OpenWrite:
		flags = os.O_WRONLY
		if _, err := os.Stat(im.Path); err != nil {
			flags |= os.O_CREATE | os.O_EXCL
		} else if unix.Access(im.Path, unix.W_OK) != nil {
			return nil, ErrWriteProtected
		}
	default:
		if _, err := os.Stat(im.Path); err != nil {
			return nil, ErrNoDisk
		}
	}
	f, err := os.OpenFile(im.Path, flags, 0666)
	if err != nil {
		return nil, ErrRead
	}
	if _, err := f.Seek(int64(im.Geom.RecordOffset(record)), io.SeekStart); err != nil {
		f.Close()
		return nil, ErrRead
	}
	return &Handle{f: f, geom: im.Geom}, nil
}

// SeekLogical positions the handle at logical sector l (counted from 1)
// of a record, given the record's logical sector size.
func (h *Handle) SeekLogical(record, size, l int) error {
	off := int64(h.geom.LogicalOffset(record, size, l))
	if _, err := h.f.Seek(off, io.SeekStart); err != nil {
		return ErrRead
	}
	return nil
}

func (h *Handle) Close() error { return h.f.Close() }
