// file: pkg/diskimg/reader.go

package diskimg

import (
	"bytes"
	"io"
)

// ReadID returns the size code and ID data from one record's header.
func (im *Image) ReadID(record int) (byte, []byte, error) {
	h, err := im.Open(record, OpenRead)
	if err != nil {
		return 0, nil, err
	}
	defer h.Close()
	hdr, err := h.ReadHeader()
	if err != nil {
		return 0, nil, err
	}
	return hdr[0], hdr[1:], nil
}

// ReadLogical reads logical sector l (counted from 1) of a record. The
// record's logical size is returned even when l lands past the end of
// the record, since the error report carries it.
func (im *Image) ReadLogical(record, l int) (int, []byte, error) {
	h, err := im.Open(record, OpenRead)
	if err != nil {
		return 0, nil, err
	}
	defer h.Close()
	hdr, err := h.ReadHeader()
	if err != nil {
		return 0, nil, err
	}
	size, err := LogicalSize(hdr[0])
	if err != nil {
		return 0, nil, err
	}
	if size*l > h.geom.DataLen {
		return size, nil, ErrLogicalRange
	}
	if err := h.SeekLogical(record, size, l); err != nil {
		return 0, nil, err
	}
	data := make([]byte, size)
	if err := h.Read(data); err != nil {
		return 0, nil, err
	}
	return size, data, nil
}

// SearchID scans the whole disk for a record whose ID matches want.
func (im *Image) SearchID(want []byte) (int, int, bool, error) {
	h, err := im.Open(0, OpenRead)
	if err != nil {
		return 0, 0, false, err
	}
	defer h.Close()
	return h.SearchID(want)
}

// SearchID scans forward from the handle's position for a record whose
// ID matches want, returning its record number and logical size. On a
// miss the returned size is the logical size of the last record
// scanned. A failure reports the record it happened on.
func (h *Handle) SearchID(want []byte) (int, int, bool, error) {
	rec := make([]byte, h.geom.RecordLen())
	size := 0
	for rn := 0; rn < h.geom.Records(); rn++ {
		if err := h.Read(rec); err != nil {
			return rn, 0, false, err
		}
		sz, err := LogicalSize(rec[0])
		if err != nil {
			return rn, 0, false, err
		}
		size = sz
		if bytes.Equal(rec[1:h.geom.HeaderLen], want) {
			return rn, size, true, nil
		}
	}
	return 0, size, false, nil
}

// ReadHeader reads one record header at the current position.
func (h *Handle) ReadHeader() ([]byte, error) {
	hdr := make([]byte, h.geom.HeaderLen)
	if _, err := io.ReadFull(h.f, hdr); err != nil {
		return nil, ErrRead
	}
	return hdr, nil
}

// ReadLSC reads just the logical size code byte of a record header.
func (h *Handle) ReadLSC() (byte, error) {
	var b [1]byte
	if _, err := io.ReadFull(h.f, b[:]); err != nil {
		return 0, ErrRead
	}
	return b[0], nil
}

// Read fills buf from the current position.
func (h *Handle) Read(buf []byte) error {
	if _, err := io.ReadFull(h.f, buf); err != nil {
		return ErrRead
	}
	return nil
}
