// file: pkg/diskimg/writer.go

package diskimg

// SMT is the drive firmware's space management table, its sector
// allocation bitmap. A fresh filesystem has one flag byte set in the
// first record.
const (
	smtOffset = 1240
	smtFlag   = 0x80
)

// Write sends buf to the image at the current position.
func (h *Handle) Write(buf []byte) error {
	n, err := h.f.Write(buf)
	if err != nil || n != len(buf) {
		return ErrWrite
	}
	return nil
}

// FormatRecords rewrites every record with size code lc and zeroed ID
// and data, the FDC-mode format. A write failure reports the record it
// happened on.
func (im *Image) FormatRecords(lc byte) (int, error) {
	if _, err := LogicalSize(lc); err != nil {
		return 0, err
	}
	h, err := im.Open(0, OpenWrite)
	if err != nil {
		return 0, err
	}
	defer h.Close()
	rec := make([]byte, im.Geom.RecordLen())
	rec[0] = lc
	for rn := 0; rn < im.Geom.Records(); rn++ {
		if err := h.Write(rec); err != nil {
			return rn, err
		}
	}
	return 0, nil
}

// FormatFilesystem writes a fresh Operation-mode filesystem. Real TPDD1
// firmware leaves size code 1 on unused sectors and 0 on any sector
// holding data, which after a fresh format is only the sector with the
// SMT flag byte. TPDD2 marks every sector's metadata with 0x16 and
// flags the first two, which hold the directory and SMT.
func (im *Image) FormatFilesystem() error {
	h, err := im.Open(0, OpenWrite)
	if err != nil {
		return err
	}
	defer h.Close()
	rec := make([]byte, im.Geom.RecordLen())
	for rn := 0; rn < im.Geom.Records(); rn++ {
		clear(rec)
		switch im.Geom.Model {
		case 1:
			if rn == 0 {
				rec[im.Geom.HeaderLen+smtOffset] = smtFlag
			} else {
				rec[0] = 1
			}
		default:
			rec[0] = 0x16
			if rn < 2 {
				rec[1] = 0xFF
				rec[im.Geom.HeaderLen+smtOffset] = smtFlag
			}
		}
		if err := h.Write(rec); err != nil {
			return err
		}
	}
	return nil
}
