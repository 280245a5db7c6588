// file: pkg/diskimg/track.go

package diskimg

import "github.com/gorlik/dlplus/internal"

// Logical sector sizes by size code. The first header byte of a TPDD1
// record holds the code.
var logicalSizes = [7]int{64, 80, 128, 256, 512, 1024, 1280}

// LogicalSize returns the logical sector size for a size code.
func LogicalSize(code byte) (int, error) {
	if int(code) >= len(logicalSizes) {
		return 0, ErrSizeCode
	}
	return logicalSizes[code], nil
}

// RecordNumber converts track and sector indexes to the linear record
// number used for image addressing.
func (g Geometry) RecordNumber(track, sector int) int {
	return internal.RecordNumber(track, g.SectorsPerTrack, sector)
}

// RecordOffset returns the image offset of a record's header.
func (g Geometry) RecordOffset(record int) int {
	return record * g.RecordLen()
}

// LogicalOffset returns the image offset of logical sector l (counted
// from 1) within a record, given the record's logical sector size.
func (g Geometry) LogicalOffset(record, size, l int) int {
	return g.RecordOffset(record) + g.HeaderLen + (l-1)*size
}
