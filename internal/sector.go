// file: internal/sector.go

package internal

// RecordNumber converts a track and sector index into the linear
// record number used to address a disk image.
func RecordNumber(track, sectorsPerTrack, sector int) int {
	return track*sectorsPerTrack + sector
}
