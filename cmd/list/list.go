// file: cmd/list/list.go

package list

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/gorlik/dlplus/pkg/diskimg"
)

// SectorEntry represents one physical record in the listing
type SectorEntry struct {
	Record   int    `json:"record"`
	Track    int    `json:"track"`
	Sector   int    `json:"sector"`
	SizeCode byte   `json:"size_code"`
	Size     int    `json:"size,omitempty"`
	ID       string `json:"id,omitempty"`
	Used     bool   `json:"used"`
}

// ListOptions configures the sector listing
type ListOptions struct {
	JSON  bool // Output in JSON format
	All   bool // Include untouched records
	Start int  // First record to list
	Count int  // Records to list, 0 for the rest of the disk
	Quiet bool // Suppress non-error output
}

// DefaultListOptions returns default options for List
func DefaultListOptions() *ListOptions {
	return &ListOptions{
		JSON:  false,
		All:   false,
		Start: 0,
		Count: 0,
		Quiet: false,
	}
}

// List displays the records of a disk image
func List(diskPath string, opts *ListOptions) error {
	// Validate options
	if opts == nil {
		opts = DefaultListOptions()
	}

	geom, err := diskimg.DetectGeometry(diskPath, diskimg.Geometry{})
	if err != nil {
		return err
	}
	if geom.Records() == 0 {
		return diskimg.ErrGeometry
	}

	// Clamp the window to the disk
	start, count := opts.Start, opts.Count
	if start < 0 || start >= geom.Records() {
		return fmt.Errorf("record %d is out of range, the disk has %d", start, geom.Records())
	}
	if count <= 0 || start+count > geom.Records() {
		count = geom.Records() - start
	}

	im := diskimg.NewImage(diskPath, geom)
	h, err := im.Open(start, diskimg.OpenRead)
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}
	defer h.Close()

	// Collect entries, skipping untouched records unless asked
	var entries []SectorEntry
	rec := make([]byte, geom.RecordLen())
	for rn := start; rn < start+count; rn++ {
		if err := h.Read(rec); err != nil {
			return fmt.Errorf("failed to read record %d: %w", rn, err)
		}
		entry := SectorEntry{
			Record:   rn,
			Track:    rn / geom.SectorsPerTrack,
			Sector:   rn % geom.SectorsPerTrack,
			SizeCode: rec[0],
			ID:       fmt.Sprintf("%X", rec[1:geom.HeaderLen]),
			Used:     used(rec),
		}
		if geom.Model == 1 {
			if size, err := diskimg.LogicalSize(rec[0]); err == nil {
				entry.Size = size
			}
		}
		if !entry.Used && !opts.All {
			continue
		}
		entries = append(entries, entry)
	}

	// Output listing
	if opts.JSON {
		return outputJSON(entries)
	}
	return outputText(entries, opts)
}

// used reports whether a record carries anything beyond a fresh
// format: a nonzero ID or any nonzero data byte.
func used(rec []byte) bool {
	for _, b := range rec[1:] {
		if b != 0 {
			return true
		}
	}
	return false
}

// outputJSON writes the listing in JSON format
func outputJSON(entries []SectorEntry) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(entries)
}

// outputText writes the listing as a table
func outputText(entries []SectorEntry, opts *ListOptions) error {
	if len(entries) == 0 {
		if !opts.Quiet {
			fmt.Println("No used records (list with all to see the blank format)")
		}
		return nil
	}

	fmt.Println("RECORD  TRACK  SECTOR  CODE  SIZE  ID")
	for _, e := range entries {
		size := "-"
		if e.Size > 0 {
			size = fmt.Sprintf("%d", e.Size)
		}
		fmt.Printf("%6d  %5d  %6d    %02X  %4s  %s\n",
			e.Record, e.Track, e.Sector, e.SizeCode, size, e.ID)
	}

	return nil
}
