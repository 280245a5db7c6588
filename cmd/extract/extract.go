// file: cmd/extract/extract.go

package extract

import (
	"fmt"
	"os"

	"github.com/gorlik/dlplus/pkg/diskimg"
)

// ExtractOptions configures the sector extraction
type ExtractOptions struct {
	Record  int    // Physical record to read
	Logical int    // Logical sector counted from 1, 0 for the whole data area
	ID      bool   // Extract the ID field instead of data
	Output  string // Output file, empty or - for stdout
	Quiet   bool   // Suppress non-error output
}

// DefaultExtractOptions returns default options for Extract
func DefaultExtractOptions() *ExtractOptions {
	return &ExtractOptions{
		Record:  0,
		Logical: 0,
		ID:      false,
		Output:  "",
		Quiet:   false,
	}
}

// Extract copies a record's data or ID out of a disk image
func Extract(diskPath string, opts *ExtractOptions) error {
	// Validate options
	if opts == nil {
		opts = DefaultExtractOptions()
	}

	geom, err := diskimg.DetectGeometry(diskPath, diskimg.Geometry{})
	if err != nil {
		return err
	}
	if geom.Records() == 0 {
		return diskimg.ErrGeometry
	}
	if opts.Record < 0 || opts.Record >= geom.Records() {
		return fmt.Errorf("record %d is out of range, the disk has %d", opts.Record, geom.Records())
	}

	im := diskimg.NewImage(diskPath, geom)

	// Read the requested field
	var data []byte
	switch {
	case opts.ID:
		_, id, err := im.ReadID(opts.Record)
		if err != nil {
			return fmt.Errorf("failed to read ID of record %d: %w", opts.Record, err)
		}
		data = id
	case opts.Logical > 0:
		_, sector, err := im.ReadLogical(opts.Record, opts.Logical)
		if err != nil {
			return fmt.Errorf("failed to read logical sector %d of record %d: %w",
				opts.Logical, opts.Record, err)
		}
		data = sector
	default:
		h, err := im.Open(opts.Record, diskimg.OpenRead)
		if err != nil {
			return fmt.Errorf("failed to open image: %w", err)
		}
		defer h.Close()
		if _, err := h.ReadHeader(); err != nil {
			return fmt.Errorf("failed to read record %d: %w", opts.Record, err)
		}
		data = make([]byte, geom.DataLen)
		if err := h.Read(data); err != nil {
			return fmt.Errorf("failed to read record %d: %w", opts.Record, err)
		}
	}

	// Write the output
	if opts.Output == "" || opts.Output == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(opts.Output, data, 0666); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if !opts.Quiet {
		fmt.Printf("Wrote %d bytes to %s\n", len(data), opts.Output)
	}

	return nil
}
