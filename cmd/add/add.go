// file: cmd/add/add.go

package add

import (
	"fmt"
	"io"
	"os"

	"github.com/gorlik/dlplus/pkg/diskimg"
)

// AddOptions configures the sector write
type AddOptions struct {
	Record  int    // Physical record to write
	Logical int    // Logical sector counted from 1, 0 writes from the start of data
	Input   string // Input file, empty or - for stdin
	Quiet   bool   // Suppress non-error output
}

// DefaultAddOptions returns default options for Add
func DefaultAddOptions() *AddOptions {
	return &AddOptions{
		Record:  0,
		Logical: 0,
		Input:   "",
		Quiet:   false,
	}
}

// Add writes data into one record of a disk image
func Add(diskPath string, opts *AddOptions) error {
	// Validate options
	if opts == nil {
		opts = DefaultAddOptions()
	}

	// Read the input
	var data []byte
	var err error
	if opts.Input == "" || opts.Input == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(opts.Input)
	}
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
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
	h, err := im.Open(opts.Record, diskimg.OpenEdit)
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}
	defer h.Close()

	// Position and bound the write
	if opts.Logical > 0 {
		if geom.Model != 1 {
			return fmt.Errorf("logical sectors apply to model 1 images only")
		}
		lsc, err := h.ReadLSC()
		if err != nil {
			return fmt.Errorf("failed to read record %d: %w", opts.Record, err)
		}
		size, err := diskimg.LogicalSize(lsc)
		if err != nil {
			return fmt.Errorf("record %d: %w", opts.Record, err)
		}
		if size*opts.Logical > geom.DataLen {
			return fmt.Errorf("logical sector %d is past the end of the record", opts.Logical)
		}
		if len(data) > size {
			return fmt.Errorf("input is %d bytes, the logical sector holds %d", len(data), size)
		}
		if err := h.SeekLogical(opts.Record, size, opts.Logical); err != nil {
			return fmt.Errorf("failed to seek: %w", err)
		}
	} else {
		if len(data) > geom.DataLen {
			return fmt.Errorf("input is %d bytes, the record holds %d", len(data), geom.DataLen)
		}
		if _, err := h.ReadHeader(); err != nil {
			return fmt.Errorf("failed to read record %d: %w", opts.Record, err)
		}
	}

	if err := h.Write(data); err != nil {
		return fmt.Errorf("failed to write record %d: %w", opts.Record, err)
	}
	if !opts.Quiet {
		fmt.Printf("Wrote %d bytes to record %d of %s\n", len(data), opts.Record, diskPath)
	}

	return nil
}
