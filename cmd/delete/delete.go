// file: cmd/delete/delete.go

package delete

import (
	"fmt"

	"github.com/gorlik/dlplus/pkg/diskimg"
)

// DeleteOptions configures the record clearing
type DeleteOptions struct {
	All      bool // Clear every record on the disk
	SizeCode int  // Size code left on cleared model 1 records
	Quiet    bool // Suppress non-error output
}

// DefaultDeleteOptions returns default options for Delete
func DefaultDeleteOptions() *DeleteOptions {
	return &DeleteOptions{
		All:      false,
		SizeCode: 0,
		Quiet:    false,
	}
}

// Delete clears one record of a disk image, or the whole disk. Model 1
// records come back blank with the named size code, model 2 records
// come back as freshly formatted metadata.
func Delete(diskPath string, record int, opts *DeleteOptions) error {
	// Validate options
	if opts == nil {
		opts = DefaultDeleteOptions()
	}

	geom, err := diskimg.DetectGeometry(diskPath, diskimg.Geometry{})
	if err != nil {
		return err
	}
	if geom.Records() == 0 {
		return diskimg.ErrGeometry
	}
	if geom.Model == 1 {
		if _, err := diskimg.LogicalSize(byte(opts.SizeCode)); err != nil {
			return err
		}
	}

	im := diskimg.NewImage(diskPath, geom)

	// Clear the whole disk
	if opts.All {
		if geom.Model == 1 {
			if _, err := im.FormatRecords(byte(opts.SizeCode)); err != nil {
				return fmt.Errorf("failed to clear image: %w", err)
			}
		} else if err := im.FormatFilesystem(); err != nil {
			return fmt.Errorf("failed to clear image: %w", err)
		}
		if !opts.Quiet {
			fmt.Printf("Cleared all %d records of %s\n", geom.Records(), diskPath)
		}
		return nil
	}

	// Clear one record
	if record < 0 || record >= geom.Records() {
		return fmt.Errorf("record %d is out of range, the disk has %d", record, geom.Records())
	}
	h, err := im.Open(record, diskimg.OpenEdit)
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}
	defer h.Close()

	rec := make([]byte, geom.RecordLen())
	if geom.Model == 1 {
		rec[0] = byte(opts.SizeCode)
	} else {
		rec[0] = 0x16
	}
	if err := h.Write(rec); err != nil {
		return fmt.Errorf("failed to clear record %d: %w", record, err)
	}
	if !opts.Quiet {
		fmt.Printf("Cleared record %d of %s\n", record, diskPath)
	}

	return nil
}
