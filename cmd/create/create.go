// file: cmd/create/create.go

package create

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gorlik/dlplus/pkg/diskimg"
)

// CreateOptions configures the image creation
type CreateOptions struct {
	Model    int  // Drive model when the filename does not pick one
	FDC      bool // FDC format instead of an Operation-mode filesystem
	SizeCode int  // Logical size code for FDC formats
	Force    bool // Overwrite existing file
	Quiet    bool // Suppress non-error output
}

// DefaultCreateOptions returns default options for Create
func DefaultCreateOptions() *CreateOptions {
	return &CreateOptions{
		Model:    1,
		FDC:      false,
		SizeCode: 0,
		Force:    false,
		Quiet:    false,
	}
}

// Create creates a fresh formatted disk image
func Create(outPath string, opts *CreateOptions) error {
	// Validate options
	if opts == nil {
		opts = DefaultCreateOptions()
	}

	outPath = filepath.Clean(outPath)

	// Check if file exists
	if _, err := os.Stat(outPath); err == nil {
		if !opts.Force {
			return fmt.Errorf("file already exists: %s (use force to overwrite)", outPath)
		}
		// A stale image would decide the geometry by its old size
		if err := os.Remove(outPath); err != nil {
			return fmt.Errorf("failed to remove existing image: %w", err)
		}
	}

	// Pick the geometry from the name, then from the model option
	fallback := diskimg.TPDD1
	if opts.Model == 2 {
		fallback = diskimg.TPDD2
	}
	geom, err := diskimg.DetectGeometry(outPath, fallback)
	if err != nil {
		return err
	}
	if opts.FDC && geom.Model != 1 {
		return fmt.Errorf("FDC formats apply to model 1 images only")
	}

	// Format the image
	im := diskimg.NewImage(outPath, geom)
	if opts.FDC {
		if _, err := im.FormatRecords(byte(opts.SizeCode)); err != nil {
			os.Remove(outPath)
			return fmt.Errorf("failed to format image: %w", err)
		}
	} else if err := im.FormatFilesystem(); err != nil {
		os.Remove(outPath)
		return fmt.Errorf("failed to format image: %w", err)
	}

	if !opts.Quiet {
		kind := "filesystem"
		if opts.FDC {
			size, _ := diskimg.LogicalSize(byte(opts.SizeCode))
			kind = fmt.Sprintf("FDC format, %d byte logical sectors", size)
		}
		fmt.Printf("Created TPDD%d image %s (%s, %d bytes)\n",
			geom.Model, outPath, kind, geom.ImageLen())
	}

	return nil
}
