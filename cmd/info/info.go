// file: cmd/info/info.go

package info

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/gorlik/dlplus/pkg/diskimg"
)

// ImageInfo represents disk image information in a structured format
type ImageInfo struct {
	Path      string         `json:"path"`
	Model     int            `json:"model"`
	Tracks    int            `json:"tracks"`
	Sectors   int            `json:"sectors_per_track"`
	RecordLen int            `json:"record_length"`
	Size      int64          `json:"size"`
	Modified  time.Time      `json:"modified_time,omitempty"`
	SizeCodes map[string]int `json:"logical_sizes,omitempty"`
	Flagged   int            `json:"flagged_sectors,omitempty"`
	Issues    []string       `json:"issues,omitempty"`
}

// InfoOptions configures the information display
type InfoOptions struct {
	JSON  bool // Output in JSON format
	Quiet bool // Report issues only
}

// DefaultInfoOptions returns default options for Info
func DefaultInfoOptions() *InfoOptions {
	return &InfoOptions{
		JSON:  false,
		Quiet: false,
	}
}

// Info reports the geometry and health of a disk image
func Info(diskPath string, opts *InfoOptions) error {
	// Validate options
	if opts == nil {
		opts = DefaultInfoOptions()
	}

	stat, err := os.Stat(diskPath)
	if err != nil {
		return fmt.Errorf("disk image does not exist: %w", err)
	}
	geom, err := diskimg.DetectGeometry(diskPath, diskimg.Geometry{})
	if err != nil {
		return err
	}
	if geom.Records() == 0 {
		return diskimg.ErrGeometry
	}

	info := &ImageInfo{
		Path:      diskPath,
		Model:     geom.Model,
		Tracks:    geom.Tracks,
		Sectors:   geom.SectorsPerTrack,
		RecordLen: geom.RecordLen(),
		Size:      stat.Size(),
		Modified:  stat.ModTime(),
		SizeCodes: make(map[string]int),
	}

	// Sweep the records for size codes and header damage
	im := diskimg.NewImage(diskPath, geom)
	h, err := im.Open(0, diskimg.OpenRead)
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}
	defer h.Close()

	rec := make([]byte, geom.RecordLen())
	for rn := 0; rn < geom.Records(); rn++ {
		if err := h.Read(rec); err != nil {
			info.Issues = append(info.Issues, fmt.Sprintf("record %d: %v", rn, err))
			break
		}
		if geom.Model == 2 {
			if rec[0] != 0x16 {
				info.Issues = append(info.Issues, fmt.Sprintf("record %d: metadata %02X", rn, rec[0]))
			}
			if rec[1] != 0 {
				info.Flagged++
			}
			continue
		}
		size, err := diskimg.LogicalSize(rec[0])
		if err != nil {
			info.Issues = append(info.Issues, fmt.Sprintf("record %d: size code %02X", rn, rec[0]))
			continue
		}
		info.SizeCodes[strconv.Itoa(size)]++
	}

	// Output information
	if opts.JSON {
		return outputJSON(info)
	}
	return outputText(info, opts)
}

// outputJSON writes image information in JSON format
func outputJSON(info *ImageInfo) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(info)
}

// outputText writes image information in human-readable format
func outputText(info *ImageInfo, opts *InfoOptions) error {
	if opts.Quiet && len(info.Issues) == 0 {
		return nil
	}

	fmt.Printf("Disk Image: %s\n\n", info.Path)
	fmt.Printf("Model:      TPDD%d\n", info.Model)
	fmt.Printf("Tracks:     %d, %d sectors each\n", info.Tracks, info.Sectors)
	fmt.Printf("Record:     %d bytes on disk\n", info.RecordLen)
	fmt.Printf("Size:       %d bytes\n", info.Size)
	if !info.Modified.IsZero() {
		fmt.Printf("Modified:   %s\n", info.Modified.Format(time.RFC1123))
	}
	if info.Model == 2 {
		fmt.Printf("Flagged:    %d sectors\n", info.Flagged)
	}

	if len(info.SizeCodes) > 0 {
		fmt.Printf("\nLogical sector sizes:\n")
		for _, size := range []int{64, 80, 128, 256, 512, 1024, 1280} {
			if n := info.SizeCodes[strconv.Itoa(size)]; n > 0 {
				fmt.Printf("  %4d bytes  %d sectors\n", size, n)
			}
		}
	}

	if len(info.Issues) > 0 {
		fmt.Printf("\nWarnings:\n")
		for _, issue := range info.Issues {
			fmt.Printf("- %s\n", issue)
		}
	}

	return nil
}
