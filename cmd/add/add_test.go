// file: cmd/add/add_test.go

package add

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/gorlik/dlplus/pkg/diskimg"
)

func blankImage(t *testing.T, lc byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scratch.pdd1")
	im := diskimg.NewImage(path, diskimg.TPDD1)
	if _, err := im.FormatRecords(lc); err != nil {
		t.Fatalf("Failed to format image: %v", err)
	}
	return path
}

func inputFile(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "payload.bin")
	if err := os.WriteFile(path, data, 0666); err != nil {
		t.Fatalf("Failed to write input: %v", err)
	}
	return path
}

func TestAddLogicalSector(t *testing.T) {
	path := blankImage(t, 2) // 128 byte logical sectors
	payload := bytes.Repeat([]byte{0xA5}, 128)

	opts := DefaultAddOptions()
	opts.Quiet = true
	opts.Record = 5
	opts.Logical = 3
	opts.Input = inputFile(t, payload)
	if err := Add(path, opts); err != nil {
		t.Fatalf("Failed to add: %v", err)
	}

	im := diskimg.NewImage(path, diskimg.TPDD1)
	_, got, err := im.ReadLogical(5, 3)
	if err != nil {
		t.Fatalf("Failed to read back: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Error("Read back different data than written")
	}

	_, got, err = im.ReadLogical(5, 2)
	if err != nil {
		t.Fatalf("Failed to read back: %v", err)
	}
	if !bytes.Equal(got, make([]byte, 128)) {
		t.Error("Write spilled into the previous logical sector")
	}
}

func TestAddWholeRecord(t *testing.T) {
	path := blankImage(t, 6) // one 1280 byte logical sector
	payload := bytes.Repeat([]byte{0x42}, 1280)

	opts := DefaultAddOptions()
	opts.Quiet = true
	opts.Record = 1
	opts.Input = inputFile(t, payload)
	if err := Add(path, opts); err != nil {
		t.Fatalf("Failed to add: %v", err)
	}

	im := diskimg.NewImage(path, diskimg.TPDD1)
	_, got, err := im.ReadLogical(1, 1)
	if err != nil {
		t.Fatalf("Failed to read back: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Error("Read back different data than written")
	}
}

func TestAddBounds(t *testing.T) {
	path := blankImage(t, 0) // 64 byte logical sectors

	opts := DefaultAddOptions()
	opts.Quiet = true
	opts.Logical = 1
	opts.Input = inputFile(t, make([]byte, 65))
	if err := Add(path, opts); err == nil {
		t.Error("Add accepted input larger than the logical sector")
	}

	opts.Logical = 21 // 64 * 21 runs past the 1280 byte data area
	if err := Add(path, opts); err == nil {
		t.Error("Add accepted a logical sector past the record")
	}

	opts.Logical = 0
	opts.Record = 200
	if err := Add(path, opts); err == nil {
		t.Error("Add accepted an out of range record")
	}
}
