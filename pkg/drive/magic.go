// file: pkg/drive/magic.go

package drive

import (
	"math"
	"os"
	"strings"

	"github.com/gorlik/dlplus/pkg/dirlist"
)

// Loader names that resolve from anywhere. TS-DOS and friends load
// these from disk to reinstall themselves; serving them from the
// share root or the library directory makes that work from any
// subdirectory.
var magicNames = []string{
	"DOS100.CO", "DOS200.CO", "DOSNEC.CO",
	"SAR100.CO", "SAR200.CO", "SARNEC.CO",
	"DOSM10.CO", "DOSK85.CO",
	"SARM10.CO", "SARK85.CO",
}

func isMagicName(name string) bool {
	for _, m := range magicNames {
		if name == m {
			return true
		}
	}
	return false
}

// findMagic resolves a loader name against the share root, then the
// library directory.
func (s *Session) findMagic(name string, attr byte) (dirlist.FileEntry, bool) {
	path := strings.Repeat("../", s.depth) + name
	st, err := os.Stat(path)
	if err != nil && s.cfg.LibDir != "" {
		path = s.cfg.LibDir + "/" + name
		st, err = os.Stat(path)
	}
	if err != nil {
		return dirlist.FileEntry{}, false
	}
	var size uint16
	if st.Size() <= math.MaxUint16 {
		size = uint16(st.Size())
	}
	return dirlist.FileEntry{
		LocalName:  path,
		ClientName: name,
		Attr:       attr,
		Size:       size,
	}, true
}
