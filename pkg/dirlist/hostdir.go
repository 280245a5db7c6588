// file: pkg/dirlist/hostdir.go

package dirlist

import (
	"math"
	"os"

	"github.com/pkg/errors"

	"github.com/gorlik/dlplus/pkg/fname"
)

// localNameMax bounds host names shown to fixed-width clients.
const localNameMax = 255

// ErrNoShare reports that the share directory itself could not be
// enumerated, as opposed to a failure on one of its entries.
var ErrNoShare = errors.New("share directory unreadable")

// ReadOptions control how a host directory is rendered into a List.
type ReadOptions struct {
	Translator  *fname.Translator
	DefaultAttr byte
	IncludeDirs bool // client completed the directory-mode handshake
	AddParent   bool // below the share root: inject a ".." entry first
}

// Read rebuilds dst from the directory at path. Hidden files and
// overly long names are skipped for fixed-width profiles, as are
// entries that are neither regular files nor directories. A file too
// large for the 16-bit size field is listed with size zero but stays
// accessible; some CP/M loaders depend on reading such files.
func Read(dst *List, path string, opt ReadOptions) error {
	tr := opt.Translator

	dst.Clear()
	if opt.AddParent {
		dst.Add(FileEntry{
			LocalName:  "..",
			ClientName: tr.Translate("..", true),
			Attr:       opt.DefaultAttr,
			IsDir:      true,
		})
	}

	ents, err := os.ReadDir(path)
	if err != nil {
		return errors.Wrapf(ErrNoShare, "%s (%v)", path, err)
	}
	for _, de := range ents {
		name := de.Name()

		// follow symlinks the way a plain stat does
		st, err := os.Stat(path + "/" + name)
		if err != nil {
			return errors.Wrapf(err, "stat %s", name)
		}

		isDir := st.IsDir()
		if !isDir && !st.Mode().IsRegular() {
			continue
		}
		if isDir && !opt.IncludeDirs {
			continue
		}
		if tr.Profile.BaseLen > 0 {
			if name[0] == '.' {
				continue
			}
			if len(name) > localNameMax {
				continue
			}
		}

		var size uint16
		if !isDir && st.Size() <= math.MaxUint16 {
			size = uint16(st.Size())
		}

		attr := GetAttr(path+"/"+name, opt.DefaultAttr)

		dst.Add(FileEntry{
			LocalName:  name,
			ClientName: tr.Translate(name, isDir),
			Attr:       attr,
			Size:       size,
			IsDir:      isDir,
		})
	}
	return nil
}
