// file: pkg/dirlist/xattr.go

package dirlist

import (
	"os"

	"github.com/pkg/xattr"
)

// AttrName is the extended-attribute key holding the client attribute
// byte, compatible with shares written by other emulators. Overridable
// for shares that use a different key.
var AttrName = "user.pdd.attr"

// GetAttr reads the stored attribute byte for path, falling back to
// def when none is stored or the filesystem has no xattr support.
func GetAttr(path string, def byte) byte {
	b, err := xattr.Get(path, AttrName)
	if err != nil || len(b) < 1 {
		return def
	}
	return b[0]
}

// SetAttr stores the attribute byte on an open file. Failure is not
// reported to the client; shares on filesystems without xattrs still
// work, they just cannot persist attributes.
func SetAttr(f *os.File, attr byte) error {
	return xattr.FSet(f, AttrName, []byte{attr})
}

// RefreshAttr reads the attribute byte from an open file, keeping def
// when nothing is stored.
func RefreshAttr(f *os.File, def byte) byte {
	b, err := xattr.FGet(f, AttrName)
	if err != nil || len(b) < 1 {
		return def
	}
	return b[0]
}
