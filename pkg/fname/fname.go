// file: pkg/fname/fname.go

// Package fname translates between host filenames and the fixed-width
// names exchanged on the wire. Each client family gets a profile
// describing its name geometry and habits; the k85 profile matches
// Model 100 style DOSes, raw passes names through untouched.
package fname

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// fieldWidth is the on-wire filename field size.
const fieldWidth = 24

// Attribute bytes supplied when a file has none stored.
const (
	AttrDefault byte = 'F'
	AttrRaw     byte = 0x20
)

// Profile describes how one client family shapes filenames.
type Profile struct {
	Name        string
	BaseLen     int  // base name width; 0 means whole-name mode
	ExtLen      int  // extension width; 0 disables dot handling
	Pad         bool // space-pad the base to fixed width
	DefaultAttr byte // attribute byte when none is stored
	DME         bool // client understands directory access
	Magic       bool // loader names may fall back to the library dir
	Upcase      bool // render client names in upper case
}

// Builtin client profiles.
var profiles = []Profile{
	{Name: "raw", BaseLen: 0, ExtLen: 0, Pad: false, DefaultAttr: AttrRaw},
	{Name: "k85", BaseLen: 6, ExtLen: 2, Pad: true, DefaultAttr: AttrDefault, DME: true, Magic: true, Upcase: true},
	{Name: "wp2", BaseLen: 8, ExtLen: 2, Pad: true, DefaultAttr: AttrDefault},
	{Name: "cpm", BaseLen: 8, ExtLen: 3, Pad: false, DefaultAttr: AttrDefault, Upcase: true},
	{Name: "rexcpm", BaseLen: 6, ExtLen: 2, Pad: true, DefaultAttr: AttrDefault, Upcase: true},
	{Name: "z88", BaseLen: 12, ExtLen: 3, Pad: false, DefaultAttr: AttrDefault},
	{Name: "st", BaseLen: 6, ExtLen: 2, Pad: true, DefaultAttr: AttrDefault, Upcase: true},
}

// Default returns the profile used when none is configured.
func Default() Profile {
	p, _ := Lookup("k85")
	return p
}

// Lookup finds a builtin profile by name.
func Lookup(name string) (Profile, bool) {
	for _, p := range profiles {
		if p.Name == name {
			return p, true
		}
	}
	return Profile{}, false
}

// Names lists the builtin profile names.
func Names() []string {
	n := make([]string, len(profiles))
	for i, p := range profiles {
		n[i] = p.Name
	}
	return n
}

// Parse resolves a profile by builtin name or as a BASE[.EXT][p]
// width spec such as "8.3" or "6.2p", where the trailing p requests
// fixed-width padding.
func Parse(spec string) (Profile, error) {
	if p, ok := Lookup(spec); ok {
		return p, nil
	}

	p := Profile{Name: spec, DefaultAttr: AttrDefault}
	s := spec
	if strings.HasSuffix(s, "p") {
		p.Pad = true
		s = s[:len(s)-1]
	}
	base, ext, dot := strings.Cut(s, ".")
	var err error
	if p.BaseLen, err = strconv.Atoi(base); err != nil {
		return Profile{}, errors.Errorf("unknown client profile %q", spec)
	}
	if dot {
		if p.ExtLen, err = strconv.Atoi(ext); err != nil {
			return Profile{}, errors.Errorf("unknown client profile %q", spec)
		}
	}
	if p.BaseLen < 1 || p.ExtLen < 0 || p.BaseLen+p.ExtLen > fieldWidth-1 {
		return Profile{}, errors.Errorf("client name widths %d.%d do not fit a %d byte field",
			p.BaseLen, p.ExtLen, fieldWidth)
	}
	return p, nil
}
