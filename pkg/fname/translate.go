// file: pkg/fname/translate.go

package fname

import "strings"

// Labels are the DME names for the share root, the parent directory
// entry, and the two-byte extension that marks a directory.
type Labels struct {
	Root   string
	Parent string
	Dir    string
}

// DefaultLabels returns the stock DME labels.
func DefaultLabels() Labels {
	return Labels{Root: "0:    ", Parent: "^     ", Dir: "<>"}
}

// Translator renders host names as client names and back for one
// session. DME holds the effective directory-mode switch, which may be
// off even when the profile supports it.
type Translator struct {
	Profile Profile
	Tildes  bool // mark truncated name segments with a trailing ~
	DME     bool
	Labels  Labels
}

// Translate renders local as the client-side name for the profile.
// Directory names never split on a dot; with DME on they carry the
// directory label as their extension, and ".." becomes the parent
// label.
func (t *Translator) Translate(local string, dir bool) string {
	p := t.Profile

	// whole-name mode: one field, dots not special
	if p.ExtLen == 0 {
		width := p.BaseLen
		if width == 0 {
			width = fieldWidth
		}
		out := []byte(fit(local, width))
		if t.Tildes && len(local) > width {
			out[width-1] = '~'
		}
		if p.Upcase {
			upper(out)
		}
		return string(out)
	}

	// split base and extension on the last dot; a dot in position
	// zero hides the whole name rather than giving an empty base
	base, ext := local, ""
	hasDot := false
	if !dir {
		if i := strings.LastIndexByte(local, '.'); i > 0 {
			base, ext, hasDot = local[:i], local[i+1:], true
		}
	}

	bl := p.BaseLen
	if len(base) < bl {
		bl = len(base)
	}
	bn := []byte(base[:bl])
	for i, c := range bn {
		if c == '.' {
			bn[i] = '_'
		}
	}
	if dir && local == ".." {
		bn = []byte(fit(t.Labels.Parent, p.BaseLen))
	} else if t.Tildes && len(base) > p.BaseLen {
		bn[len(bn)-1] = '~'
	}

	var en []byte
	if dir && t.DME {
		en = []byte(t.Labels.Dir)
	} else {
		el := p.ExtLen
		if len(ext) < el {
			el = len(ext)
		}
		en = []byte(ext[:el])
		if t.Tildes && len(ext) > p.ExtLen {
			en[len(en)-1] = '~'
		}
	}

	var out []byte
	if p.Pad {
		out = []byte(fit(string(bn), p.BaseLen))
	} else {
		out = bn
	}
	if hasDot || p.Pad {
		out = append(out, '.')
	}
	out = append(out, en...)
	if p.Upcase {
		upper(out)
	}
	return string(out)
}

// Collapse reverses the fixed-width padding of a client name, giving
// the local name to act on. Unpadded profiles use client names as-is.
func (t *Translator) Collapse(name string) string {
	p := t.Profile
	if !p.Pad || p.BaseLen == 0 {
		return name
	}

	// length of the base with its pad spaces stripped, at least one
	i := p.BaseLen
	if i > len(name) {
		i = len(name)
	}
	for ; i > 1; i-- {
		if name[i-1] != ' ' {
			break
		}
	}
	if t.IsDirName(name) {
		return name[:i]
	}
	out := []byte(name[:i])
	for j := p.BaseLen; j < len(name) && j <= p.BaseLen+p.ExtLen; j++ {
		out = append(out, name[j])
	}
	return string(out)
}

// IsDirName reports whether a client name carries the directory label
// in its extension field.
func (t *Translator) IsDirName(name string) bool {
	p := t.Profile
	if p.BaseLen == 0 || len(name) < p.BaseLen+3 {
		return false
	}
	return name[p.BaseLen+1:p.BaseLen+3] == t.Labels.Dir
}

// DirLabel renders the working directory as the six byte DME label:
// the root label at the share root, otherwise the last path element
// fitted to the field. TS-DOS needs all six bytes or it leaves stale
// characters on screen.
func (t *Translator) DirLabel(dir string, atRoot bool) string {
	if atRoot {
		return fit(t.Labels.Root, 6)
	}
	if i := strings.LastIndexByte(dir, '/'); i >= 0 {
		dir = dir[i+1:]
	}
	b := []byte(fit(dir, 6))
	if t.Profile.Upcase {
		upper(b)
	}
	return string(b)
}

// fit left-justifies s in a field of width n, truncating or space
// padding as needed.
func fit(s string, n int) string {
	if len(s) >= n {
		return s[:n]
	}
	return s + strings.Repeat(" ", n-len(s))
}

// upper folds ASCII letters in place.
func upper(b []byte) {
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 0x20
		}
	}
}
