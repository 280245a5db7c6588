// file: pkg/dirlist/dirlist.go

// Package dirlist maintains the client-visible snapshot of one host
// directory: fixed-width client names, attribute bytes and 16-bit
// sizes, with the rewindable cursor the dirent protocol needs.
package dirlist

// FileEntry is one item of the client-visible listing.
type FileEntry struct {
	LocalName  string // host name, or a full path for library files
	ClientName string // fixed-width translated name
	Attr       byte
	Size       uint16
	IsDir      bool
}

// List is a rebuildable directory snapshot with a cursor. The cursor
// always points at the next entry to hand out.
type List struct {
	entries []FileEntry
	cur     int
}

// Clear drops all entries and rewinds the cursor.
func (l *List) Clear() {
	l.entries = l.entries[:0]
	l.cur = 0
}

// Add appends an entry to the snapshot.
func (l *List) Add(e FileEntry) {
	l.entries = append(l.entries, e)
}

// Len reports the number of entries.
func (l *List) Len() int {
	return len(l.entries)
}

// First rewinds and returns the first entry, or nil when empty.
func (l *List) First() *FileEntry {
	l.cur = 0
	return l.Next()
}

// Next returns the entry under the cursor and advances, or nil at the
// end of the listing.
func (l *List) Next() *FileEntry {
	if l.cur >= len(l.entries) {
		return nil
	}
	e := &l.entries[l.cur]
	l.cur++
	return e
}

// Prev steps back before the previously returned entry, or nil at the
// start of the listing.
func (l *List) Prev() *FileEntry {
	if l.cur < 2 {
		return nil
	}
	l.cur--
	return &l.entries[l.cur-1]
}

// Find locates an entry by exact client name and attribute byte.
func (l *List) Find(clientName string, attr byte) *FileEntry {
	for i := range l.entries {
		if l.entries[i].ClientName == clientName && l.entries[i].Attr == attr {
			return &l.entries[i]
		}
	}
	return nil
}
