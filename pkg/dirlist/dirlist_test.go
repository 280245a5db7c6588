// file: pkg/dirlist/dirlist_test.go

package dirlist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gorlik/dlplus/pkg/fname"
)

func testTranslator() *fname.Translator {
	p, _ := fname.Lookup("k85")
	return &fname.Translator{Profile: p, Tildes: true, DME: true, Labels: fname.DefaultLabels()}
}

func TestCursor(t *testing.T) {
	var l List
	for _, n := range []string{"A", "B", "C"} {
		l.Add(FileEntry{ClientName: n})
	}

	if e := l.First(); e == nil || e.ClientName != "A" {
		t.Fatalf("First() = %v", e)
	}
	if e := l.Next(); e == nil || e.ClientName != "B" {
		t.Fatalf("Next() = %v", e)
	}
	if e := l.Prev(); e == nil || e.ClientName != "A" {
		t.Fatalf("Prev() = %v", e)
	}
	if e := l.Next(); e == nil || e.ClientName != "B" {
		t.Fatalf("Next() after Prev() = %v", e)
	}
	if e := l.Next(); e == nil || e.ClientName != "C" {
		t.Fatalf("Next() = %v", e)
	}
	if e := l.Next(); e != nil {
		t.Fatalf("Next() past end = %v, want nil", e)
	}

	l.First()
	if e := l.Prev(); e != nil {
		t.Fatalf("Prev() at start = %v, want nil", e)
	}
}

func TestCursorEmpty(t *testing.T) {
	var l List
	if e := l.First(); e != nil {
		t.Fatalf("First() on empty list = %v", e)
	}
}

func TestFind(t *testing.T) {
	var l List
	l.Add(FileEntry{ClientName: "FOO   .CO", Attr: 'F'})
	l.Add(FileEntry{ClientName: "FOO   .CO", Attr: 'A'})

	if e := l.Find("FOO   .CO", 'A'); e == nil || e.Attr != 'A' {
		t.Fatalf("Find by attr = %v", e)
	}
	if e := l.Find("BAR   .CO", 'F'); e != nil {
		t.Fatalf("Find missing = %v, want nil", e)
	}
}

func TestReadHostDir(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, n int) {
		if err := os.WriteFile(filepath.Join(dir, name), make([]byte, n), 0o644); err != nil {
			t.Fatalf("Failed to create %s: %v", name, err)
		}
	}
	write("hello.ba", 100)
	write(".hidden", 5)
	if err := os.Mkdir(filepath.Join(dir, "games"), 0o755); err != nil {
		t.Fatalf("Failed to create subdir: %v", err)
	}

	tr := testTranslator()

	t.Run("directories hidden from plain clients", func(t *testing.T) {
		var l List
		err := Read(&l, dir, ReadOptions{Translator: tr, DefaultAttr: 'F'})
		if err != nil {
			t.Fatalf("Failed to read host dir: %v", err)
		}
		if l.Len() != 1 {
			t.Fatalf("Got %d entries, want 1", l.Len())
		}
		e := l.First()
		if e.ClientName != "HELLO .BA" || e.Size != 100 || e.Attr != 'F' || e.IsDir {
			t.Errorf("Entry = %+v", *e)
		}
	})

	t.Run("directories shown after handshake", func(t *testing.T) {
		var l List
		err := Read(&l, dir, ReadOptions{Translator: tr, DefaultAttr: 'F', IncludeDirs: true, AddParent: true})
		if err != nil {
			t.Fatalf("Failed to read host dir: %v", err)
		}
		if l.Len() != 3 {
			t.Fatalf("Got %d entries, want 3", l.Len())
		}
		first := l.First()
		if first.ClientName != "^     .<>" || !first.IsDir {
			t.Errorf("Parent entry = %+v", *first)
		}
		if e := l.Find("GAMES .<>", 'F'); e == nil || !e.IsDir || e.Size != 0 {
			t.Errorf("Directory entry = %v", e)
		}
	})
}
