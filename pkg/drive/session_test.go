// file: pkg/drive/session_test.go

package drive

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"

	"github.com/gorlik/dlplus/pkg/diskimg"
	"github.com/gorlik/dlplus/pkg/fname"
	"github.com/gorlik/dlplus/pkg/protocol"
	"github.com/gorlik/dlplus/pkg/transport"
)

func TestMain(m *testing.M) {
	log.SetLevel(log.PanicLevel)
	os.Exit(m.Run())
}

// testClient drives a live session over the client end of a pipe.
type testClient struct {
	t    *testing.T
	port *transport.Pipe
}

// startSession runs a session over an in-memory pipe and returns the
// client end. Sessions move the process working directory, so tests
// cannot run in parallel.
func startSession(t *testing.T, cfg Config) *testClient {
	t.Helper()
	host, client := transport.NewPipe()
	s, err := New(host, cfg)
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- s.Serve() }()
	t.Cleanup(func() {
		client.Close()
		if err := <-done; err != nil {
			t.Errorf("Serve returned error: %v", err)
		}
	})
	return &testClient{t: t, port: client}
}

// request sends one framed Operation-mode request.
func (c *testClient) request(opcode byte, payload []byte) {
	c.t.Helper()
	b := []byte{protocol.Sync, protocol.Sync}
	b = append(b, protocol.Frame(opcode, payload)...)
	if _, err := c.port.Write(b); err != nil {
		c.t.Fatalf("Failed to send request %02X: %v", opcode, err)
	}
}

func (c *testClient) read(n int) []byte {
	c.t.Helper()
	buf := make([]byte, n)
	if _, err := io.ReadFull(c.port, buf); err != nil {
		c.t.Fatalf("Failed to read %d response bytes: %v", n, err)
	}
	return buf
}

// response reads one framed response and verifies its check byte.
func (c *testClient) response() (byte, []byte) {
	c.t.Helper()
	hdr := c.read(2)
	body := c.read(int(hdr[1]) + 1)
	block := append([]byte{hdr[0], hdr[1]}, body[:len(body)-1]...)
	if protocol.Checksum(block) != body[len(body)-1] {
		c.t.Fatalf("Response %02X has a bad check byte", hdr[0])
	}
	return hdr[0], body[:len(body)-1]
}

func (c *testClient) expectStd(status byte) {
	c.t.Helper()
	op, p := c.response()
	if op != protocol.RetStd || len(p) != 1 {
		c.t.Fatalf("Expected standard response, got %02X len %d", op, len(p))
	}
	if p[0] != status {
		c.t.Fatalf("Expected status %02X, got %02X", status, p[0])
	}
}

func (c *testClient) expectDirent(name string, attr byte, size uint16) []byte {
	c.t.Helper()
	op, p := c.response()
	if op != protocol.RetDirent || len(p) != 28 {
		c.t.Fatalf("Expected dirent response, got %02X len %d", op, len(p))
	}
	want := name + strings.Repeat(" ", protocol.FilenameLen-len(name))
	if string(p[:protocol.FilenameLen]) != want {
		c.t.Fatalf("Expected name %q, got %q", want, p[:protocol.FilenameLen])
	}
	if p[24] != attr {
		c.t.Fatalf("Expected attribute %c, got %c", attr, p[24])
	}
	if got := uint16(p[25])<<8 | uint16(p[26]); got != size {
		c.t.Fatalf("Expected size %d, got %d", size, got)
	}
	return p
}

func (c *testClient) expectBlankDirent() []byte {
	c.t.Helper()
	op, p := c.response()
	if op != protocol.RetDirent || len(p) != 28 {
		c.t.Fatalf("Expected dirent response, got %02X len %d", op, len(p))
	}
	if !bytes.Equal(p[:27], make([]byte, 27)) {
		c.t.Fatalf("Expected blank dirent, got %q", p[:24])
	}
	return p
}

// expectSilence verifies the drive sent nothing; it costs one probe
// wait, so use it only where silence is the point.
func (c *testClient) expectSilence() {
	c.t.Helper()
	if b, ok, _ := c.port.Probe(); ok {
		c.t.Fatalf("Expected no response, got byte %02X", b)
	}
}

// direntPayload builds the 26-byte directory request: space-padded
// name, attribute, action.
func direntPayload(name string, attr, action byte) []byte {
	p := make([]byte, 26)
	for i := 0; i < protocol.FilenameLen; i++ {
		p[i] = ' '
	}
	copy(p, name)
	p[24] = attr
	p[25] = action
	return p
}

func (c *testClient) setName(name string, attr byte) {
	c.t.Helper()
	c.request(protocol.ReqDirent, direntPayload(name, attr, protocol.DirentSetName))
}

func TestFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	c := startSession(t, Config{SharePaths: [2]string{dir}})

	// a name not on disk yet answers blank
	c.setName("FOO   .CO", 'F')
	c.expectBlankDirent()

	c.request(protocol.ReqOpen, []byte{protocol.OpenWrite})
	c.expectStd(protocol.StatusOK)
	c.request(protocol.ReqWrite, []byte("hello, "))
	c.expectStd(protocol.StatusOK)
	c.request(protocol.ReqWrite, []byte("disk"))
	c.expectStd(protocol.StatusOK)
	c.request(protocol.ReqClose, nil)
	c.expectStd(protocol.StatusOK)

	data, err := os.ReadFile(filepath.Join(dir, "FOO.CO"))
	if err != nil {
		t.Fatalf("Failed to read written file: %v", err)
	}
	if string(data) != "hello, disk" {
		t.Fatalf("Expected file content %q, got %q", "hello, disk", data)
	}

	c.request(protocol.ReqDirent, direntPayload("", 'F', protocol.DirentGetFirst))
	p := c.expectDirent("FOO   .CO", 'F', 11)
	if p[27] != 80 {
		t.Fatalf("Expected 80 free sectors, got %d", p[27])
	}
	c.request(protocol.ReqDirent, direntPayload("", 'F', protocol.DirentGetNext))
	c.expectBlankDirent()

	c.setName("FOO   .CO", 'F')
	c.expectDirent("FOO   .CO", 'F', 11)
	c.request(protocol.ReqOpen, []byte{protocol.OpenRead})
	c.expectStd(protocol.StatusOK)
	c.request(protocol.ReqRead, nil)
	if op, p := c.response(); op != protocol.RetRead || string(p) != "hello, disk" {
		t.Fatalf("Expected read response %q, got %02X %q", "hello, disk", op, p)
	}
	c.request(protocol.ReqRead, nil)
	if op, p := c.response(); op != protocol.RetRead || len(p) != 0 {
		t.Fatalf("Expected empty end-of-file read, got %02X len %d", op, len(p))
	}
	c.request(protocol.ReqClose, nil)
	c.expectStd(protocol.StatusOK)

	c.request(protocol.ReqDelete, nil)
	c.expectStd(protocol.StatusOK)
	if _, err := os.Stat(filepath.Join(dir, "FOO.CO")); !os.IsNotExist(err) {
		t.Fatalf("Expected file deleted, stat returned %v", err)
	}
	c.setName("FOO   .CO", 'F')
	c.expectBlankDirent()
}

func TestUnpaddedProfile(t *testing.T) {
	dir := t.TempDir()
	cpm, ok := fname.Lookup("cpm")
	if !ok {
		t.Fatalf("Failed to find cpm profile")
	}
	c := startSession(t, Config{Profile: cpm, SharePaths: [2]string{dir}})

	content := make([]byte, 300)
	for i := range content {
		content[i] = byte('A' + i%26)
	}

	c.setName("APP.COM", 'F')
	c.expectBlankDirent()
	c.request(protocol.ReqOpen, []byte{protocol.OpenWrite})
	c.expectStd(protocol.StatusOK)
	for off := 0; off < len(content); off += protocol.DataMax {
		end := off + protocol.DataMax
		if end > len(content) {
			end = len(content)
		}
		c.request(protocol.ReqWrite, content[off:end])
		c.expectStd(protocol.StatusOK)
	}
	c.request(protocol.ReqClose, nil)
	c.expectStd(protocol.StatusOK)

	// unpadded profiles use the client name as the host name
	if _, err := os.Stat(filepath.Join(dir, "APP.COM")); err != nil {
		t.Fatalf("Failed to stat APP.COM: %v", err)
	}

	c.setName("APP.COM", 'F')
	c.expectDirent("APP.COM", 'F', 300)
	c.request(protocol.ReqOpen, []byte{protocol.OpenRead})
	c.expectStd(protocol.StatusOK)
	var got []byte
	for {
		c.request(protocol.ReqRead, nil)
		op, p := c.response()
		if op != protocol.RetRead {
			t.Fatalf("Expected read response, got %02X", op)
		}
		if len(p) == 0 {
			break
		}
		got = append(got, p...)
	}
	if !bytes.Equal(got, content) {
		t.Fatalf("Read back %d bytes, want %d", len(got), len(content))
	}
	c.request(protocol.ReqClose, nil)
	c.expectStd(protocol.StatusOK)
}

func TestOpenWithoutName(t *testing.T) {
	c := startSession(t, Config{SharePaths: [2]string{t.TempDir()}})

	t.Run("write", func(t *testing.T) {
		c.request(protocol.ReqOpen, []byte{protocol.OpenWrite})
		c.expectStd(protocol.StatusFmtMismatch)
	})
	t.Run("read", func(t *testing.T) {
		c.request(protocol.ReqOpen, []byte{protocol.OpenRead})
		c.expectStd(protocol.StatusNoFile)
	})
	t.Run("delete", func(t *testing.T) {
		c.request(protocol.ReqDelete, nil)
		c.expectStd(protocol.StatusNoFile)
	})
	t.Run("read chunk without handle", func(t *testing.T) {
		c.request(protocol.ReqRead, nil)
		c.expectStd(protocol.StatusNoFilename)
	})
	t.Run("write chunk without handle", func(t *testing.T) {
		c.request(protocol.ReqWrite, []byte("x"))
		c.expectStd(protocol.StatusNoFilename)
	})
	t.Run("bad open mode", func(t *testing.T) {
		c.request(protocol.ReqOpen, []byte{0x07})
		c.expectStd(protocol.StatusParam)
	})
}

func TestStatusAndUnknownRequest(t *testing.T) {
	c := startSession(t, Config{SharePaths: [2]string{t.TempDir()}})

	c.request(protocol.ReqStatus, nil)
	c.expectStd(protocol.StatusOK)

	// unknown requests get no response, and the session stays up
	c.request(0x2F, nil)
	c.expectSilence()
	c.request(protocol.ReqStatus, nil)
	c.expectStd(protocol.StatusOK)
}

func TestBadChecksum(t *testing.T) {
	c := startSession(t, Config{SharePaths: [2]string{t.TempDir()}})

	b := []byte{protocol.Sync, protocol.Sync}
	f := protocol.Frame(protocol.ReqStatus, nil)
	f[len(f)-1]++
	if _, err := c.port.Write(append(b, f...)); err != nil {
		t.Fatalf("Failed to send corrupted request: %v", err)
	}
	c.expectStd(protocol.StatusParam)

	c.request(protocol.ReqStatus, nil)
	c.expectStd(protocol.StatusOK)
}

func TestDirectoryHandshakeAndTraversal(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "GAMES"), 0777); err != nil {
		t.Fatalf("Failed to create subdirectory: %v", err)
	}
	c := startSession(t, Config{DME: true, SharePaths: [2]string{dir}})

	// without the handshake the listing hides directories
	c.request(protocol.ReqDirent, direntPayload("", 'F', protocol.DirentGetFirst))
	c.expectBlankDirent()

	// two mode-switch requests, each trailed by a terminator byte;
	// the first switches silently, the second answers the label
	c.handshake()
	c.request(protocol.ReqDirent, direntPayload("", 'F', protocol.DirentGetFirst))
	c.expectDirent("GAMES .<>", 'F', 0)

	// the listing burned the handshake, so probe again
	c.handshake()
	c.setName("GAMES .<>", 'F')
	c.expectDirent("GAMES .<>", 'F', 0)
	c.request(protocol.ReqOpen, []byte{protocol.OpenRead})
	c.expectStd(protocol.StatusOK)
	c.checkLabel("GAMES ")

	c.setName("SAVE  .DO", 'F')
	c.expectBlankDirent()
	c.request(protocol.ReqOpen, []byte{protocol.OpenWrite})
	c.expectStd(protocol.StatusOK)
	c.request(protocol.ReqWrite, []byte("high score"))
	c.expectStd(protocol.StatusOK)
	c.request(protocol.ReqClose, nil)
	c.expectStd(protocol.StatusOK)
	data, err := os.ReadFile(filepath.Join(dir, "GAMES", "SAVE.DO"))
	if err != nil {
		t.Fatalf("Failed to read file in subdirectory: %v", err)
	}
	if string(data) != "high score" {
		t.Fatalf("Expected %q, got %q", "high score", data)
	}

	// the parent entry leads back to the share root
	c.setName("^     .<>", 'F')
	c.expectDirent("^     .<>", 'F', 0)
	c.request(protocol.ReqOpen, []byte{protocol.OpenRead})
	c.expectStd(protocol.StatusOK)
	c.checkLabel("0:    ")
}

// handshake sends the directory-mode probe twice and drains the label
// packet the second one answers. The first probe switches modes
// silently, like a real client risking a real drive.
func (c *testClient) handshake() {
	c.t.Helper()
	b := []byte{protocol.Sync, protocol.Sync}
	b = append(b, protocol.Frame(protocol.ReqFDC, nil)...)
	b = append(b, protocol.FDCTerm)
	if _, err := c.port.Write(b); err != nil {
		c.t.Fatalf("Failed to send handshake probe: %v", err)
	}
	if _, err := c.port.Write(b); err != nil {
		c.t.Fatalf("Failed to send handshake probe: %v", err)
	}
	c.readLabel()
}

// checkLabel verifies the directory label of the next handshake
// packet. Once latched, a bare mode-switch request answers without a
// trailing terminator.
func (c *testClient) checkLabel(label string) {
	c.t.Helper()
	c.request(protocol.ReqFDC, nil)
	if got := c.readLabel(); got != label {
		c.t.Fatalf("Expected directory label %q, got %q", label, got)
	}
}

func (c *testClient) readLabel() string {
	c.t.Helper()
	op, p := c.response()
	if op != protocol.RetStd || len(p) != 11 {
		c.t.Fatalf("Expected handshake packet, got %02X len %d", op, len(p))
	}
	return string(p[1:7])
}

func TestLoaderFallback(t *testing.T) {
	lib := t.TempDir()
	loader := []byte{0x8E, 0x01, 0x02, 0x03}
	if err := os.WriteFile(filepath.Join(lib, "DOS100.CO"), loader, 0666); err != nil {
		t.Fatalf("Failed to write loader file: %v", err)
	}
	c := startSession(t, Config{
		MagicFiles: true,
		LibDir:     lib,
		SharePaths: [2]string{t.TempDir()},
	})

	c.setName("DOS100.CO", 'F')
	c.expectDirent("DOS100.CO", 'F', uint16(len(loader)))
	c.request(protocol.ReqOpen, []byte{protocol.OpenRead})
	c.expectStd(protocol.StatusOK)
	c.request(protocol.ReqRead, nil)
	if op, p := c.response(); op != protocol.RetRead || !bytes.Equal(p, loader) {
		t.Fatalf("Expected loader content, got %02X %x", op, p)
	}
	c.request(protocol.ReqClose, nil)
	c.expectStd(protocol.StatusOK)
}

func TestFormatFilesystem(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "blank.pdd1")
	c := startSession(t, Config{
		SharePaths: [2]string{dir},
		Image:      diskimg.Image{Path: img, Geom: diskimg.TPDD1},
	})

	c.request(protocol.ReqFormat, nil)
	c.expectStd(protocol.StatusOK)

	data, err := os.ReadFile(img)
	if err != nil {
		t.Fatalf("Failed to read formatted image: %v", err)
	}
	if len(data) != diskimg.TPDD1.ImageLen() {
		t.Fatalf("Expected image size %d, got %d", diskimg.TPDD1.ImageLen(), len(data))
	}
	// the first record holds the allocation flag, the rest size code 1
	if data[0] != 0 || data[13+1240] != 0x80 {
		t.Fatalf("Expected allocation flag in record 0, got lsc %02X flag %02X", data[0], data[13+1240])
	}
	if data[diskimg.TPDD1.RecordLen()] != 1 {
		t.Fatalf("Expected size code 1 in record 1, got %02X", data[diskimg.TPDD1.RecordLen()])
	}
}

func TestFormatWithoutImage(t *testing.T) {
	c := startSession(t, Config{SharePaths: [2]string{t.TempDir()}})
	c.request(protocol.ReqFormat, nil)
	c.expectStd(protocol.StatusNoDisk)
}
