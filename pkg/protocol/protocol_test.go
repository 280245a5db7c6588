// file: pkg/protocol/protocol_test.go

package protocol

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestChecksum(t *testing.T) {
	// Known frames from a real client session.
	cases := []struct {
		name  string
		block []byte
		want  byte
	}{
		{"status request", []byte{0x07, 0x00}, 0xF8},
		{"std ok response", []byte{0x12, 0x01, 0x00}, 0xEC},
		{"wrapping sum", []byte{0xFF, 0xFF, 0x02}, 0xFF},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := Checksum(c.block); got != c.want {
				t.Fatalf("Checksum(% X) = 0x%02X, want 0x%02X", c.block, got, c.want)
			}
		})
	}
}

func TestFrameRoundTrip(t *testing.T) {
	payload := make([]byte, DataMax)
	for i := range payload {
		payload[i] = byte(i & 0xFF)
	}

	f := Frame(ReqWrite, payload)
	if len(f) != len(payload)+3 {
		t.Fatalf("Frame length = %d, want %d", len(f), len(payload)+3)
	}

	// A response frame carries no preamble, so supply one to decode it
	// as if it were a request.
	req, err := ReadRequest(bytes.NewReader(append([]byte{Sync, Sync}, f...)))
	if err != nil {
		t.Fatalf("Failed to decode frame: %v", err)
	}
	if req.Opcode != ReqWrite {
		t.Errorf("Opcode = 0x%02X, want 0x%02X", req.Opcode, ReqWrite)
	}
	if !bytes.Equal(req.Payload, payload) {
		t.Errorf("Payload does not round trip")
	}
}

func TestReadRequest(t *testing.T) {
	t.Run("leading garbage", func(t *testing.T) {
		// A lone sync byte followed by junk must not start a frame.
		b := []byte{0x00, Sync, 0x21, Sync, Sync, 0x07, 0x00, 0xF8}
		req, err := ReadRequest(bytes.NewReader(b))
		if err != nil {
			t.Fatalf("Failed to decode frame: %v", err)
		}
		if req.Opcode != ReqStatus || len(req.Payload) != 0 {
			t.Errorf("Got opcode 0x%02X payload %d bytes, want status request", req.Opcode, len(req.Payload))
		}
	})

	t.Run("checksum mismatch", func(t *testing.T) {
		b := []byte{Sync, Sync, 0x07, 0x00, 0xF7}
		_, err := ReadRequest(bytes.NewReader(b))
		if !errors.Is(err, ErrChecksum) {
			t.Fatalf("Got %v, want ErrChecksum", err)
		}
	})

	t.Run("bit flip detected", func(t *testing.T) {
		payload := []byte{0x01, 0x02, 0x03, 0x04}
		f := append([]byte{Sync, Sync}, Frame(ReqOpen, payload)...)
		for i := 2; i < len(f); i++ {
			for bit := 0; bit < 8; bit++ {
				m := append([]byte(nil), f...)
				m[i] ^= 1 << bit
				// Flipping a length bit starves the reader instead.
				_, err := ReadRequest(bytes.NewReader(m))
				if err == nil {
					t.Fatalf("Flip of byte %d bit %d went undetected", i, bit)
				}
				if !errors.Is(err, ErrChecksum) && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
					t.Fatalf("Flip of byte %d bit %d: unexpected error %v", i, bit, err)
				}
			}
		}
	})

	t.Run("truncated frame", func(t *testing.T) {
		b := []byte{Sync, Sync, 0x01, 0x1A, 0x00}
		_, err := ReadRequest(bytes.NewReader(b))
		if !errors.Is(err, io.ErrUnexpectedEOF) {
			t.Fatalf("Got %v, want io.ErrUnexpectedEOF", err)
		}
	})
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		opcode byte
		tpdd2  bool
		code   byte
		bank   int
	}{
		{ReqDirent, false, ReqDirent, 0},
		{ReqVersion, false, ReqVersion, 0},
		{0x43, true, ReqRead, 1},
		{0x43, false, 0x43, 0},
		{0x0E, false, ReqCache, 0},
		{0x0E, true, ReqCache, 0},
		{0x4E, true, ReqCache, 1},
		{0x11, true, ReqSysinfo, 0},
		{0x12, true, ReqExec, 0},
		{0x40, true, ReqDirent, 1},
	}
	for _, c := range cases {
		code, bank := Normalize(c.opcode, c.tpdd2)
		if code != c.code || bank != c.bank {
			t.Errorf("Normalize(0x%02X, %v) = (0x%02X, %d), want (0x%02X, %d)",
				c.opcode, c.tpdd2, code, bank, c.code, c.bank)
		}
	}
}
