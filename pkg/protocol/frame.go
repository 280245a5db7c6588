// file: pkg/protocol/frame.go

package protocol

import (
	"io"

	"github.com/pkg/errors"
)

// ErrChecksum reports a request frame whose check byte does not match
// its contents. The frame is fully consumed before it is returned.
var ErrChecksum = errors.New("checksum mismatch")

// Checksum computes the frame check byte: the one's complement of the
// low byte of the sum over opcode, length and payload.
func Checksum(block []byte) byte {
	var sum byte
	for _, b := range block {
		sum += b
	}
	return sum ^ 0xFF
}

// Frame assembles a response frame: opcode, length, payload, check
// byte, with no preamble.
func Frame(opcode byte, payload []byte) []byte {
	b := make([]byte, 0, len(payload)+3)
	b = append(b, opcode, byte(len(payload)))
	b = append(b, payload...)
	return append(b, Checksum(b))
}

// Request is one decoded operation-mode request.
type Request struct {
	Opcode  byte
	Payload []byte
}

// ReadRequest hunts for two consecutive sync bytes on r and decodes
// the frame that follows. A checksum mismatch returns ErrChecksum with
// the decoded request, so the caller can answer it; any read failure
// is returned as-is.
func ReadRequest(r io.Reader) (Request, error) {
	var b [1]byte
	n := 0
	for n < 2 {
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return Request{}, err
		}
		if b[0] == Sync {
			n++
		} else {
			n = 0
		}
	}

	var hdr [2]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Request{}, err
	}
	body := make([]byte, int(hdr[1])+1)
	if _, err := io.ReadFull(r, body); err != nil {
		return Request{}, err
	}

	req := Request{Opcode: hdr[0], Payload: body[:len(body)-1]}
	sum := hdr[0] + hdr[1]
	for _, c := range req.Payload {
		sum += c
	}
	if sum^0xFF != body[len(body)-1] {
		return req, ErrChecksum
	}
	return req, nil
}
