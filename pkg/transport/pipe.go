// file: pkg/transport/pipe.go

package transport

import (
	"io"
	"sync"
	"time"
)

// Pipe is one end of an in-memory port pair for tests. Writes land in
// the peer's buffer; reads drain this end's own.
type Pipe struct {
	in   chan byte
	peer *Pipe
	once *sync.Once
	done chan struct{}
}

// NewPipe returns the two connected ends. Closing either end wakes
// both; buffered bytes still drain first.
func NewPipe() (*Pipe, *Pipe) {
	done := make(chan struct{})
	once := new(sync.Once)
	a := &Pipe{in: make(chan byte, 1<<16), once: once, done: done}
	b := &Pipe{in: make(chan byte, 1<<16), once: once, done: done}
	a.peer, b.peer = b, a
	return a, b
}

func (p *Pipe) Read(buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	select {
	case c := <-p.in:
		buf[0] = c
	default:
		select {
		case c := <-p.in:
			buf[0] = c
		case <-p.done:
			return 0, io.EOF
		}
	}
	n := 1
	for n < len(buf) {
		select {
		case c := <-p.in:
			buf[n] = c
			n++
		default:
			return n, nil
		}
	}
	return n, nil
}

func (p *Pipe) Write(buf []byte) (int, error) {
	for i, c := range buf {
		select {
		case p.peer.in <- c:
		case <-p.done:
			return i, io.ErrClosedPipe
		}
	}
	return len(buf), nil
}

func (p *Pipe) Close() error {
	p.once.Do(func() { close(p.done) })
	return nil
}

func (p *Pipe) Probe() (byte, bool, error) {
	select {
	case c := <-p.in:
		return c, true, nil
	default:
	}
	select {
	case c := <-p.in:
		return c, true, nil
	case <-p.done:
		return 0, false, io.EOF
	case <-time.After(ProbeWait):
		return 0, false, nil
	}
}
