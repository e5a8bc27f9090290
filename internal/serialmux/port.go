package serialmux

import (
	"io"
	"sync"
)

// SerialPorter defines the minimal interface needed for an oracle port.
// This abstraction enables unit testing without real serial hardware.
type SerialPorter interface {
	io.ReadWriter
	io.Closer
}

// SerialPortFactory defines an interface for creating serial ports.
// This abstraction enables dependency injection of serial port creation.
type SerialPortFactory interface {
	// Open opens a serial port at the specified path with the given options.
	Open(path string, opts PortOptions) (SerialPorter, error)
}

// ReaderPort adapts a plain reader (stdin, a recorded session file) to
// SerialPorter. Commands are written to W, or discarded when W is nil.
type ReaderPort struct {
	R io.Reader
	W io.Writer

	mu     sync.Mutex
	closed bool
}

func (p *ReaderPort) Read(b []byte) (int, error) { return p.R.Read(b) }

func (p *ReaderPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, io.ErrClosedPipe
	}
	if p.W == nil {
		return len(b), nil
	}
	return p.W.Write(b)
}

// Close closes R when it is an io.Closer.
func (p *ReaderPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	if c, ok := p.R.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// NewReaderSerialMux creates a SerialMux that reads oracle lines from r.
func NewReaderSerialMux(r io.Reader, w io.Writer, opts ...Option) *SerialMux[*ReaderPort] {
	return NewSerialMux(&ReaderPort{R: r, W: w}, opts...)
}
