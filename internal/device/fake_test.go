package device

import (
	"bytes"
	"io"
	"sync"
)

// fakePort is an in-memory Port. Reads are served from a channel, writes are recorded.
type fakePort struct {
	// reads delivers chunks to Read; closing it makes Read return io.EOF.
	reads chan []byte
	// maxWrite caps the bytes accepted per Write call to simulate short writes; 0 means unlimited.
	maxWrite int
	// writeErr is returned by Write when set.
	writeErr error

	mu      sync.Mutex
	written bytes.Buffer
	calls   int

	closeOnce sync.Once
	closed    chan struct{}
}

// newFakePort creates an open fake port.
func newFakePort() *fakePort {
	return &fakePort{
		reads:  make(chan []byte, 16),
		closed: make(chan struct{}),
	}
}

// Read blocks until a chunk is queued or the port is closed.
func (p *fakePort) Read(b []byte) (int, error) {
	select {
	case chunk, ok := <-p.reads:
		if !ok {
			return 0, io.EOF
		}

		return copy(b, chunk), nil
	case <-p.closed:
		return 0, io.ErrClosedPipe
	}
}

// Write records b, honoring maxWrite and writeErr.
func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls++

	if p.writeErr != nil {
		return 0, p.writeErr
	}

	n := len(b)
	if p.maxWrite > 0 && n > p.maxWrite {
		n = p.maxWrite
	}

	p.written.Write(b[:n])

	return n, nil
}

// Close unblocks pending reads.
func (p *fakePort) Close() error {
	p.closeOnce.Do(func() { close(p.closed) })

	return nil
}

// Written returns everything written so far.
func (p *fakePort) Written() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.written.String()
}
