package framer

import (
	"bytes"
	"strings"

	"github.com/oshokin/alarm-bridge/internal/domain/alarm"
)

// Framer owns the trailing fragment of an unterminated record.
// It is not safe for concurrent use; a single reader feeds it.
//
// The buffer is unbounded: a sender that never terminates a line grows it
// without limit.
type Framer struct {
	// buf holds at most one partial record between Feed calls.
	buf []byte
}

// New returns an empty Framer.
func New() *Framer {
	return new(Framer)
}

// Feed appends chunk to the pending fragment and returns every record
// completed by it, trimmed of surrounding whitespace. Blank records are dropped.
func (f *Framer) Feed(chunk []byte) []string {
	f.buf = append(f.buf, chunk...)

	last := bytes.LastIndexByte(f.buf, alarm.Terminator)
	if last < 0 {
		return nil
	}

	var lines []string

	for _, raw := range bytes.Split(f.buf[:last], []byte{alarm.Terminator}) {
		if line := strings.TrimSpace(string(raw)); line != "" {
			lines = append(lines, line)
		}
	}

	// Retain only the unterminated tail.
	rest := f.buf[last+1:]
	f.buf = append(make([]byte, 0, len(rest)), rest...)

	return lines
}

// Pending returns the number of buffered bytes that are not yet terminated.
func (f *Framer) Pending() int {
	return len(f.buf)
}
