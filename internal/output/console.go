package output

import (
	"io"
	"os"
	"sync"
)

// Console serializes whole lines onto the diagnostic stream so lines from
// concurrent callbacks never interleave.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsole wraps w. A nil w means os.Stderr.
func NewConsole(w io.Writer) *Console {
	if w == nil {
		w = os.Stderr
	}
	return &Console{w: w}
}

// WriteLine writes line with a single Write call.
func (c *Console) WriteLine(line []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.w.Write(line)
	return err
}

// Writer exposes the underlying stream for bulk report output.
func (c *Console) Writer() io.Writer {
	return c.w
}
