package log

import (
	"fmt"
	"io"
	"sync"
)

// Console prints the crawl's human progress lines. Regular lines go to the
// output writer and errors go to the error writer with an "ERROR: " prefix.
// Lines from concurrent workers are never interleaved.
type Console struct {
	mu     sync.Mutex
	out    io.Writer
	errOut io.Writer
}

// NewConsole creates a Console writing to out and errOut.
func NewConsole(out, errOut io.Writer) *Console {
	return &Console{out: out, errOut: errOut}
}

// Discard returns a Console that prints nothing.
func Discard() *Console {
	return NewConsole(io.Discard, io.Discard)
}

// Log prints a progress line.
func (c *Console) Log(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, msg) //nolint:errcheck // progress output is best effort
}

// Logf formats and prints a progress line.
func (c *Console) Logf(format string, args ...any) {
	c.Log(fmt.Sprintf(format, args...))
}

// Error prints msg to the error writer prefixed with "ERROR: ".
func (c *Console) Error(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.errOut, "ERROR: "+msg) //nolint:errcheck // progress output is best effort
}
