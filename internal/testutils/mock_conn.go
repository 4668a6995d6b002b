package testutils

import (
	"time"

	"Hydrosync/internal/device"
	"Hydrosync/internal/syncutil"
)

// MockConn implements device.Conn. Each Read returns the next scripted chunk
// or error; once the script is exhausted reads return 0, nil after a short
// pause, like a serial port with a read timeout.
type MockConn struct {
	script     []readStep
	written    [][]byte
	WriteError error
	// WriteFunc, when set, runs before each write without holding the lock.
	// A non-nil error fails the write.
	WriteFunc  func(p []byte) error
	Idle       time.Duration
	closeCount int
	closed     bool
	reads      int
	mu         syncutil.Mutex
}

type readStep struct {
	err  error
	data []byte
}

// NewMockConn returns a conn that yields chunks on successive reads.
func NewMockConn(chunks ...string) *MockConn {
	c := &MockConn{Idle: time.Millisecond}
	for _, ch := range chunks {
		c.script = append(c.script, readStep{data: []byte(ch)})
	}
	return c
}

// QueueChunk appends a chunk to the read script.
func (c *MockConn) QueueChunk(chunk string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.script = append(c.script, readStep{data: []byte(chunk)})
}

// QueueError appends a read error to the read script.
func (c *MockConn) QueueError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.script = append(c.script, readStep{err: err})
}

// Read implements device.Conn.
func (c *MockConn) Read(buf []byte) (int, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return 0, device.ErrClosed
	}
	if len(c.script) == 0 {
		idle := c.Idle
		c.mu.Unlock()
		time.Sleep(idle)
		return 0, nil
	}
	step := c.script[0]
	if step.err == nil && len(step.data) > len(buf) {
		c.script[0].data = step.data[len(buf):]
		step.data = step.data[:len(buf)]
	} else {
		c.script = c.script[1:]
	}
	c.reads++
	c.mu.Unlock()
	if step.err != nil {
		return 0, step.err
	}
	return copy(buf, step.data), nil
}

// Write implements device.Conn.
func (c *MockConn) Write(p []byte) (int, error) {
	c.mu.Lock()
	fn := c.WriteFunc
	c.mu.Unlock()
	if fn != nil {
		if err := fn(p); err != nil {
			return 0, err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, device.ErrClosed
	}
	if c.WriteError != nil {
		return 0, c.WriteError
	}
	c.written = append(c.written, append([]byte(nil), p...))
	return len(p), nil
}

// Close implements device.Conn.
func (c *MockConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.closeCount++
	return nil
}

// Writes returns every write in order.
func (c *MockConn) Writes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.written))
	for i, w := range c.written {
		out[i] = string(w)
	}
	return out
}

// Pending returns how many scripted reads remain.
func (c *MockConn) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.script)
}

// CloseCount returns how many times Close was called.
func (c *MockConn) CloseCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeCount
}
