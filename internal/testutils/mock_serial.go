// Package testutils provides in-memory stand-ins for the serial link.
package testutils

import (
	"errors"
	"time"

	"Hydrosync/internal/syncutil"
)

// ErrMockPortClosed mimics the error a real port returns after Close.
var ErrMockPortClosed = errors.New("port closed")

// MockPort implements device.Port for tests.
type MockPort struct {
	ReadError  error
	WriteError error
	CloseError error
	TimeoutErr error
	ReadFunc   func(p []byte) (n int, err error)
	ReadData   []byte
	ReadIndex  int
	Timeout    time.Duration
	written    []byte
	closeCount int
	closed     bool
	mu         syncutil.RWMutex
}

// NewMockPort creates a mock port that returns data on successive reads.
func NewMockPort(data []byte) *MockPort {
	return &MockPort{ReadData: data}
}

// Read returns buffered data, then 0, nil once drained.
func (m *MockPort) Read(p []byte) (int, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return 0, ErrMockPortClosed
	}
	if fn := m.ReadFunc; fn != nil {
		m.mu.Unlock()
		return fn(p)
	}
	defer m.mu.Unlock()
	if m.ReadError != nil {
		return 0, m.ReadError
	}
	if m.ReadIndex >= len(m.ReadData) {
		return 0, nil
	}
	n := copy(p, m.ReadData[m.ReadIndex:])
	m.ReadIndex += n
	return n, nil
}

// Write records p unless WriteError is set.
func (m *MockPort) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrMockPortClosed
	}
	if m.WriteError != nil {
		return 0, m.WriteError
	}
	m.written = append(m.written, p...)
	return len(p), nil
}

// Close marks the port closed and counts the call.
func (m *MockPort) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.closeCount++
	return m.CloseError
}

// SetReadTimeout records t.
func (m *MockPort) SetReadTimeout(t time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Timeout = t
	return m.TimeoutErr
}

// Written returns a copy of everything written so far.
func (m *MockPort) Written() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]byte(nil), m.written...)
}

// CloseCount returns how many times Close was called.
func (m *MockPort) CloseCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closeCount
}

// IsClosed reports whether Close was called.
func (m *MockPort) IsClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}
