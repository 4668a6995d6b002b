// Package device owns the duplex byte link to the bench firmware: opening
// the serial port, bounded-timeout reads, serialized writes and a firmware
// simulator for running the station without hardware.
package device

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrPortUnavailable is returned when no device could be found or opened.
	ErrPortUnavailable = errors.New("serial port unavailable")
	// ErrConnectionFailure marks a read or write error on an open link.
	ErrConnectionFailure = errors.New("serial connection failure")
	// ErrClosed is returned by reads and writes after Close.
	ErrClosed = fmt.Errorf("%w: connection closed", ErrConnectionFailure)
)

// Conn is an open duplex byte channel to the device.
// Read and Write may be called concurrently from different goroutines.
type Conn interface {
	// Read fills buf with whatever bytes arrived within the read timeout.
	// It returns 0, nil when nothing arrived.
	Read(buf []byte) (int, error)

	// Write writes all of p.
	Write(p []byte) (int, error)

	// Close closes the link. Only the first call has any effect.
	Close() error
}

// Opener opens a connection to the named port. The port "auto" selects the
// first suitable port found on the system.
type Opener func(port string, baud int, readTimeout time.Duration) (Conn, error)
