package device

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"go.bug.st/serial"

	"Hydrosync/internal/model"
	"Hydrosync/internal/syncutil"
)

// Port is the subset of serial.Port used by SerialDevice, kept small so tests
// can substitute a mock.
type Port interface {
	Read(p []byte) (n int, err error)
	Write(p []byte) (n int, err error)
	Close() error
	SetReadTimeout(t time.Duration) error
}

// PortFactory opens a serial port.
type PortFactory func(path string, mode *serial.Mode) (Port, error)

// DefaultPortFactory opens real serial ports with go.bug.st/serial.
func DefaultPortFactory(path string, mode *serial.Mode) (Port, error) {
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port: %w", err)
	}
	return port, nil
}

// SerialDevice implements Conn over a serial port. Reads and writes are
// guarded by separate locks so a command write never waits behind a
// telemetry read.
type SerialDevice struct {
	port      Port
	dev       string
	baud      int
	readMu    syncutil.Mutex
	writeMu   syncutil.Mutex
	closeOnce sync.Once
	closeErr  error
	closed    atomic.Bool
}

// NewSerialDevice opens dev at baud with a bounded read timeout.
func NewSerialDevice(dev string, baud int, readTimeout time.Duration) (*SerialDevice, error) {
	return OpenWith(DefaultPortFactory, dev, baud, readTimeout)
}

// OpenWith opens dev through factory. Any failure is reported as
// ErrPortUnavailable.
func OpenWith(factory PortFactory, dev string, baud int, readTimeout time.Duration) (*SerialDevice, error) {
	p, err := factory(dev, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrPortUnavailable, dev, err)
	}
	if err := p.SetReadTimeout(readTimeout); err != nil {
		if cerr := p.Close(); cerr != nil {
			log.Warn().Err(cerr).Str("port", dev).Msg("failed to close port after setup error")
		}
		return nil, fmt.Errorf("%w: set read timeout on %s: %v", ErrPortUnavailable, dev, err)
	}
	return &SerialDevice{port: p, dev: dev, baud: baud}, nil
}

// DefaultOpener resolves "auto" through Discover and opens a SerialDevice.
func DefaultOpener(port string, baud int, readTimeout time.Duration) (Conn, error) {
	if port == model.AutoPort {
		found, err := Discover()
		if err != nil {
			return nil, err
		}
		log.Info().Str("port", found).Msg("auto-selected serial port")
		port = found
	}
	return NewSerialDevice(port, baud, readTimeout)
}

// Read reads whatever arrived within the read timeout. A timeout yields 0, nil.
func (s *SerialDevice) Read(buf []byte) (int, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}
	s.readMu.Lock()
	defer s.readMu.Unlock()

	n, err := s.port.Read(buf)
	if err != nil {
		if s.closed.Load() || isPortClosed(err) {
			return n, ErrClosed
		}
		return n, fmt.Errorf("%w: read %s: %v", ErrConnectionFailure, s.dev, err)
	}
	return n, nil
}

// Write writes all of p to the port.
func (s *SerialDevice) Write(p []byte) (int, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	written := 0
	for written < len(p) {
		n, err := s.port.Write(p[written:])
		written += n
		if err != nil {
			if s.closed.Load() || isPortClosed(err) {
				return written, ErrClosed
			}
			return written, fmt.Errorf("%w: write %s: %v", ErrConnectionFailure, s.dev, err)
		}
		if n == 0 {
			return written, fmt.Errorf("%w: write %s: no progress", ErrConnectionFailure, s.dev)
		}
	}
	return written, nil
}

// WriteLine writes line followed by '\n'.
func (s *SerialDevice) WriteLine(line string) error {
	_, err := s.Write(append([]byte(line), '\n'))
	return err
}

// Close closes the underlying port exactly once.
func (s *SerialDevice) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		if err := s.port.Close(); err != nil {
			s.closeErr = fmt.Errorf("close %s: %w", s.dev, err)
		}
	})
	return s.closeErr
}

// Name returns the device path.
func (s *SerialDevice) Name() string { return s.dev }

// Baud returns the configured symbol rate.
func (s *SerialDevice) Baud() int { return s.baud }

func isPortClosed(err error) bool {
	var pe *serial.PortError
	return errors.As(err, &pe) && pe.Code() == serial.PortClosed
}
