package parser

import "bytes"

const (
	// Delimiter terminates every record on the wire.
	Delimiter = '\n'
	// MaxRecordLen bounds the undelimited residue kept between reads.
	MaxRecordLen = 64 * 1024
	trimSet      = " \t\r\n"
)

// Splitter reassembles newline-delimited records from arbitrarily sized
// chunks. A trailing partial record is kept until its delimiter arrives.
// It is owned by a single goroutine and is not safe for concurrent use.
type Splitter struct {
	buf       []byte
	overflows int
}

// NewSplitter returns an empty splitter.
func NewSplitter() *Splitter {
	return &Splitter{buf: make([]byte, 0, 1024)}
}

// Append adds a chunk read from the connection.
func (s *Splitter) Append(chunk []byte) {
	s.buf = append(s.buf, chunk...)
}

// TakeFrames removes and returns every complete record currently buffered,
// in arrival order, trimmed of surrounding whitespace. Empty records are
// skipped. If the residue grows past MaxRecordLen without a delimiter it is
// discarded and counted as an overflow.
func (s *Splitter) TakeFrames() [][]byte {
	var frames [][]byte
	start := 0
	for {
		k := bytes.IndexByte(s.buf[start:], Delimiter)
		if k < 0 {
			break
		}
		rec := bytes.Trim(s.buf[start:start+k], trimSet)
		if len(rec) > 0 {
			frames = append(frames, bytes.Clone(rec))
		}
		start += k + 1
	}
	if start > 0 {
		n := copy(s.buf, s.buf[start:])
		s.buf = s.buf[:n]
	}
	if len(s.buf) > MaxRecordLen {
		s.buf = s.buf[:0]
		s.overflows++
	}
	return frames
}

// Feed is Append followed by TakeFrames.
func (s *Splitter) Feed(chunk []byte) [][]byte {
	s.Append(chunk)
	return s.TakeFrames()
}

// Pending returns the size of the buffered partial record.
func (s *Splitter) Pending() int {
	return len(s.buf)
}

// Overflows returns how many oversized partial records were discarded.
func (s *Splitter) Overflows() int {
	return s.overflows
}

// Reset drops any partial record, e.g. after the connection was reopened.
func (s *Splitter) Reset() {
	s.buf = s.buf[:0]
}
