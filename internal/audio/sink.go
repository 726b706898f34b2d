package audio

import (
	"io"
	"sync"
)

// Device is an audio capture device. Captured PCM is written to the sink
// passed to Start until Stop; Suspend and Resume pause delivery.
type Device interface {
	Name() string
	Available() bool
	Start(sink io.Writer) error
	Suspend() error
	Resume() error
	Stop() error
}

// CountingSink forwards captured audio to a backing file and an optional
// mixer, counting the bytes consumed. The count is the recording clock.
type CountingSink struct {
	mu     sync.Mutex
	format Format
	out    io.Writer
	mixer  io.Writer
	n      int64
}

// NewCountingSink returns a sink writing to out and, if non-nil, mixer.
func NewCountingSink(format Format, out, mixer io.Writer) *CountingSink {
	return &CountingSink{format: format, out: out, mixer: mixer}
}

// Write implements io.Writer. A mixer failure does not fail the write; the
// backing file is what the recording is built from.
func (s *CountingSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.out.Write(p)
	s.n += int64(n)
	if s.mixer != nil && n > 0 {
		_, _ = s.mixer.Write(p[:n])
	}
	return n, err
}

// Bytes returns the number of bytes consumed.
func (s *CountingSink) Bytes() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}

// Elapsed returns the recorded time in milliseconds.
func (s *CountingSink) Elapsed() uint32 {
	return s.format.Millis(s.Bytes())
}

// Format returns the PCM format the sink counts in.
func (s *CountingSink) Format() Format {
	return s.format
}

// Reset zeroes the byte count.
func (s *CountingSink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n = 0
}
