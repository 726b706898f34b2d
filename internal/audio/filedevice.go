package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// ErrDeviceStopped is returned when a FileDevice is used after Stop or
// before Start.
var ErrDeviceStopped = errors.New("audio device is not started")

// FileDevice is a Device whose input is a PCM WAV file. It produces audio
// only when Pump is called, so the caller decides how fast time passes.
// Audio pumped while suspended is consumed from the file and discarded, the
// way a live microphone keeps running while nobody listens.
type FileDevice struct {
	mu        sync.Mutex
	name      string
	format    Format
	r         io.ReadCloser
	sink      io.Writer
	running   bool
	suspended bool
	eof       bool
}

// OpenFileDevice opens the WAV file at path as a capture device.
func OpenFileDevice(path string) (*FileDevice, error) {
	f, err := os.Open(path) //nolint:gosec // path chosen by caller
	if err != nil {
		return nil, fmt.Errorf("failed to open audio input: %w", err)
	}
	h := make([]byte, HeaderSize)
	if _, err := io.ReadFull(f, h); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %v", ErrNotWAV, err)
	}
	format, err := ParseHeader(h)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &FileDevice{name: filepath.Base(path), format: format, r: f}, nil
}

// Name returns the input file name.
func (d *FileDevice) Name() string { return d.name }

// Format returns the PCM format of the input.
func (d *FileDevice) Format() Format { return d.format }

// Available reports whether input remains.
func (d *FileDevice) Available() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.r != nil && !d.eof
}

// Start begins delivering pumped audio to sink.
func (d *FileDevice) Start(sink io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.r == nil {
		return os.ErrClosed
	}
	d.sink = sink
	d.running = true
	d.suspended = false
	return nil
}

// Suspend pauses delivery.
func (d *FileDevice) Suspend() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		return ErrDeviceStopped
	}
	d.suspended = true
	return nil
}

// Resume continues delivery.
func (d *FileDevice) Resume() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		return ErrDeviceStopped
	}
	d.suspended = false
	return nil
}

// Stop ends delivery. The input stays open so a later Start continues where
// the file left off.
func (d *FileDevice) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.running = false
	d.sink = nil
	return nil
}

// Pump reads up to n bytes of input, rounded down to whole sample frames,
// and delivers them to the sink when capturing. It returns the number of
// bytes consumed from the input and io.EOF once the input is exhausted.
func (d *FileDevice) Pump(n int64) (int64, error) {
	d.mu.Lock()
	if d.r == nil || d.eof {
		d.mu.Unlock()
		return 0, io.EOF
	}
	n -= n % int64(d.format.BlockAlign())
	buf := make([]byte, n)
	read, err := io.ReadFull(d.r, buf)
	read -= read % d.format.BlockAlign()
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		d.eof = true
		err = nil
	}
	sink := d.sink
	if !d.running || d.suspended {
		sink = nil
	}
	d.mu.Unlock()

	if err != nil {
		return 0, fmt.Errorf("failed to read audio input: %w", err)
	}
	if sink != nil && read > 0 {
		if _, werr := sink.Write(buf[:read]); werr != nil {
			return int64(read), werr
		}
	}
	if d.exhausted() {
		return int64(read), io.EOF
	}
	return int64(read), nil
}

// Close releases the input file.
func (d *FileDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.r == nil {
		return nil
	}
	err := d.r.Close()
	d.r = nil
	d.running = false
	return err
}

func (d *FileDevice) exhausted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.eof
}
