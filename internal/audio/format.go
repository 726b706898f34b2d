// Package audio covers the parts of audio handling the recorder owns: the
// PCM format, WAV header construction and repair, and the byte-counting sink
// that turns captured audio into elapsed recording time.
package audio

import (
	"errors"
	"fmt"
	"time"
)

// Format describes interleaved linear PCM.
type Format struct {
	SampleRate    int `yaml:"sample_rate" toml:"sample_rate" json:"sample_rate"`
	Channels      int `yaml:"channels" toml:"channels" json:"channels"`
	BitsPerSample int `yaml:"bits_per_sample" toml:"bits_per_sample" json:"bits_per_sample"`
}

// DefaultFormat is 44.1 kHz mono 16-bit.
var DefaultFormat = Format{SampleRate: 44100, Channels: 1, BitsPerSample: 16}

// Validate checks that f describes a supported PCM layout.
func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return errors.New("sample rate must be positive")
	}
	if f.Channels < 1 || f.Channels > 8 {
		return fmt.Errorf("channels must be in range 1-8, got %d", f.Channels)
	}
	switch f.BitsPerSample {
	case 8, 16, 24, 32:
	default:
		return fmt.Errorf("bits per sample must be 8, 16, 24 or 32, got %d", f.BitsPerSample)
	}
	return nil
}

// BlockAlign is the size of one sample frame across all channels.
func (f Format) BlockAlign() int {
	return f.Channels * f.BitsPerSample / 8
}

// BytesPerSecond is the data rate of f.
func (f Format) BytesPerSecond() int64 {
	return int64(f.SampleRate) * int64(f.BlockAlign())
}

// Duration converts a PCM byte count to playback time.
func (f Format) Duration(n int64) time.Duration {
	bps := f.BytesPerSecond()
	if bps <= 0 || n <= 0 {
		return 0
	}
	return time.Duration(n * int64(time.Second) / bps)
}

// Millis converts a PCM byte count to whole milliseconds.
func (f Format) Millis(n int64) uint32 {
	bps := f.BytesPerSecond()
	if bps <= 0 || n <= 0 {
		return 0
	}
	return uint32(n * 1000 / bps)
}

// Bytes converts a duration to the PCM byte count it occupies, rounded down
// to whole sample frames.
func (f Format) Bytes(d time.Duration) int64 {
	block := int64(f.BlockAlign())
	if block <= 0 || d <= 0 {
		return 0
	}
	frames := int64(d) * int64(f.SampleRate) / int64(time.Second)
	return frames * block
}

func (f Format) String() string {
	return fmt.Sprintf("%d Hz, %d ch, %d bit", f.SampleRate, f.Channels, f.BitsPerSample)
}
