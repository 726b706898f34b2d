package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// HeaderSize is the size of the canonical 44-byte PCM WAV header.
const HeaderSize = 44

const pcmFormatTag = 1

var (
	// ErrNotWAV is returned for data without a RIFF/WAVE header.
	ErrNotWAV = errors.New("not a WAV file")
	// ErrUnsupportedWAV is returned for WAV data that is not plain PCM.
	ErrUnsupportedWAV = errors.New("unsupported WAV encoding")
)

// Header builds the canonical PCM WAV header for dataLen bytes of samples.
func Header(f Format, dataLen int64) []byte {
	h := make([]byte, HeaderSize)
	copy(h[0:4], "RIFF")
	binary.LittleEndian.PutUint32(h[4:8], clampSize(dataLen+HeaderSize-8))
	copy(h[8:12], "WAVE")
	copy(h[12:16], "fmt ")
	binary.LittleEndian.PutUint32(h[16:20], 16)
	binary.LittleEndian.PutUint16(h[20:22], pcmFormatTag)
	binary.LittleEndian.PutUint16(h[22:24], uint16(f.Channels))
	binary.LittleEndian.PutUint32(h[24:28], uint32(f.SampleRate))
	binary.LittleEndian.PutUint32(h[28:32], uint32(f.BytesPerSecond()))
	binary.LittleEndian.PutUint16(h[32:34], uint16(f.BlockAlign()))
	binary.LittleEndian.PutUint16(h[34:36], uint16(f.BitsPerSample))
	copy(h[36:40], "data")
	binary.LittleEndian.PutUint32(h[40:44], clampSize(dataLen))
	return h
}

// PlaceholderHeader is written at the start of an audio file whose length is
// not yet known. RepairHeader fixes the sizes once capture ends.
func PlaceholderHeader(f Format) []byte {
	return Header(f, 0)
}

// WriteHeader writes the header for dataLen bytes of samples to w.
func WriteHeader(w io.Writer, f Format, dataLen int64) error {
	_, err := w.Write(Header(f, dataLen))
	return err
}

// ParseHeader reads the format from a canonical PCM WAV header.
func ParseHeader(h []byte) (Format, error) {
	if len(h) < HeaderSize || string(h[0:4]) != "RIFF" || string(h[8:12]) != "WAVE" || string(h[12:16]) != "fmt " {
		return Format{}, ErrNotWAV
	}
	if tag := binary.LittleEndian.Uint16(h[20:22]); tag != pcmFormatTag {
		return Format{}, fmt.Errorf("%w: format tag %d", ErrUnsupportedWAV, tag)
	}
	if string(h[36:40]) != "data" {
		return Format{}, fmt.Errorf("%w: data chunk not at offset 36", ErrUnsupportedWAV)
	}
	f := Format{
		Channels:      int(binary.LittleEndian.Uint16(h[22:24])),
		SampleRate:    int(binary.LittleEndian.Uint32(h[24:28])),
		BitsPerSample: int(binary.LittleEndian.Uint16(h[34:36])),
	}
	if err := f.Validate(); err != nil {
		return Format{}, fmt.Errorf("%w: %v", ErrUnsupportedWAV, err)
	}
	return f, nil
}

// RepairHeader rewrites the RIFF and data sizes of wav in place to match its
// actual length, dropping a trailing partial sample frame. It returns the
// repaired slice and its format.
func RepairHeader(wav []byte) ([]byte, Format, error) {
	f, err := ParseHeader(wav)
	if err != nil {
		return nil, Format{}, err
	}
	dataLen := int64(len(wav) - HeaderSize)
	dataLen -= dataLen % int64(f.BlockAlign())
	wav = wav[:HeaderSize+dataLen]
	copy(wav, Header(f, dataLen))
	return wav, f, nil
}

// Info describes a finished audio file.
type Info struct {
	Format    Format
	DataBytes int64
	Duration  time.Duration
}

// ReadInfo reads the format of the WAV file at path and derives its
// duration from the file length rather than the header sizes, which are
// stale when capture was interrupted.
func ReadInfo(path string) (Info, error) {
	f, err := os.Open(path) //nolint:gosec // path chosen by caller
	if err != nil {
		return Info{}, err
	}
	defer func() { _ = f.Close() }()

	h := make([]byte, HeaderSize)
	if _, err := io.ReadFull(f, h); err != nil {
		return Info{}, fmt.Errorf("%w: %v", ErrNotWAV, err)
	}
	format, err := ParseHeader(h)
	if err != nil {
		return Info{}, err
	}
	st, err := f.Stat()
	if err != nil {
		return Info{}, err
	}
	n := st.Size() - HeaderSize
	n -= n % int64(format.BlockAlign())
	return Info{Format: format, DataBytes: n, Duration: format.Duration(n)}, nil
}

func clampSize(n int64) uint32 {
	if n < 0 {
		return 0
	}
	if n > 0xffffffff {
		return 0xffffffff
	}
	return uint32(n)
}
