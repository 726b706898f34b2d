package recording

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/slidecast/slidecast/internal/audio"
	"github.com/slidecast/slidecast/internal/pagelog"
)

// Container layout, all integers big-endian:
//
//	"SCRC" [version:1]
//	[duration ms:8] [audio length:8] [sample rate:4] [channels:2] [bits:2] [pages:4]
//	[events:8 + bytes] [audio:8 + bytes] [document:8 + bytes]
//	[crc32 of everything above:4]
const magic = "SCRC"

const fixedHeaderSize = 4 + 1 + 8 + 8 + 4 + 2 + 2 + 4

var (
	// ErrBadMagic is returned for data that is not a recording container.
	ErrBadMagic = errors.New("not a recording container")
	// ErrUnsupportedVersion is returned for a container revision this build
	// cannot read.
	ErrUnsupportedVersion = errors.New("unsupported recording version")
	// ErrChecksumMismatch is returned when the trailing checksum does not
	// match the container contents.
	ErrChecksumMismatch = errors.New("recording checksum mismatch")
	// ErrTruncated is returned when the container ends early.
	ErrTruncated = errors.New("recording truncated")
)

// Write serializes rec to w.
func Write(w io.Writer, rec *Recording) error {
	if rec == nil {
		return fmt.Errorf("recording cannot be nil")
	}
	crc := crc32.NewIEEE()
	mw := io.MultiWriter(w, crc)

	h := make([]byte, 0, fixedHeaderSize)
	h = append(h, magic...)
	h = append(h, Version)
	h = binary.BigEndian.AppendUint64(h, uint64(rec.Header.Duration.Milliseconds()))
	h = binary.BigEndian.AppendUint64(h, uint64(rec.Header.AudioLength))
	h = binary.BigEndian.AppendUint32(h, uint32(rec.Header.Format.SampleRate))
	h = binary.BigEndian.AppendUint16(h, uint16(rec.Header.Format.Channels))
	h = binary.BigEndian.AppendUint16(h, uint16(rec.Header.Format.BitsPerSample))
	h = binary.BigEndian.AppendUint32(h, uint32(len(rec.Pages)))
	if _, err := mw.Write(h); err != nil {
		return err
	}

	for _, section := range [][]byte{pagelog.MarshalPages(rec.Pages), rec.Audio, rec.Document} {
		if err := writeSection(mw, section); err != nil {
			return err
		}
	}

	_, err := w.Write(binary.BigEndian.AppendUint32(nil, crc.Sum32()))
	return err
}

// Read parses a container, verifying its checksum.
func Read(r io.Reader) (*Recording, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(data) < len(magic) || !bytes.Equal(data[:len(magic)], []byte(magic)) {
		return nil, ErrBadMagic
	}
	if len(data) < fixedHeaderSize+4 {
		return nil, ErrTruncated
	}
	if v := data[4]; v != Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}

	body, sum := data[:len(data)-4], binary.BigEndian.Uint32(data[len(data)-4:])
	if crc32.ChecksumIEEE(body) != sum {
		return nil, ErrChecksumMismatch
	}

	rec := &Recording{}
	off := 5
	rec.Header.Version = data[4]
	rec.Header.Duration = time.Duration(binary.BigEndian.Uint64(body[off:])) * time.Millisecond
	rec.Header.AudioLength = int64(binary.BigEndian.Uint64(body[off+8:]))
	rec.Header.Format = audio.Format{
		SampleRate:    int(binary.BigEndian.Uint32(body[off+16:])),
		Channels:      int(binary.BigEndian.Uint16(body[off+20:])),
		BitsPerSample: int(binary.BigEndian.Uint16(body[off+22:])),
	}
	rec.Header.PageCount = int(binary.BigEndian.Uint32(body[off+24:]))
	off = fixedHeaderSize

	var sections [3][]byte
	for i := range sections {
		if len(body)-off < 8 {
			return nil, ErrTruncated
		}
		n := binary.BigEndian.Uint64(body[off:])
		off += 8
		if uint64(len(body)-off) < n {
			return nil, ErrTruncated
		}
		if n > 0 {
			sections[i] = body[off : off+int(n)]
		}
		off += int(n)
	}

	pages, dropped, err := pagelog.DecodePages(sections[0])
	if err != nil {
		return nil, fmt.Errorf("failed to decode pages: %w", err)
	}
	rec.Pages = pages
	rec.Dropped = dropped
	rec.Audio = sections[1]
	rec.Document = sections[2]
	return rec, nil
}

// WriteFile writes rec to path atomically: the container is written to a
// temporary file in the same directory and renamed into place.
func WriteFile(path string, rec *Recording) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmpFile := path + ".tmp"
	f, err := os.OpenFile(tmpFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600) //nolint:gosec // path chosen by caller
	if err != nil {
		return fmt.Errorf("failed to create temp recording file: %w", err)
	}
	if err := Write(f, rec); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpFile)
		return fmt.Errorf("failed to write recording: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpFile)
		return fmt.Errorf("failed to sync recording: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpFile)
		return fmt.Errorf("failed to close recording: %w", err)
	}

	if err := os.Rename(tmpFile, path); err != nil {
		_ = os.Remove(tmpFile)
		return fmt.Errorf("failed to rename recording file: %w", err)
	}
	return nil
}

// ReadFile reads the container at path.
func ReadFile(path string) (*Recording, error) {
	f, err := os.Open(path) //nolint:gosec // path chosen by caller
	if err != nil {
		return nil, fmt.Errorf("failed to open recording: %w", err)
	}
	defer func() { _ = f.Close() }()

	rec, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return rec, nil
}

func writeSection(w io.Writer, data []byte) error {
	if _, err := w.Write(binary.BigEndian.AppendUint64(nil, uint64(len(data)))); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}
