// Package recording defines the immutable container a finished session is
// written to: a header, the committed page list, the audio stream and the
// document snapshot.
package recording

import (
	"errors"
	"fmt"
	"time"

	"github.com/slidecast/slidecast/internal/audio"
	"github.com/slidecast/slidecast/internal/pagelog"
)

// Version is the container format revision written by this build.
const Version = 1

// Header summarizes a recording.
type Header struct {
	Version uint8
	// Duration is derived from the audio length and format.
	Duration time.Duration
	// AudioLength is the number of PCM data bytes, excluding the WAV header.
	AudioLength int64
	Format      audio.Format
	PageCount   int
}

// Recording is a finished session. It is never modified after assembly.
type Recording struct {
	Header   Header
	Pages    []*pagelog.Page
	Audio    []byte // complete WAV file
	Document []byte

	// Dropped lists action frames that could not be decoded when the
	// recording was read back.
	Dropped []error
}

// ErrNoAudio is returned when a recording is assembled without audio.
var ErrNoAudio = errors.New("recording has no audio")

// Assemble builds a Recording from its parts. wav is a WAV file whose header
// sizes may be stale; they are recomputed from its length, and the duration
// is derived from the result. Finalization and checkpoint recovery both go
// through Assemble so their output cannot differ.
func Assemble(pages []*pagelog.Page, wav, document []byte) (*Recording, error) {
	if len(wav) == 0 {
		return nil, ErrNoAudio
	}
	fixed, format, err := audio.RepairHeader(append([]byte(nil), wav...))
	if err != nil {
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}
	dataLen := int64(len(fixed) - audio.HeaderSize)

	return &Recording{
		Header: Header{
			Version:     Version,
			Duration:    format.Duration(dataLen).Truncate(time.Millisecond),
			AudioLength: dataLen,
			Format:      format,
			PageCount:   len(pages),
		},
		Pages:    pages,
		Audio:    fixed,
		Document: append([]byte(nil), document...),
	}, nil
}

// ActionCount returns the number of static and live actions across pages.
func (r *Recording) ActionCount() (static, live int) {
	for _, p := range r.Pages {
		static += len(p.Static)
		live += len(p.Live)
	}
	return static, live
}
