package action

import (
	"encoding/binary"
	"errors"
	"io"
)

// Decoder reads consecutive frames from a stream.
type Decoder struct {
	r   io.Reader
	off int64
	buf []byte
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

// Next returns the next action. It returns io.EOF when the stream ends on a
// frame boundary and ErrTruncatedFrame when it ends inside one. A
// *DecodeError leaves the decoder positioned at the following frame.
func (d *Decoder) Next() (Action, error) {
	var prefix [lengthSize]byte
	if _, err := io.ReadFull(d.r, prefix[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrTruncatedFrame
		}
		return nil, err
	}

	n := binary.BigEndian.Uint32(prefix[:])
	if n > MaxFrameSize {
		return nil, ErrFrameTooLarge
	}
	if cap(d.buf) < int(n) {
		d.buf = make([]byte, n)
	}
	frame := d.buf[:n]
	if _, err := io.ReadFull(d.r, frame); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrTruncatedFrame
		}
		return nil, err
	}

	offset := d.off
	d.off += int64(lengthSize) + int64(n)

	if n < HeaderSize {
		return nil, &DecodeError{Offset: offset, Err: ErrShortPayload}
	}
	a, err := Decode(Type(frame[0]), binary.BigEndian.Uint32(frame[1:5]), frame[5:])
	if err != nil {
		var de *DecodeError
		if errors.As(err, &de) {
			de.Offset = offset
		}
		return nil, err
	}
	return a, nil
}

// Offset returns the stream position of the next frame.
func (d *Decoder) Offset() int64 {
	return d.off
}

// ReadAll decodes every frame in data. Malformed frames are skipped and
// reported; a truncated tail stops decoding and is reported last.
func ReadAll(data []byte) ([]Action, []error) {
	var (
		actions []Action
		errs    []error
		off     int
	)
	for off < len(data) {
		a, size, err := DecodeFrame(data[off:])
		if err != nil {
			var de *DecodeError
			if errors.As(err, &de) {
				de.Offset = int64(off)
				errs = append(errs, de)
				off += size
				continue
			}
			errs = append(errs, &DecodeError{Offset: int64(off), Err: err})
			break
		}
		actions = append(actions, a)
		off += size
	}
	return actions, errs
}

// EncodeAll concatenates the frames of every action.
func EncodeAll(actions []Action) []byte {
	var out []byte
	for _, a := range actions {
		out = AppendEncode(out, a)
	}
	return out
}
