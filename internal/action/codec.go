package action

import (
	"encoding/binary"
	"math"
)

// Frame layout, all integers big-endian:
//
//	[length:4][type:1][timestamp:4][flags:4]
//	  (flags&FlagKey) [key code:4][modifiers:4][kind:1]
//	  [payload...]
//
// length covers every byte after itself. Strings are a 4-byte length
// followed by UTF-8 bytes.
const (
	lengthSize = 4
	// HeaderSize is the fixed part of a frame following the length prefix.
	HeaderSize = 1 + 4 + 4
	keySize    = 4 + 4 + 1

	// MaxFrameSize bounds the length prefix accepted by the decoder.
	MaxFrameSize = 16 << 20
)

// FlagKey marks a frame carrying a key-context block.
const FlagKey uint32 = 1 << 0

// Encode serializes a into a single self-describing frame.
func Encode(a Action) []byte {
	return AppendEncode(nil, a)
}

// AppendEncode appends the frame for a to dst and returns the extended slice.
func AppendEncode(dst []byte, a Action) []byte {
	start := len(dst)
	h := a.Header()

	dst = binary.BigEndian.AppendUint32(dst, 0) // patched below
	dst = append(dst, byte(a.Type()))
	dst = binary.BigEndian.AppendUint32(dst, h.Timestamp)

	var flags uint32
	if h.Key != nil {
		flags |= FlagKey
	}
	dst = binary.BigEndian.AppendUint32(dst, flags)
	if h.Key != nil {
		dst = binary.BigEndian.AppendUint32(dst, uint32(h.Key.Code))
		dst = binary.BigEndian.AppendUint32(dst, h.Key.Modifiers)
		dst = append(dst, byte(h.Key.Kind))
	}

	w := writer{buf: dst}
	encodePayload(&w, a)
	dst = w.buf

	binary.BigEndian.PutUint32(dst[start:], uint32(len(dst)-start-lengthSize))
	return dst
}

func encodePayload(w *writer, a Action) {
	switch v := a.(type) {
	case *NextPage, *PreviousPage, *ZoomOut, *DeleteAll, *Undo, *Redo,
		*Clone, *Select, *SelectGroup:
	case *SelectPage:
		w.i32(v.Page)
	case *ExtendView:
		w.rect(v.Rect)
	case *ToolBegin:
		w.point(v.Point)
	case *ToolExecute:
		w.point(v.Point)
	case *ToolEnd:
		w.point(v.Point)
	case *Pen:
		w.stroke(v.Stroke)
	case *Highlighter:
		w.stroke(v.Stroke)
	case *Pointer:
		w.stroke(v.Stroke)
	case *Arrow:
		w.stroke(v.Stroke)
	case *Line:
		w.stroke(v.Stroke)
	case *Rectangle:
		w.stroke(v.Stroke)
	case *Ellipse:
		w.stroke(v.Stroke)
	case *Rubber:
		w.i32(v.Handle)
	case *Text:
		w.i32(v.Handle)
	case *TextChange:
		w.i32(v.Handle)
		w.str(v.Text)
	case *TextFont:
		w.i32(v.Handle)
		w.str(v.Family)
		w.f32(v.Size)
		w.u32(v.Color)
		w.u8(bits(v.Bold, v.Italic))
		w.u8(bits(v.Underline, v.Strikethrough))
	case *TextRemove:
		w.i32(v.Handle)
	case *Zoom:
		w.rect(v.Rect)
	case *Panning:
		w.rect(v.Rect)
	case *DocumentOpen:
		w.i32(v.DocumentID)
		w.str(v.Title)
	case *DocumentClose:
		w.i32(v.DocumentID)
	case *DocumentSelect:
		w.i32(v.DocumentID)
	case *ScreenCapture:
		w.str(v.File)
		w.u32(v.Offset)
		w.u32(v.Length)
		w.i32(v.Width)
		w.i32(v.Height)
	}
}

// Decode reconstructs an action of kind t from the bytes that follow the
// timestamp in a frame: the flags word, the optional key block, and the
// type-specific payload.
//
// Payloads written by older format revisions may omit trailing fields; those
// decode as zero values. Bytes beyond the fields this build knows are ignored.
func Decode(t Type, timestamp uint32, body []byte) (Action, error) {
	a := New(t)
	if a == nil {
		return nil, &DecodeError{Type: t, Err: ErrUnknownType}
	}

	r := reader{buf: body}
	flags := r.u32()
	h := a.Header()
	h.Timestamp = timestamp
	if flags&FlagKey != 0 {
		key := KeyEvent{
			Code:      r.i32(),
			Modifiers: r.u32(),
			Kind:      KeyKind(r.u8()),
		}
		h.Key = &key
	}
	if r.err != nil {
		return nil, &DecodeError{Type: t, Err: r.err}
	}

	decodePayload(&r, a)
	if r.err != nil {
		return nil, &DecodeError{Type: t, Err: r.err}
	}
	return a, nil
}

// Mandatory fields are read first; each optional trailing field is read only
// when enough bytes remain, in declaration order.
func decodePayload(r *reader, a Action) {
	switch v := a.(type) {
	case *NextPage, *PreviousPage, *ZoomOut, *DeleteAll, *Undo, *Redo,
		*Clone, *Select, *SelectGroup:
	case *SelectPage:
		v.Page = r.i32()
	case *ExtendView:
		v.Rect = r.rect()
	case *ToolBegin:
		v.Point = r.point()
	case *ToolExecute:
		v.Point = r.point()
	case *ToolEnd:
		v.Point = r.point()
	case *Pen:
		v.Stroke = r.stroke()
	case *Highlighter:
		v.Stroke = r.stroke()
	case *Pointer:
		v.Stroke = r.stroke()
	case *Arrow:
		v.Stroke = r.stroke()
	case *Line:
		v.Stroke = r.stroke()
	case *Rectangle:
		v.Stroke = r.stroke()
	case *Ellipse:
		v.Stroke = r.stroke()
	case *Rubber:
		v.Handle = r.i32()
	case *Text:
		v.Handle = r.i32()
	case *TextChange:
		v.Handle = r.i32()
		v.Text = r.str()
	case *TextFont:
		v.Handle = r.i32()
		v.Family = r.str()
		v.Size = r.f32()
		v.Color = r.u32()
		v.Bold, v.Italic = unbits(r.u8())
		if r.remaining() >= 1 {
			v.Underline, v.Strikethrough = unbits(r.u8())
		}
	case *TextRemove:
		v.Handle = r.i32()
	case *Zoom:
		v.Rect = r.rect()
	case *Panning:
		v.Rect = r.rect()
	case *DocumentOpen:
		v.DocumentID = r.i32()
		v.Title = r.str()
	case *DocumentClose:
		v.DocumentID = r.i32()
	case *DocumentSelect:
		v.DocumentID = r.i32()
	case *ScreenCapture:
		v.File = r.str()
		v.Offset = r.u32()
		v.Length = r.u32()
		if r.remaining() >= 8 {
			v.Width = r.i32()
			v.Height = r.i32()
		}
	}
}

// DecodeFrame decodes the frame at the start of data. The returned size is
// the number of bytes the frame occupies; it is valid alongside a
// *DecodeError so callers can skip the bad frame and continue.
// ErrTruncatedFrame is returned with size 0 when the frame is cut off.
func DecodeFrame(data []byte) (Action, int, error) {
	if len(data) < lengthSize {
		return nil, 0, ErrTruncatedFrame
	}
	n := binary.BigEndian.Uint32(data)
	if n > MaxFrameSize {
		return nil, 0, ErrFrameTooLarge
	}
	size := lengthSize + int(n)
	if len(data) < size {
		return nil, 0, ErrTruncatedFrame
	}
	if n < HeaderSize {
		return nil, size, &DecodeError{Err: ErrShortPayload}
	}
	frame := data[lengthSize:size]
	t := Type(frame[0])
	ts := binary.BigEndian.Uint32(frame[1:5])
	a, err := Decode(t, ts, frame[5:])
	return a, size, err
}

type writer struct {
	buf []byte
}

func (w *writer) u8(v uint8)    { w.buf = append(w.buf, v) }
func (w *writer) u32(v uint32)  { w.buf = binary.BigEndian.AppendUint32(w.buf, v) }
func (w *writer) i32(v int32)   { w.u32(uint32(v)) }
func (w *writer) f32(v float32) { w.u32(math.Float32bits(v)) }

func (w *writer) str(s string) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, uint32(len(s)))
	w.buf = append(w.buf, s...)
}

func (w *writer) point(p Point) {
	w.f32(p.X)
	w.f32(p.Y)
	w.f32(p.Pressure)
}

func (w *writer) rect(r Rect) {
	w.f32(r.X)
	w.f32(r.Y)
	w.f32(r.Width)
	w.f32(r.Height)
}

func (w *writer) stroke(s Stroke) {
	w.i32(s.Handle)
	w.u32(s.Color)
	w.f32(s.Width)
	w.u32(s.Style)
}

// reader consumes a payload. The first short read sets err and every later
// read returns zero, so a decode function can read all mandatory fields and
// check err once.
type reader struct {
	buf []byte
	off int
	err error
}

func (r *reader) remaining() int { return len(r.buf) - r.off }

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.remaining() < n {
		r.err = ErrShortPayload
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) u8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) u32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func (r *reader) i32() int32   { return int32(r.u32()) }
func (r *reader) f32() float32 { return math.Float32frombits(r.u32()) }

func (r *reader) str() string {
	n := r.u32()
	if r.err != nil {
		return ""
	}
	return string(r.take(int(n)))
}

func (r *reader) point() Point {
	p := Point{X: r.f32(), Y: r.f32()}
	if r.err == nil && r.remaining() >= 4 {
		p.Pressure = r.f32()
	}
	return p
}

func (r *reader) rect() Rect {
	return Rect{X: r.f32(), Y: r.f32(), Width: r.f32(), Height: r.f32()}
}

func (r *reader) stroke() Stroke {
	s := Stroke{Handle: r.i32(), Color: r.u32(), Width: r.f32()}
	if r.err == nil && r.remaining() >= 4 {
		s.Style = r.u32()
	}
	return s
}

func bits(a, b bool) uint8 {
	var v uint8
	if a {
		v |= 1
	}
	if b {
		v |= 2
	}
	return v
}

func unbits(v uint8) (bool, bool) {
	return v&1 != 0, v&2 != 0
}
