package pagelog

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/slidecast/slidecast/internal/action"
)

// Event list layout, all integers big-endian:
//
//	"SCEV" [version:1] [pages:4]
//	per page:
//	  [number:4] [timestamp:4] [document:str] [page number:4] [uid:str]
//	  [static bytes:4] static frames... [live bytes:4] live frames...
//
// Strings are a 4-byte length followed by UTF-8 bytes. Version 1 used a
// 2-byte length and is no longer read.
const (
	eventsMagic   = "SCEV"
	EventsVersion = 2
)

var (
	// ErrBadEventList is returned when event list data is not recognizable.
	ErrBadEventList = errors.New("malformed event list")
)

// MarshalPages serializes pages to the event list format.
func MarshalPages(pages []*Page) []byte {
	buf := make([]byte, 0, 64)
	buf = append(buf, eventsMagic...)
	buf = append(buf, EventsVersion)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(pages)))

	for _, p := range pages {
		buf = binary.BigEndian.AppendUint32(buf, uint32(p.Number))
		buf = binary.BigEndian.AppendUint32(buf, p.Timestamp)
		buf = appendString(buf, p.Ref.DocumentID)
		buf = binary.BigEndian.AppendUint32(buf, uint32(int32(p.Ref.Number)))
		buf = appendString(buf, p.Ref.UID)
		buf = appendSection(buf, p.Static)
		buf = appendSection(buf, p.Live)
	}
	return buf
}

// EncodePages writes pages to w in the event list format.
func EncodePages(w io.Writer, pages []*Page) error {
	_, err := w.Write(MarshalPages(pages))
	return err
}

// DecodePages parses an event list. Malformed action frames are dropped and
// returned in frameErrs; a structural problem with the list itself is
// returned as err together with the pages decoded before it.
func DecodePages(data []byte) (pages []*Page, frameErrs []error, err error) {
	if len(data) < len(eventsMagic)+1+4 || !bytes.Equal(data[:4], []byte(eventsMagic)) {
		return nil, nil, ErrBadEventList
	}
	if v := data[4]; v != EventsVersion {
		return nil, nil, fmt.Errorf("%w: unsupported version %d", ErrBadEventList, v)
	}
	r := &cursor{buf: data, off: 5}
	count := r.u32()

	for i := uint32(0); i < count; i++ {
		p := &Page{
			Number:    int(r.u32()),
			Timestamp: r.u32(),
		}
		p.Ref.DocumentID = r.str()
		p.Ref.Number = int(int32(r.u32()))
		p.Ref.UID = r.str()
		static := r.section()
		live := r.section()
		if r.err != nil {
			return pages, frameErrs, fmt.Errorf("%w: page %d: %v", ErrBadEventList, i, r.err)
		}

		var errs []error
		p.Static, errs = action.ReadAll(static)
		frameErrs = append(frameErrs, errs...)
		p.Live, errs = action.ReadAll(live)
		frameErrs = append(frameErrs, errs...)
		pages = append(pages, p)
	}
	return pages, frameErrs, nil
}

func appendString(buf []byte, s string) []byte {
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(s)))
	return append(buf, s...)
}

func appendSection(buf []byte, actions []action.Action) []byte {
	at := len(buf)
	buf = binary.BigEndian.AppendUint32(buf, 0)
	for _, a := range actions {
		buf = action.AppendEncode(buf, a)
	}
	binary.BigEndian.PutUint32(buf[at:], uint32(len(buf)-at-4))
	return buf
}

type cursor struct {
	buf []byte
	off int
	err error
}

func (c *cursor) take(n int) []byte {
	if c.err != nil {
		return nil
	}
	if len(c.buf)-c.off < n {
		c.err = io.ErrUnexpectedEOF
		return nil
	}
	b := c.buf[c.off : c.off+n]
	c.off += n
	return b
}

func (c *cursor) u32() uint32 {
	b := c.take(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func (c *cursor) str() string {
	n := c.u32()
	if c.err != nil {
		return ""
	}
	return string(c.take(int(n)))
}

func (c *cursor) section() []byte {
	n := c.u32()
	return c.take(int(n))
}
