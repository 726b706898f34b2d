package action

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownType is returned for a type tag this build does not know.
	ErrUnknownType = errors.New("unknown action type")
	// ErrShortPayload is returned when a frame ends before the mandatory
	// fields of its type.
	ErrShortPayload = errors.New("payload shorter than mandatory fields")
	// ErrTruncatedFrame is returned when input ends inside a frame.
	ErrTruncatedFrame = errors.New("truncated frame")
	// ErrFrameTooLarge is returned when a length prefix exceeds MaxFrameSize.
	ErrFrameTooLarge = errors.New("frame length exceeds limit")
)

// DecodeError reports a malformed frame. The frame can be discarded without
// affecting its neighbours.
type DecodeError struct {
	Type   Type
	Offset int64
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s frame at offset %d: %v", e.Type, e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
