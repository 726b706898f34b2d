package session

import (
	"errors"
	"fmt"
)

// ErrNothingRecorded is returned by WriteRecording before any page commit.
var ErrNothingRecorded = errors.New("no page has been recorded")

// DeviceUnavailableError reports that the configured capture device is
// missing at Start. The session keeps its previous state.
type DeviceUnavailableError struct {
	Device string
}

func (e *DeviceUnavailableError) Error() string {
	return fmt.Sprintf("audio device %q is not available", e.Device)
}

// InvalidTransitionError reports an operation the current state forbids.
// The session state is unchanged.
type InvalidTransitionError struct {
	Op   string
	From State
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s a %s session", e.Op, e.From)
}

// FinalizationError reports a failure to assemble or write the recording.
// The checkpoint is left in place so the write can be retried.
type FinalizationError struct {
	Dest string
	Err  error
}

func (e *FinalizationError) Error() string {
	return fmt.Sprintf("failed to write recording %s: %v", e.Dest, e.Err)
}

func (e *FinalizationError) Unwrap() error {
	return e.Err
}
