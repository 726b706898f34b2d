package session

import "fmt"

// State is a life-cycle stage of a Session.
type State int

// Session states.
const (
	Created State = iota
	Initialized
	Started
	Suspended
	Stopped
	Destroying
	Destroyed
	Error
)

var stateNames = [...]string{
	Created:     "created",
	Initialized: "initialized",
	Started:     "started",
	Suspended:   "suspended",
	Stopped:     "stopped",
	Destroying:  "destroying",
	Destroyed:   "destroyed",
	Error:       "error",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == Destroying || s == Destroyed
}

// Recording reports whether the session holds an open take, running or
// paused.
func (s State) Recording() bool {
	return s == Started || s == Suspended
}
