package autoupdate

import (
	"fmt"
	"slices"
)

// State is the lifecycle phase of a Channel.
type State int

const (
	StateUnknown State = iota
	StateDisconnected
	StateConnecting
	StateConnected
	StateClosing
	StateClosed
)

var stateNames = [...]string{
	StateUnknown:      "Unknown",
	StateDisconnected: "Disconnected",
	StateConnecting:   "Connecting",
	StateConnected:    "Connected",
	StateClosing:      "Closing",
	StateClosed:       "Closed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "InvalidState"
	}
	return stateNames[s]
}

// Final reports whether the channel is shutting down or shut down. A final
// channel never connects again.
func (s State) Final() bool {
	return s == StateClosing || s == StateClosed
}

// successors lists where each state may move. A lost connection takes
// Connected back to Connecting, giving up takes it to Disconnected.
var successors = map[State][]State{
	StateDisconnected: {StateConnecting, StateClosing},
	StateConnecting:   {StateConnected, StateDisconnected, StateClosing},
	StateConnected:    {StateConnecting, StateClosing, StateDisconnected},
	StateClosing:      {StateClosed},
}

func (s State) validateTransitionTo(next State) error {
	if !slices.Contains(successors[s], next) {
		return fmt.Errorf("autoupdate channel cannot move from %v to %v", s, next)
	}
	return nil
}
