package session

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned when a lifecycle move is not in the
// transition table. Terminal states absorb every request.
var ErrInvalidTransition = errors.New("session: invalid state transition")

// State is the measurement lifecycle position. Exactly one measurement
// walks the states at a time; Complete and Aborted are terminal.
type State int

const (
	StateIdle State = iota
	StateArmed
	StatePlaying
	StateDraining
	StateComplete
	StateAborted
)

// String returns the lowercase state name used in events and logs.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArmed:
		return "armed"
	case StatePlaying:
		return "playing"
	case StateDraining:
		return "draining"
	case StateComplete:
		return "complete"
	case StateAborted:
		return "aborted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether the state ends the lifecycle.
func (s State) Terminal() bool {
	return s == StateComplete || s == StateAborted
}

// transitions is the legal forward move per state. Aborted is reachable
// from every non-terminal state and is handled in CanTransition.
var transitions = map[State]State{
	StateIdle:     StateArmed,
	StateArmed:    StatePlaying,
	StatePlaying:  StateDraining,
	StateDraining: StateComplete,
}

// CanTransition reports whether the move from s to next is legal.
func (s State) CanTransition(next State) bool {
	if s.Terminal() {
		return false
	}
	if next == StateAborted {
		return true
	}
	return transitions[s] == next
}
