package session

import (
	"errors"
	"testing"
)

var allStates = []State{
	StateIdle, StateArmed, StatePlaying, StateDraining, StateComplete, StateAborted,
}

func TestStateTransitions(t *testing.T) {
	legal := map[[2]State]bool{
		{StateIdle, StateArmed}:        true,
		{StateArmed, StatePlaying}:     true,
		{StatePlaying, StateDraining}:  true,
		{StateDraining, StateComplete}: true,
		{StateIdle, StateAborted}:      true,
		{StateArmed, StateAborted}:     true,
		{StatePlaying, StateAborted}:   true,
		{StateDraining, StateAborted}:  true,
	}

	for _, from := range allStates {
		for _, to := range allStates {
			want := legal[[2]State{from, to}]
			if got := from.CanTransition(to); got != want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestTerminalStatesAbsorb(t *testing.T) {
	for _, terminal := range []State{StateComplete, StateAborted} {
		if !terminal.Terminal() {
			t.Errorf("%s should be terminal", terminal)
		}
		for _, to := range allStates {
			if terminal.CanTransition(to) {
				t.Errorf("%s -> %s should be rejected", terminal, to)
			}
		}
	}
}

func TestSessionRejectsIllegalMove(t *testing.T) {
	s := &Session{state: StateIdle}

	if err := s.to(StatePlaying); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
	if s.State() != StateIdle {
		t.Errorf("state moved to %s on a rejected transition", s.State())
	}

	if err := s.to(StateArmed); err != nil {
		t.Fatalf("legal move failed: %v", err)
	}
	if s.State() != StateArmed {
		t.Errorf("state = %s, want armed", s.State())
	}
}

func TestStateString(t *testing.T) {
	want := map[State]string{
		StateIdle:     "idle",
		StateArmed:    "armed",
		StatePlaying:  "playing",
		StateDraining: "draining",
		StateComplete: "complete",
		StateAborted:  "aborted",
	}
	for s, name := range want {
		if s.String() != name {
			t.Errorf("String(%d) = %q, want %q", int(s), s.String(), name)
		}
	}
	if got := State(42).String(); got != "state(42)" {
		t.Errorf("unknown state = %q", got)
	}
}
