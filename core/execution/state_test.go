package execution

import (
	"testing"

	"github.com/shoenig/test/must"
)

func TestStateTransitions(t *testing.T) {
	cases := []struct {
		from State
		to   State
		ok   bool
	}{
		{StateNotStarted, StateValidating, true},
		{StateNotStarted, StateSpawning, false},
		{StateValidating, StateSpawning, true},
		{StateValidating, StateExited, true},
		{StateValidating, StateRunning, false},
		{StateSpawning, StateRunning, true},
		{StateSpawning, StateExited, true},
		{StateSpawning, StateTerminating, false},
		{StateRunning, StateTerminating, true},
		{StateRunning, StateExited, true},
		{StateRunning, StateSpawning, false},
		{StateTerminating, StateTerminating, true},
		{StateTerminating, StateExited, true},
		{StateTerminating, StateRunning, false},
		{StateExited, StateValidating, false},
		{StateExited, StateExited, false},
	}
	for _, tc := range cases {
		t.Run(tc.from.String()+"->"+tc.to.String(), func(t *testing.T) {
			must.Eq(t, tc.ok, tc.from.CanTransition(tc.to))
		})
	}
}

func TestStateString(t *testing.T) {
	must.Eq(t, "NOT_STARTED", StateNotStarted.String())
	must.Eq(t, "TERMINATING", StateTerminating.String())
	must.Eq(t, "State(42)", State(42).String())
}

func TestSupervisorRejectsIllegalTransition(t *testing.T) {
	s := &Supervisor{}
	err := s.transition(StateRunning)
	must.ErrorIs(t, err, ErrInvalidTransition)
	must.Eq(t, StateNotStarted, s.State())

	must.NoError(t, s.transition(StateValidating))
	must.NoError(t, s.transition(StateExited))
	must.ErrorIs(t, s.transition(StateValidating), ErrInvalidTransition)
}
