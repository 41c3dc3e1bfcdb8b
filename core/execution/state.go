package execution

import "fmt"

// State is a step of the supervisor lifecycle.
type State int

const (
	StateNotStarted State = iota
	StateValidating
	StateSpawning
	StateRunning
	StateTerminating
	StateExited
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "NOT_STARTED"
	case StateValidating:
		return "VALIDATING"
	case StateSpawning:
		return "SPAWNING"
	case StateRunning:
		return "RUNNING"
	case StateTerminating:
		return "TERMINATING"
	case StateExited:
		return "EXITED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

var transitions = map[State][]State{
	StateNotStarted:  {StateValidating},
	StateValidating:  {StateSpawning, StateExited},
	StateSpawning:    {StateRunning, StateExited},
	StateRunning:     {StateTerminating, StateExited},
	StateTerminating: {StateTerminating, StateExited},
}

// CanTransition reports whether the lifecycle allows moving from s to next.
func (s State) CanTransition(next State) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
