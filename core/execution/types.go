package execution

import (
	"os"
	"time"

	"fmpmcp/core/identity"
	"fmpmcp/core/receipt"
)

// LaunchSpec describes the one child to spawn.
type LaunchSpec struct {
	Args []string
	// Env is the complete child environment. Nil inherits the parent's.
	Env []string
	Dir string
}

// Handle identifies the running child in a backend.
type Handle struct {
	ID  string
	PID int
}

// Outcome is how the child terminated: exactly one of ExitCode and Signal is set.
type Outcome struct {
	ExitCode *int
	Signal   string
}

func Exited(code int) Outcome {
	return Outcome{ExitCode: &code}
}

func Killed(signal string) Outcome {
	if signal == "" {
		signal = "unknown"
	}
	return Outcome{Signal: signal}
}

// IsSignal reports whether the child was terminated by a signal.
func (o Outcome) IsSignal() bool {
	return o.ExitCode == nil && o.Signal != ""
}

// Result is what the supervisor observed from one Run.
type Result struct {
	Handle      Handle
	LaunchID    identity.LaunchID
	Outcome     Outcome
	ExitCode    int
	Err         error
	StartedAt   time.Time
	CompletedAt time.Time
	// Relayed lists the parent signals forwarded to the child, in order.
	Relayed []os.Signal
	// States is the state machine path taken, starting at NOT_STARTED.
	States []State

	TracingAttached bool
	TracingError    error
	// Receipt is set when receipts are enabled and the child was spawned.
	Receipt *receipt.Receipt
}
