package execution

import "os"

// Backend spawns and owns the single child process. Implementations are not
// required to be safe for concurrent use beyond Signal being callable while
// Wait blocks.
type Backend interface {
	Name() string
	Start(spec LaunchSpec) (Handle, error)
	// Wait blocks until the child terminates. A child that exits non-zero or
	// dies from a signal is reported through the Outcome, not the error.
	Wait(h Handle) (Outcome, error)
	Signal(h Handle, sig os.Signal) error
	Cleanup(h Handle) error
}
