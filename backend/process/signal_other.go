//go:build !unix

package process

import (
	"os"

	"fmpmcp/core/execution"
)

func outcomeFromState(ps *os.ProcessState) execution.Outcome {
	return execution.Exited(ps.ExitCode())
}

// Windows cannot deliver an interrupt to another process, so every relayed
// signal terminates the child.
func relay(p *os.Process, sig os.Signal) error {
	_ = sig
	return p.Kill()
}

func signalName(sig os.Signal) string {
	switch sig {
	case os.Interrupt:
		return "SIGINT"
	case os.Kill:
		return "SIGKILL"
	}
	return sig.String()
}
