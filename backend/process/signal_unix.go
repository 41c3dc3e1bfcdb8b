//go:build unix

package process

import (
	"os"
	"syscall"

	"golang.org/x/sys/unix"

	"fmpmcp/core/execution"
)

func outcomeFromState(ps *os.ProcessState) execution.Outcome {
	if status, ok := ps.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		return execution.Killed(unix.SignalName(status.Signal()))
	}
	return execution.Exited(ps.ExitCode())
}

func relay(p *os.Process, sig os.Signal) error {
	return p.Signal(sig)
}

func signalName(sig os.Signal) string {
	if s, ok := sig.(syscall.Signal); ok {
		if name := unix.SignalName(s); name != "" {
			return name
		}
	}
	return sig.String()
}
