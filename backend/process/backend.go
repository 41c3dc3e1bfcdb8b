package process

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"fmpmcp/core/execution"
	"fmpmcp/core/receipt"
)

// Options overrides the child's standard streams. Nil fields inherit the
// launcher's own stdin, stdout and stderr.
type Options struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Backend runs the child as a plain host process with the launcher's
// streams passed straight through.
type Backend struct {
	opts Options

	mu      sync.Mutex
	cmd     *exec.Cmd
	relayed []os.Signal
}

func New(opts Options) *Backend {
	return &Backend{opts: opts}
}

func (b *Backend) Name() string { return "process" }

func (b *Backend) Start(spec execution.LaunchSpec) (execution.Handle, error) {
	if len(spec.Args) == 0 {
		return execution.Handle{}, execution.ErrNoCommand
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cmd != nil {
		return execution.Handle{}, execution.ErrAlreadyStarted
	}

	cmd := exec.Command(spec.Args[0], spec.Args[1:]...)
	cmd.Dir = spec.Dir
	cmd.Env = spec.Env
	cmd.Stdin = b.opts.Stdin
	if cmd.Stdin == nil {
		cmd.Stdin = os.Stdin
	}
	cmd.Stdout = b.opts.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = b.opts.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	if err := cmd.Start(); err != nil {
		return execution.Handle{}, err
	}
	b.cmd = cmd

	return execution.Handle{
		ID:  fmt.Sprintf("pid-%d", cmd.Process.Pid),
		PID: cmd.Process.Pid,
	}, nil
}

func (b *Backend) Wait(h execution.Handle) (execution.Outcome, error) {
	_ = h
	cmd := b.started()
	if cmd == nil {
		return execution.Outcome{}, fmt.Errorf("backend not started")
	}

	err := cmd.Wait()
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return execution.Outcome{}, err
	}
	return outcomeFromState(cmd.ProcessState), nil
}

// Signal forwards sig to the child. Relaying to a child that already exited
// returns os.ErrProcessDone.
func (b *Backend) Signal(h execution.Handle, sig os.Signal) error {
	_ = h
	cmd := b.started()
	if cmd == nil {
		return fmt.Errorf("backend not started")
	}
	b.mu.Lock()
	b.relayed = append(b.relayed, sig)
	b.mu.Unlock()
	return relay(cmd.Process, sig)
}

func (b *Backend) Cleanup(h execution.Handle) error {
	_ = h
	cmd := b.started()
	if cmd == nil || cmd.ProcessState != nil {
		return nil
	}
	if err := cmd.Process.Release(); err != nil {
		return fmt.Errorf("release child: %w", err)
	}
	return nil
}

func (b *Backend) ExtraErrors() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.relayed) == 0 {
		return nil
	}
	out := make([]string, 0, len(b.relayed))
	for _, sig := range b.relayed {
		out = append(out, fmt.Sprintf("signal: %s", signalName(sig)))
	}
	return out
}

func (b *Backend) ProcessState() *os.ProcessState {
	cmd := b.started()
	if cmd == nil {
		return nil
	}
	return cmd.ProcessState
}

func (b *Backend) Metadata() receipt.ExecutionInfo {
	return receipt.ExecutionInfo{
		Backend:   b.Name(),
		Isolation: "none",
	}
}

func (b *Backend) started() *exec.Cmd {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cmd
}

var _ execution.Backend = (*Backend)(nil)
var _ execution.ExtraErrorProvider = (*Backend)(nil)
var _ execution.ProcessStateProvider = (*Backend)(nil)
var _ execution.MetadataProvider = (*Backend)(nil)
