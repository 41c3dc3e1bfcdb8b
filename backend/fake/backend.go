package fake

import (
	"os"
	"sync"

	"fmpmcp/core/execution"
	"fmpmcp/core/receipt"
)

// Backend is a scriptable fake backend useful for contract tests. It records
// every call in order so tests can assert on the supervisor's sequencing.
type Backend struct {
	Outcome    execution.Outcome
	StartErr   error
	WaitErr    error
	SignalErr  error
	CleanupErr error
	Extra      []string
	// Release, when set, blocks Wait until it is closed or a value is sent.
	Release chan struct{}
	// ExitOnSignal makes a relayed signal end Wait with that signal's outcome.
	ExitOnSignal bool
	// Started is closed once Start succeeds.
	Started chan struct{}

	mu       sync.Mutex
	calls    []string
	signals  []os.Signal
	spec     execution.LaunchSpec
	signaled chan os.Signal
}

// New returns a fake whose child exits with exitCode.
func New(exitCode int) *Backend {
	return &Backend{
		Outcome:  execution.Exited(exitCode),
		Started:  make(chan struct{}),
		signaled: make(chan os.Signal, 8),
	}
}

func (b *Backend) Name() string { return "fake" }

func (b *Backend) Start(spec execution.LaunchSpec) (execution.Handle, error) {
	b.record("start")
	b.mu.Lock()
	b.spec = spec
	b.mu.Unlock()
	if b.StartErr != nil {
		return execution.Handle{}, b.StartErr
	}
	if b.Started != nil {
		close(b.Started)
	}
	return execution.Handle{ID: "fake", PID: 4242}, nil
}

func (b *Backend) Wait(h execution.Handle) (execution.Outcome, error) {
	_ = h
	b.record("wait")
	if b.Release != nil || b.ExitOnSignal {
		select {
		case <-b.Release:
		case sig := <-b.signaled:
			if b.ExitOnSignal {
				b.record("exit")
				return execution.Killed(sig.String()), nil
			}
			<-b.Release
		}
	}
	b.record("exit")
	if b.WaitErr != nil {
		return execution.Outcome{}, b.WaitErr
	}
	return b.Outcome, nil
}

func (b *Backend) Signal(h execution.Handle, sig os.Signal) error {
	_ = h
	b.record("signal")
	b.mu.Lock()
	b.signals = append(b.signals, sig)
	b.mu.Unlock()
	if b.SignalErr != nil {
		return b.SignalErr
	}
	select {
	case b.signaled <- sig:
	default:
	}
	return nil
}

func (b *Backend) Cleanup(h execution.Handle) error {
	_ = h
	b.record("cleanup")
	return b.CleanupErr
}

func (b *Backend) Metadata() receipt.ExecutionInfo {
	return receipt.ExecutionInfo{Backend: b.Name(), Isolation: "none"}
}

func (b *Backend) ExtraErrors() []string {
	if len(b.Extra) == 0 {
		return nil
	}
	out := make([]string, len(b.Extra))
	copy(out, b.Extra)
	return out
}

// Calls returns the recorded call sequence.
func (b *Backend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

// Signals returns the signals relayed to the fake child.
func (b *Backend) Signals() []os.Signal {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]os.Signal(nil), b.signals...)
}

// Spec returns the last spec passed to Start.
func (b *Backend) Spec() execution.LaunchSpec {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.spec
}

func (b *Backend) record(call string) {
	b.mu.Lock()
	b.calls = append(b.calls, call)
	b.mu.Unlock()
}

var _ execution.Backend = (*Backend)(nil)
var _ execution.ExtraErrorProvider = (*Backend)(nil)
var _ execution.MetadataProvider = (*Backend)(nil)
