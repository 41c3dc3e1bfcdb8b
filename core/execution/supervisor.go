package execution

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"

	"fmpmcp/core/identity"
	"fmpmcp/core/profiling"
	"fmpmcp/core/receipt"
)

const (
	// ExitFailure is returned for every launcher-side failure.
	ExitFailure = 1
	// ExitSignaled is returned when the child was killed by a signal. The
	// raw signal number is never mirrored.
	ExitSignaled = 1
)

var (
	ErrInterpreterNotFound = errors.New("interpreter not found")
	ErrInvalidTransition   = errors.New("invalid state transition")
	ErrAlreadyStarted      = errors.New("supervisor already started")
	ErrNoCommand           = errors.New("no command provided")
)

// RelaySignals are the parent signals forwarded to the child.
var RelaySignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// Supervisor owns one child from spawn to termination. The zero value is
// NOT_STARTED; a Supervisor runs at most once.
type Supervisor struct {
	Backend Backend
	Logger  hclog.Logger
	// Validate runs in VALIDATING; an error exits without spawning.
	Validate func() error
	// Signals overrides the parent signal subscription. When nil the
	// supervisor subscribes to RelaySignals itself.
	Signals <-chan os.Signal
	// Profiler attaches exec tracing to the child when set.
	Profiler profiling.Controller
	// Receipts builds a launch receipt into the result.
	Receipts bool

	mu     sync.Mutex
	state  State
	states []State
}

// State returns the current lifecycle state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Supervisor) transition(next State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.state, next)
	}
	if s.state != next {
		s.logger().Trace("state change", "from", s.state.String(), "to", next.String())
	}
	s.state = next
	s.states = append(s.states, next)
	return nil
}

func (s *Supervisor) history() []State {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]State, 0, len(s.states)+1)
	out = append(out, StateNotStarted)
	return append(out, s.states...)
}

func (s *Supervisor) logger() hclog.Logger {
	if s.Logger == nil {
		return hclog.NewNullLogger()
	}
	return s.Logger
}

// Run validates, spawns the child, relays parent signals until the child
// terminates, and returns the exit code the parent should mirror.
func (s *Supervisor) Run(ctx context.Context, spec LaunchSpec) (Result, error) {
	result := Result{ExitCode: ExitFailure}
	if err := s.transition(StateValidating); err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			err = ErrAlreadyStarted
		}
		result.Err = err
		return result, err
	}
	if err := s.validate(spec); err != nil {
		return s.fail(result, err)
	}
	if s.Backend == nil {
		return s.fail(result, errors.New("backend required"))
	}

	// Subscribe before spawning so no signal lands between the two.
	sigCh := s.Signals
	if sigCh == nil {
		ch := make(chan os.Signal, 4)
		signal.Notify(ch, RelaySignals...)
		defer signal.Stop(ch)
		sigCh = ch
	}

	if err := s.transition(StateSpawning); err != nil {
		return s.fail(result, err)
	}
	result.StartedAt = time.Now()
	handle, err := s.Backend.Start(spec)
	result.Handle = handle
	if err != nil {
		_ = s.Backend.Cleanup(handle)
		return s.fail(result, classifySpawnError(spec.Args[0], err))
	}
	if err := s.transition(StateRunning); err != nil {
		return s.fail(result, err)
	}
	result.LaunchID = identity.FromChild(uint32(handle.PID))
	log := s.logger().With("pid", handle.PID)
	log.Debug("child started", "argv", strings.Join(spec.Args, " "))

	trace := s.startTracing(ctx, handle, spec)
	result.TracingAttached = trace.session != nil
	result.TracingError = trace.err

	type waitResult struct {
		outcome Outcome
		err     error
	}
	waitCh := make(chan waitResult, 1)
	go func() {
		outcome, err := s.Backend.Wait(handle)
		waitCh <- waitResult{outcome: outcome, err: err}
	}()

	done := ctx.Done()
	var waited waitResult
wait:
	for {
		select {
		case sig, ok := <-sigCh:
			if !ok {
				sigCh = nil
				continue
			}
			s.relay(log, handle, sig, &result)
		case <-done:
			done = nil
			s.relay(log, handle, syscall.SIGTERM, &result)
		case waited = <-waitCh:
			break wait
		}
	}
	result.CompletedAt = time.Now()
	_ = s.transition(StateExited)

	result.Outcome = waited.outcome
	switch {
	case waited.err != nil:
		result.Err = fmt.Errorf("wait for child: %w", waited.err)
		result.ExitCode = ExitFailure
		log.Error("failed waiting for server", "error", waited.err)
	case waited.outcome.ExitCode != nil:
		result.ExitCode = *waited.outcome.ExitCode
		log.Debug("child exited", "code", result.ExitCode)
	default:
		result.ExitCode = ExitSignaled
		log.Error("server terminated by signal", "signal", waited.outcome.Signal)
	}

	processes := trace.close()
	if s.Receipts {
		rec := s.buildReceipt(spec, result, trace, processes)
		result.Receipt = &rec
	}

	if err := s.Backend.Cleanup(handle); err != nil {
		log.Warn("cleanup failed", "error", err)
	}
	result.States = s.history()
	return result, result.Err
}

func (s *Supervisor) validate(spec LaunchSpec) error {
	if s.Validate != nil {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	if len(spec.Args) == 0 {
		return ErrNoCommand
	}
	return nil
}

func (s *Supervisor) fail(result Result, err error) (Result, error) {
	_ = s.transition(StateExited)
	result.ExitCode = ExitFailure
	result.Err = err
	result.States = s.history()
	return result, err
}

func (s *Supervisor) relay(log hclog.Logger, h Handle, sig os.Signal, result *Result) {
	_ = s.transition(StateTerminating)
	log.Info("relaying signal to server", "signal", sig.String())
	result.Relayed = append(result.Relayed, sig)
	if err := s.Backend.Signal(h, sig); err != nil && !errors.Is(err, os.ErrProcessDone) {
		log.Warn("failed to relay signal", "signal", sig.String(), "error", err)
	}
}

// classifySpawnError separates a missing interpreter from other spawn failures.
func classifySpawnError(interpreter string, err error) error {
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s: %w", ErrInterpreterNotFound, interpreter, err)
	}
	return fmt.Errorf("start server: %w", err)
}

type tracing struct {
	session profiling.Session
	agg     *receipt.Aggregator
	wg      sync.WaitGroup
	errMu   sync.Mutex
	errs    []string
	err     error
}

func (s *Supervisor) startTracing(ctx context.Context, h Handle, spec LaunchSpec) *tracing {
	t := &tracing{}
	if s.Profiler == nil {
		return t
	}
	session, err := s.Profiler.Start(ctx, profiling.Target{RootPID: h.PID, Mode: profiling.ProfilingHost})
	if err != nil {
		t.err = err
		s.logger().Warn("exec tracing unavailable", "error", err)
		return t
	}
	t.session = session
	t.agg = receipt.NewAggregator()
	t.agg.SetRoot(uint32(h.PID), strings.Join(spec.Args, " "))

	t.wg.Add(2)
	go func() {
		defer t.wg.Done()
		for ev := range session.Events() {
			t.agg.HandleEvent(ev)
		}
	}()
	go func() {
		defer t.wg.Done()
		for err := range session.Errors() {
			if err == nil {
				continue
			}
			t.errMu.Lock()
			t.errs = append(t.errs, err.Error())
			t.errMu.Unlock()
		}
	}()
	return t
}

// close stops the session and returns the traced process tree.
func (t *tracing) close() []receipt.ProcessEntry {
	if t.session == nil {
		return nil
	}
	_ = t.session.Close()
	t.wg.Wait()
	return t.agg.Processes()
}

func (s *Supervisor) buildReceipt(spec LaunchSpec, result Result, t *tracing, processes []receipt.ProcessEntry) receipt.Receipt {
	extra := append([]string(nil), t.errs...)
	if t.err != nil {
		extra = append(extra, fmt.Sprintf("tracing: %v", t.err))
	}
	if provider, ok := s.Backend.(ExtraErrorProvider); ok {
		extra = append(extra, provider.ExtraErrors()...)
	}

	info := receipt.ExecutionInfo{Backend: s.Backend.Name(), Isolation: "none"}
	if provider, ok := s.Backend.(MetadataProvider); ok {
		info = provider.Metadata()
	}

	mode := "disabled"
	if t.session != nil {
		mode = string(profiling.ProfilingHost)
	}

	return receipt.Build(receipt.Meta{
		Start:           result.StartedAt,
		End:             result.CompletedAt,
		LaunchID:        result.LaunchID,
		Argv:            spec.Args,
		Workdir:         spec.Dir,
		ExitCode:        result.ExitCode,
		Signal:          result.Outcome.Signal,
		RunErr:          result.Err,
		ExtraErrors:     extra,
		Resources:       ResourcesFromBackend(s.Backend),
		Backend:         info,
		ObservationMode: mode,
		Processes:       processes,
	})
}

// ResourcesFromBackend reads CPU and memory usage of the reaped child.
func ResourcesFromBackend(b Backend) receipt.Resources {
	provider, ok := b.(ProcessStateProvider)
	if !ok {
		return receipt.Resources{}
	}
	ps := provider.ProcessState()
	if ps == nil {
		return receipt.Resources{}
	}
	cpu := ps.UserTime() + ps.SystemTime()
	return receipt.Resources{
		CPUTimeMs: cpu.Milliseconds(),
		MaxRSSKB:  maxRSSKB(ps),
	}
}
