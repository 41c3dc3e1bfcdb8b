//go:build linux

package ebpf

import (
	"context"
	"fmt"
	"sync"

	"fmpmcp/audit"
	"fmpmcp/core/profiling"
)

// Controller attaches the audit exec collector. The tracepoints are
// system-wide; scoping to the child's tree happens in the receipt aggregator.
type Controller struct {
	cfg audit.Config
}

func NewController(cfg audit.Config) *Controller {
	return &Controller{cfg: cfg}
}

func (c *Controller) Start(ctx context.Context, target profiling.Target) (profiling.Session, error) {
	if target.Mode == profiling.ProfilingDisabled {
		return nil, fmt.Errorf("tracing disabled for pid %d", target.RootPID)
	}
	collector, err := audit.NewCollector(c.cfg)
	if err != nil {
		return nil, err
	}
	if err := collector.Start(ctx); err != nil {
		_ = collector.Close()
		return nil, err
	}
	s := &session{
		collector: collector,
		events:    make(chan profiling.Event, 64),
		errs:      make(chan error, 4),
	}
	s.forward()
	return s, nil
}

func (c *Controller) Capabilities() profiling.Capabilities {
	return profiling.Capabilities{Host: true}
}

type session struct {
	collector audit.Collector
	events    chan profiling.Event
	errs      chan error
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// forward converts collector output until the collector closes its channels.
func (s *session) forward() {
	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		defer close(s.events)
		for ev := range s.collector.Events() {
			if ev.Type != audit.EventExec {
				continue
			}
			s.events <- profiling.Event{
				Type: profiling.EventExec,
				PID:  ev.PID,
				PPID: ev.PPID,
				Comm: ev.Comm,
				Path: ev.Path,
			}
		}
	}()
	go func() {
		defer s.wg.Done()
		defer close(s.errs)
		for err := range s.collector.Errors() {
			if err != nil {
				s.errs <- fmt.Errorf("collector: %w", err)
			}
		}
	}()
}

func (s *session) Events() <-chan profiling.Event { return s.events }
func (s *session) Errors() <-chan error           { return s.errs }

func (s *session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.collector.Close()
		s.wg.Wait()
	})
	return err
}

var _ profiling.Controller = (*Controller)(nil)
var _ profiling.Session = (*session)(nil)
