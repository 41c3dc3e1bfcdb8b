//go:build linux

package audit

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/link"
	"github.com/cilium/ebpf/ringbuf"
	"github.com/cilium/ebpf/rlimit"
)

const execObject = "exec.o"

var execTracepoints = []struct {
	prog string
	name string
}{
	{prog: "trace_execve", name: "sys_enter_execve"},
	{prog: "trace_execveat", name: "sys_enter_execveat"},
}

type ebpfCollector struct {
	mu      sync.Mutex
	started bool
	events  chan Event
	errs    chan error
	reader  *ringbuf.Reader
	links   []link.Link
	coll    *ebpf.Collection
	wg      sync.WaitGroup
	closed  chan struct{}
}

// NewCollector loads exec.o from cfg.BPFObjectDir and attaches it to the
// execve tracepoints. Nothing is read until Start.
func NewCollector(cfg Config) (Collector, error) {
	log := cfg.logger()
	path := filepath.Join(cfg.BPFObjectDir, execObject)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("eBPF object missing: %w", err)
	}

	if err := rlimit.RemoveMemlock(); err != nil {
		log.Debug("could not lift memlock rlimit", "error", err)
	}

	spec, err := ebpf.LoadCollectionSpec(path)
	if err != nil {
		return nil, fmt.Errorf("load eBPF spec %s: %w", path, err)
	}
	coll, err := ebpf.NewCollection(spec)
	if err != nil {
		return nil, fmt.Errorf("load eBPF collection %s: %w", path, err)
	}

	c := &ebpfCollector{
		events: make(chan Event, 1024),
		errs:   make(chan error, 16),
		closed: make(chan struct{}),
		coll:   coll,
	}

	eventsMap := coll.Maps["events"]
	if eventsMap == nil {
		c.release()
		return nil, fmt.Errorf("%s: no events map", path)
	}
	c.reader, err = ringbuf.NewReader(eventsMap)
	if err != nil {
		c.release()
		return nil, fmt.Errorf("open ringbuf %s: %w", path, err)
	}

	for _, tp := range execTracepoints {
		prog := coll.Programs[tp.prog]
		if prog == nil {
			c.release()
			return nil, fmt.Errorf("%s: program %s not found", path, tp.prog)
		}
		l, err := link.Tracepoint("syscalls", tp.name, prog, nil)
		if err != nil {
			c.release()
			return nil, fmt.Errorf("attach syscalls/%s: %w", tp.name, err)
		}
		c.links = append(c.links, l)
	}

	log.Debug("exec tracing attached", "object", path)
	return c, nil
}

func (c *ebpfCollector) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return nil
	}
	c.started = true
	c.wg.Add(1)
	go c.readLoop(ctx)
	return nil
}

func (c *ebpfCollector) Events() <-chan Event { return c.events }
func (c *ebpfCollector) Errors() <-chan error { return c.errs }

func (c *ebpfCollector) Close() error {
	c.mu.Lock()
	started := c.started
	c.started = false
	c.mu.Unlock()

	close(c.closed)
	if c.reader != nil {
		_ = c.reader.Close()
	}
	if started {
		c.wg.Wait()
	}
	c.release()
	close(c.events)
	close(c.errs)
	return nil
}

func (c *ebpfCollector) release() {
	for _, l := range c.links {
		_ = l.Close()
	}
	c.links = nil
	if c.reader != nil {
		_ = c.reader.Close()
	}
	if c.coll != nil {
		c.coll.Close()
		c.coll = nil
	}
}

func (c *ebpfCollector) readLoop(ctx context.Context) {
	defer c.wg.Done()
	for {
		record, err := c.reader.Read()
		if errors.Is(err, ringbuf.ErrClosed) {
			return
		}
		if err == nil {
			var ev Event
			ev, err = parseEvent(record.RawSample)
			if err == nil {
				select {
				case c.events <- ev:
				case <-c.closed:
					return
				case <-ctx.Done():
					return
				}
				continue
			}
		}
		select {
		case c.errs <- err:
		case <-c.closed:
			return
		}
	}
}
