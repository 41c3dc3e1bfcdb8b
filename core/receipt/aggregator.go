package receipt

import (
	"sort"
	"sync"

	"fmpmcp/core/profiling"
)

// Aggregator folds exec events into the child's process tree. Events from
// processes outside the tree rooted at the child are dropped.
type Aggregator struct {
	mu        sync.Mutex
	rootPID   uint32
	processes map[uint32]ProcessEntry
	seen      int
	tracked   int
}

func NewAggregator() *Aggregator {
	return &Aggregator{processes: make(map[uint32]ProcessEntry)}
}

// SetRoot records the child itself; it must be called before events arrive.
func (a *Aggregator) SetRoot(pid uint32, cmd string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rootPID = pid
	a.processes[pid] = ProcessEntry{PID: pid, Cmd: cmd}
}

func (a *Aggregator) HandleEvent(ev profiling.Event) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.seen++
	if a.rootPID == 0 || ev.Type != profiling.EventExec {
		return
	}
	_, known := a.processes[ev.PID]
	_, parentKnown := a.processes[ev.PPID]
	if !known && !parentKnown {
		return
	}
	a.tracked++

	entry := a.processes[ev.PID]
	entry.PID = ev.PID
	if ev.PID != a.rootPID && ev.PPID != 0 {
		entry.PPID = ev.PPID
	}
	cmd := ev.Path
	if cmd == "" {
		cmd = ev.Comm
	}
	// The root keeps its launch argv; descendants take the longest exec path seen.
	if ev.PID != a.rootPID && cmd != "" && len(cmd) > len(entry.Cmd) {
		entry.Cmd = cmd
	}
	a.processes[ev.PID] = entry
}

// Processes returns the tree ordered by pid.
func (a *Aggregator) Processes() []ProcessEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]ProcessEntry, 0, len(a.processes))
	for _, p := range a.processes {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PID < out[j].PID })
	return out
}

// Counts reports how many events were seen and how many belonged to the tree.
func (a *Aggregator) Counts() (seen, tracked int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.seen, a.tracked
}
