package profiling

import "context"

// Mode selects whether exec tracing is attached to the child.
type Mode string

const (
	ProfilingDisabled Mode = "disabled"
	ProfilingHost     Mode = "host"
)

// Capabilities declares what a controller can attach to.
type Capabilities struct {
	Host bool
}

// Target is the child a controller should attach to.
type Target struct {
	RootPID int
	Mode    Mode
}

type EventType uint32

const (
	EventExec EventType = 1
)

// Event is one exec observed on the host.
type Event struct {
	Type EventType
	PID  uint32
	PPID uint32
	Comm string
	Path string
}

// Session is a running attachment. Events and Errors are closed by Close.
type Session interface {
	Events() <-chan Event
	Errors() <-chan error
	Close() error
}

// Controller creates tracing sessions.
type Controller interface {
	Start(ctx context.Context, target Target) (Session, error)
	Capabilities() Capabilities
}
