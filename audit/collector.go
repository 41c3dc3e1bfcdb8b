package audit

import (
	"context"

	"github.com/hashicorp/go-hclog"
)

// Config locates the compiled exec tracing object.
type Config struct {
	// BPFObjectDir holds exec.o.
	BPFObjectDir string
	Logger       hclog.Logger
}

func (c Config) logger() hclog.Logger {
	if c.Logger == nil {
		return hclog.NewNullLogger()
	}
	return c.Logger
}

// Collector streams exec events from the kernel.
type Collector interface {
	Start(ctx context.Context) error
	Events() <-chan Event
	Errors() <-chan error
	Close() error
}
