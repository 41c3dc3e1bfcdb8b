//go:build !linux

package ebpf

import (
	"context"

	"fmpmcp/audit"
	"fmpmcp/core/profiling"
)

// Controller reports tracing as unavailable off Linux.
type Controller struct {
	cfg audit.Config
}

func NewController(cfg audit.Config) *Controller {
	return &Controller{cfg: cfg}
}

func (c *Controller) Start(ctx context.Context, target profiling.Target) (profiling.Session, error) {
	_ = ctx
	_ = target
	return nil, audit.ErrUnsupported
}

func (c *Controller) Capabilities() profiling.Capabilities {
	return profiling.Capabilities{}
}

var _ profiling.Controller = (*Controller)(nil)
