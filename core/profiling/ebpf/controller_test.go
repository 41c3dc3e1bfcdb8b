package ebpf

import (
	"context"
	"runtime"
	"testing"

	"github.com/shoenig/test/must"

	"fmpmcp/audit"
	"fmpmcp/core/profiling"
)

func TestControllerCapabilities(t *testing.T) {
	c := NewController(audit.Config{BPFObjectDir: t.TempDir()})
	must.Eq(t, runtime.GOOS == "linux", c.Capabilities().Host)
}

func TestControllerStartWithoutObject(t *testing.T) {
	c := NewController(audit.Config{BPFObjectDir: t.TempDir()})
	session, err := c.Start(context.Background(), profiling.Target{RootPID: 1, Mode: profiling.ProfilingHost})
	must.Error(t, err)
	must.Nil(t, session)
}
