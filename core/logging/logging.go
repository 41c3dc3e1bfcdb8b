package logging

import (
	"io"
	"os"

	"github.com/hashicorp/go-hclog"
)

// Name is the root logger name shown on every line.
const Name = "fmp-mcp"

// Options configures the launcher's logger. Stdout belongs to the server's
// protocol stream, so logs default to stderr.
type Options struct {
	Level  string
	JSON   bool
	Output io.Writer
}

// New builds the root logger. An unknown level falls back to info, and the
// level is capped at error so fatal diagnostics are never silenced.
func New(opts Options) hclog.Logger {
	level := hclog.LevelFromString(opts.Level)
	switch {
	case level == hclog.NoLevel:
		level = hclog.Info
	case level > hclog.Error:
		level = hclog.Error
	}
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:       Name,
		Level:      level,
		JSONFormat: opts.JSON,
		Output:     out,
		Color:      hclog.ColorOff,
	})
}
