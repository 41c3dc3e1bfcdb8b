package runner

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"

	"fmpmcp/audit"
	"fmpmcp/backend/process"
	"fmpmcp/core/execution"
	"fmpmcp/core/launch"
	"fmpmcp/core/logging"
	"fmpmcp/core/profiling"
	"fmpmcp/core/profiling/ebpf"
	"fmpmcp/core/receipt"
)

// Options wires the launcher to its surroundings. The zero value uses the
// real process environment, streams and signals.
type Options struct {
	// InstallDir overrides the directory the script is looked up in.
	InstallDir string
	// Environ replaces os.Environ().
	Environ []string
	// Stdin, Stdout and Stderr replace the streams the child inherits.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	// LogOutput receives launcher diagnostics. Defaults to stderr.
	LogOutput io.Writer
	// Signals replaces the SIGINT/SIGTERM subscription.
	Signals <-chan os.Signal
}

// Run launches the server and returns the exit code the launcher should
// exit with.
func Run(ctx context.Context, opts Options) int {
	logOut := opts.LogOutput
	if logOut == nil {
		logOut = os.Stderr
	}

	installDir := opts.InstallDir
	if installDir == "" {
		dir, err := launch.InstallDir()
		if err != nil {
			logging.New(logging.Options{Output: logOut}).Error("cannot locate install directory", "error", err)
			return execution.ExitFailure
		}
		installDir = dir
	}
	environ := opts.Environ
	if environ == nil {
		environ = os.Environ()
	}

	cfg, cfgErr := launch.FromEnv(installDir, environ)
	logger := logging.New(logging.Options{Level: cfg.LogLevel, JSON: cfg.LogJSON, Output: logOut})
	if cfgErr != nil {
		logger.Error("invalid configuration", "error", cfgErr)
		return execution.ExitFailure
	}

	// The subscription stays active until Run returns, past the receipt write.
	sigCh := opts.Signals
	if sigCh == nil {
		ch, stop := subscribe()
		defer stop()
		sigCh = ch
	}

	sup := &execution.Supervisor{
		Backend: process.New(process.Options{
			Stdin:  opts.Stdin,
			Stdout: opts.Stdout,
			Stderr: opts.Stderr,
		}),
		Logger:   logger.Named("supervisor"),
		Validate: cfg.Validate,
		Signals:  sigCh,
		Receipts: cfg.ReceiptPath != "",
	}
	if cfg.Trace {
		profiler := newProfiler(cfg, logger.Named("trace"))
		if profiler.Capabilities().Host {
			sup.Profiler = profiler
		} else {
			logger.Warn("exec tracing is not supported on this platform")
		}
	}

	logger.Info("starting FMP MCP server", "script", cfg.ScriptPath, "interpreter", cfg.Interpreter)
	res, err := sup.Run(ctx, execution.LaunchSpec{
		Args: cfg.Argv(),
		Env:  cfg.ChildEnv(),
		Dir:  installDir,
	})
	// Failures after spawn are logged by the supervisor itself.
	if err != nil && res.Handle.PID == 0 {
		report(logger, cfg, err)
	}

	if res.Receipt != nil {
		if err := receipt.Write(cfg.ReceiptPath, *res.Receipt); err != nil {
			logger.Warn("failed to write launch receipt", "error", err)
		} else {
			logger.Debug("launch receipt written", "path", cfg.ReceiptPath)
		}
	}
	return res.ExitCode
}

// subscribe registers for the signals relayed to the server.
func subscribe() (<-chan os.Signal, func()) {
	ch := make(chan os.Signal, 4)
	signal.Notify(ch, execution.RelaySignals...)
	return ch, func() { signal.Stop(ch) }
}

func newProfiler(cfg launch.Config, logger hclog.Logger) profiling.Controller {
	return ebpf.NewController(audit.Config{
		BPFObjectDir: cfg.BPFDir,
		Logger:       logger,
	})
}

// report turns a supervisor error into the diagnostics the user sees.
func report(logger hclog.Logger, cfg launch.Config, err error) {
	var mErr *multierror.Error
	if errors.As(err, &mErr) {
		for _, e := range mErr.Errors {
			reportOne(logger, cfg, e)
		}
		return
	}
	reportOne(logger, cfg, err)
}

func reportOne(logger hclog.Logger, cfg launch.Config, err error) {
	switch {
	case errors.Is(err, launch.ErrScriptNotFound):
		logger.Error("server script not found", "path", cfg.ScriptPath)
	case errors.Is(err, launch.ErrCredentialMissing):
		logger.Error(launch.CredentialVar+" environment variable is required",
			"hint", "set it in your Claude Desktop configuration")
	case errors.Is(err, execution.ErrInterpreterNotFound):
		logger.Error("python interpreter not found", "interpreter", cfg.Interpreter,
			"hint", "ensure Python 3.8 or higher is installed")
	default:
		logger.Error("failed to start MCP server", "error", err)
	}
}
