package receipt

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"fmpmcp/core/identity"
	"fmpmcp/core/version"
)

// Meta is everything the supervisor knows about a finished launch.
type Meta struct {
	Start           time.Time
	End             time.Time
	LaunchID        identity.LaunchID
	Argv            []string
	Workdir         string
	ExitCode        int
	Signal          string
	RunErr          error
	ExtraErrors     []string
	Resources       Resources
	Backend         ExecutionInfo
	ObservationMode string
	Processes       []ProcessEntry
}

// Build assembles a receipt. The child environment is never recorded; it
// carries the credential.
func Build(meta Meta) Receipt {
	duration := meta.End.Sub(meta.Start)
	if duration < 0 {
		duration = 0
	}
	r := Receipt{
		Version:         version.ReceiptVersion,
		LaunchID:        launchID(meta),
		Timestamp:       formatTime(meta.Start),
		StartTime:       formatTime(meta.Start),
		EndTime:         formatTime(meta.End),
		ObservationMode: meta.ObservationMode,
		ExitCode:        meta.ExitCode,
		DurationMs:      duration.Milliseconds(),
		Processes:       meta.Processes,
		ExtraErrors:     meta.ExtraErrors,
	}
	if r.ObservationMode == "" {
		r.ObservationMode = "disabled"
	}
	if len(r.Processes) == 0 {
		r.Processes = []ProcessEntry{}
		if meta.LaunchID.RootPID != 0 {
			r.Processes = append(r.Processes, ProcessEntry{PID: meta.LaunchID.RootPID, Cmd: strings.Join(meta.Argv, " ")})
		}
	}

	r.Outcome = &Outcome{
		ExitCode: meta.ExitCode,
		Signal:   optional(meta.Signal),
		Error:    errorString(meta.RunErr),
	}
	r.Timing = &Timing{
		DurationMs: r.DurationMs,
		CPUTimeMs:  meta.Resources.CPUTimeMs,
	}
	r.ProcessTree = buildProcessTree(r.Processes, meta.LaunchID.RootPID, resolveExe(meta.Argv), meta.Argv, meta.Workdir)
	r.Environment = &Environment{
		Runtime: runtimeName(meta.Argv),
		OS:      runtime.GOOS,
		Arch:    runtime.GOARCH,
	}
	backend := meta.Backend
	r.Execution = &backend
	if meta.Resources.CPUTimeMs > 0 || meta.Resources.MaxRSSKB > 0 {
		res := meta.Resources
		r.Resources = &res
	}
	return r
}

// Write stores the receipt as indented JSON.
func Write(path string, r Receipt) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal receipt: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func launchID(meta Meta) string {
	if meta.LaunchID.RootStartTime != 0 {
		return meta.LaunchID.String()
	}
	return identity.Digest(meta.Start, meta.LaunchID.RootPID, meta.Argv)
}

func resolveExe(argv []string) string {
	if len(argv) == 0 {
		return ""
	}
	exe, err := exec.LookPath(argv[0])
	if err != nil {
		return argv[0]
	}
	return exe
}

func buildProcessTree(processes []ProcessEntry, rootPID uint32, rootExe string, rootArgv []string, workingDir string) []ProcessV2 {
	out := make([]ProcessV2, 0, len(processes))
	for _, proc := range processes {
		argv := strings.Fields(proc.Cmd)
		if argv == nil {
			argv = []string{}
		}
		node := ProcessV2{PID: proc.PID, PPID: proc.PPID, Argv: argv}
		if len(argv) > 0 {
			node.Exe = argv[0]
		}
		if proc.PID == rootPID {
			node.Exe = rootExe
			node.Argv = append([]string(nil), rootArgv...)
			node.WorkingDir = workingDir
		}
		out = append(out, node)
	}
	return out
}

func runtimeName(argv []string) string {
	if len(argv) == 0 {
		return "unknown"
	}
	base := strings.TrimSuffix(filepath.Base(argv[0]), ".exe")
	switch {
	case strings.HasPrefix(base, "python3"):
		return "python3.x"
	case strings.HasPrefix(base, "python"):
		return "python"
	default:
		return base
	}
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func errorString(err error) *string {
	if err == nil {
		return nil
	}
	msg := err.Error()
	return &msg
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(time.RFC3339Nano)
}
