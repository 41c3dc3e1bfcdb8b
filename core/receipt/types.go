package receipt

// Receipt is the JSON record of one launch, written when a receipt path is configured.
type Receipt struct {
	Version         string         `json:"version"`
	LaunchID        string         `json:"launch_id,omitempty"`
	Timestamp       string         `json:"timestamp,omitempty"`
	StartTime       string         `json:"start_time,omitempty"`
	EndTime         string         `json:"end_time,omitempty"`
	// ObservationMode is host when exec tracing was attached, disabled otherwise.
	ObservationMode string         `json:"observation_mode"`
	Outcome         *Outcome       `json:"outcome,omitempty"`
	Timing          *Timing        `json:"timing,omitempty"`
	ProcessTree     []ProcessV2    `json:"process_tree"`
	Environment     *Environment   `json:"environment,omitempty"`
	Execution       *ExecutionInfo `json:"execution,omitempty"`
	ExitCode        int            `json:"exit_code"`
	DurationMs      int64          `json:"duration_ms"`
	Processes       []ProcessEntry `json:"processes"`
	Resources       *Resources     `json:"resources,omitempty"`
	ExtraErrors     []string       `json:"extra_errors,omitempty"`
}

type ProcessEntry struct {
	PID  uint32 `json:"pid"`
	PPID uint32 `json:"ppid"`
	Cmd  string `json:"cmd"`
}

type Resources struct {
	CPUTimeMs int64 `json:"cpu_time_ms,omitempty"`
	MaxRSSKB  int64 `json:"max_rss_kb,omitempty"`
}

// Outcome carries either the child's exit code or the signal that killed it.
// ExitCode is the code the launcher itself exited with.
type Outcome struct {
	ExitCode int     `json:"exit_code"`
	Signal   *string `json:"signal"`
	Error    *string `json:"error"`
}

type Timing struct {
	DurationMs int64 `json:"duration_ms"`
	CPUTimeMs  int64 `json:"cpu_time_ms"`
}

type ProcessV2 struct {
	PID        uint32   `json:"pid"`
	PPID       uint32   `json:"ppid"`
	Exe        string   `json:"exe"`
	Argv       []string `json:"argv"`
	WorkingDir string   `json:"working_dir"`
}

type Environment struct {
	Runtime string `json:"runtime"`
	OS      string `json:"os"`
	Arch    string `json:"arch"`
}

type ExecutionInfo struct {
	Backend   string `json:"backend"`
	Isolation string `json:"isolation"`
}
