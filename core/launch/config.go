package launch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/hashicorp/go-envparse"
	"github.com/hashicorp/go-multierror"
)

const (
	// ScriptName is the server script shipped next to the launcher.
	ScriptName = "server.py"
	// DotEnvName is the optional env file read from the install dir.
	DotEnvName = ".env"

	CredentialVar  = "FMP_API_KEY"
	TransportVar   = "MCP_TRANSPORT"
	TransportStdio = "stdio"

	EnvPython   = "FMP_MCP_PYTHON"
	EnvLogLevel = "FMP_MCP_LOG_LEVEL"
	EnvLogJSON  = "FMP_MCP_LOG_JSON"
	EnvReceipt  = "FMP_MCP_RECEIPT"
	EnvTrace    = "FMP_MCP_TRACE"
	EnvBPFDir   = "FMP_MCP_BPF_DIR"
)

var (
	ErrScriptNotFound    = errors.New("server script not found")
	ErrCredentialMissing = errors.New(CredentialVar + " environment variable is required")
)

// Config is the launch configuration. It is built once at startup and passed
// by value; nothing mutates it after Validate.
type Config struct {
	// Interpreter runs the script (python3, or python on Windows).
	Interpreter string
	// InstallDir is the directory holding the launcher binary.
	InstallDir string
	// ScriptPath is the absolute path of the server script.
	ScriptPath string
	// CredentialVar must be present and non-empty in BaseEnv.
	CredentialVar string
	// Overlay is forced onto the child environment.
	Overlay map[string]string
	// BaseEnv is the parent environment, merged with the dotenv file.
	BaseEnv []string

	LogLevel    string
	LogJSON     bool
	ReceiptPath string
	Trace       bool
	BPFDir      string
}

// Interpreter maps a GOOS value to the interpreter command.
func Interpreter(goos string) string {
	if goos == "windows" {
		return "python"
	}
	return "python3"
}

// Defaults returns the configuration for a launcher installed in installDir,
// before any environment is consulted.
func Defaults(installDir string) Config {
	return Config{
		Interpreter:   Interpreter(runtime.GOOS),
		InstallDir:    installDir,
		ScriptPath:    filepath.Join(installDir, ScriptName),
		CredentialVar: CredentialVar,
		Overlay:       map[string]string{TransportVar: TransportStdio},
		LogLevel:      "info",
		BPFDir:        filepath.Join(installDir, "ebpf", "objects"),
	}
}

// InstallDir resolves the directory of the running executable, following symlinks.
func InstallDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe), nil
}

// FromEnv builds the configuration from the parent environment and the
// optional dotenv file in installDir. Parent values win over dotenv values.
func FromEnv(installDir string, environ []string) (Config, error) {
	cfg := Defaults(installDir)

	dotenv, err := loadDotEnv(filepath.Join(installDir, DotEnvName))
	if err != nil {
		return cfg, err
	}
	cfg.BaseEnv = mergeEnv(environ, dotenv)

	if v, ok := cfg.Lookup(EnvPython); ok && strings.TrimSpace(v) != "" {
		cfg.Interpreter = strings.TrimSpace(v)
	}
	if v, ok := cfg.Lookup(EnvLogLevel); ok && strings.TrimSpace(v) != "" {
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := cfg.Lookup(EnvLogJSON); ok {
		cfg.LogJSON = isTruthy(v)
	}
	if v, ok := cfg.Lookup(EnvReceipt); ok {
		cfg.ReceiptPath = strings.TrimSpace(v)
	}
	if v, ok := cfg.Lookup(EnvTrace); ok {
		cfg.Trace = isTruthy(v)
	}
	if v, ok := cfg.Lookup(EnvBPFDir); ok && strings.TrimSpace(v) != "" {
		cfg.BPFDir = strings.TrimSpace(v)
	}
	return cfg, nil
}

// Validate runs the startup precondition checks. All failures are reported
// together; any one of them is fatal.
func (c Config) Validate() error {
	var mErr multierror.Error
	if c.Interpreter == "" {
		_ = multierror.Append(&mErr, errors.New("interpreter command required"))
	}
	if _, err := os.Stat(c.ScriptPath); err != nil {
		_ = multierror.Append(&mErr, fmt.Errorf("%w at %s", ErrScriptNotFound, c.ScriptPath))
	}
	if v, ok := c.Lookup(c.CredentialVar); !ok || v == "" {
		_ = multierror.Append(&mErr, ErrCredentialMissing)
	}
	return mErr.ErrorOrNil()
}

// Argv is the child command line.
func (c Config) Argv() []string {
	return []string{c.Interpreter, c.ScriptPath}
}

// Lookup reads a variable from the base environment. The last assignment wins,
// matching how exec treats duplicate keys.
func (c Config) Lookup(key string) (string, bool) {
	for i := len(c.BaseEnv) - 1; i >= 0; i-- {
		k, v, ok := strings.Cut(c.BaseEnv[i], "=")
		if ok && envKeyEqual(k, key) {
			return v, true
		}
	}
	return "", false
}

// ChildEnv is the base environment with the overlay applied. Overlay keys
// replace any inherited value.
func (c Config) ChildEnv() []string {
	out := make([]string, 0, len(c.BaseEnv)+len(c.Overlay))
	for _, kv := range c.BaseEnv {
		k, _, _ := strings.Cut(kv, "=")
		if c.overlays(k) {
			continue
		}
		out = append(out, kv)
	}
	for _, k := range sortedKeys(c.Overlay) {
		out = append(out, k+"="+c.Overlay[k])
	}
	return out
}

func (c Config) overlays(key string) bool {
	for k := range c.Overlay {
		if envKeyEqual(k, key) {
			return true
		}
	}
	return false
}

func loadDotEnv(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	vars, err := envparse.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return vars, nil
}

func mergeEnv(environ []string, extra map[string]string) []string {
	out := append([]string(nil), environ...)
	if len(extra) == 0 {
		return out
	}
	present := make(map[string]struct{}, len(environ))
	for _, kv := range environ {
		k, _, _ := strings.Cut(kv, "=")
		present[normalizeKey(k)] = struct{}{}
	}
	for _, k := range sortedKeys(extra) {
		if _, ok := present[normalizeKey(k)]; ok {
			continue
		}
		out = append(out, k+"="+extra[k])
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Windows environment keys are case-insensitive.
func normalizeKey(key string) string {
	if runtime.GOOS == "windows" {
		return strings.ToUpper(key)
	}
	return key
}

func envKeyEqual(a, b string) bool {
	return normalizeKey(a) == normalizeKey(b)
}

func isTruthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
