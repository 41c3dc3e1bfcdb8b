package launch

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/shoenig/test/must"
)

func writeScript(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, ScriptName)
	must.NoError(t, os.WriteFile(path, []byte("print('ok')\n"), 0o644))
	return path
}

func TestInterpreterByPlatform(t *testing.T) {
	cases := []struct {
		goos string
		want string
	}{
		{goos: "windows", want: "python"},
		{goos: "linux", want: "python3"},
		{goos: "darwin", want: "python3"},
		{goos: "freebsd", want: "python3"},
	}
	for _, tc := range cases {
		t.Run(tc.goos, func(t *testing.T) {
			must.Eq(t, tc.want, Interpreter(tc.goos))
		})
	}
}

func TestDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg := Defaults(dir)
	must.Eq(t, Interpreter(runtime.GOOS), cfg.Interpreter)
	must.Eq(t, filepath.Join(dir, ScriptName), cfg.ScriptPath)
	must.Eq(t, CredentialVar, cfg.CredentialVar)
	must.Eq(t, TransportStdio, cfg.Overlay[TransportVar])
	must.Eq(t, "info", cfg.LogLevel)
	must.False(t, cfg.Trace)
}

func TestValidateMissingScript(t *testing.T) {
	dir := t.TempDir()
	cfg, err := FromEnv(dir, []string{CredentialVar + "=secret"})
	must.NoError(t, err)

	err = cfg.Validate()
	must.ErrorIs(t, err, ErrScriptNotFound)
	must.StrContains(t, err.Error(), cfg.ScriptPath)
	must.False(t, errors.Is(err, ErrCredentialMissing))
}

func TestValidateMissingCredential(t *testing.T) {
	cases := []struct {
		name    string
		environ []string
	}{
		{name: "unset", environ: []string{"HOME=/tmp"}},
		{name: "empty", environ: []string{CredentialVar + "="}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			writeScript(t, dir)
			cfg, err := FromEnv(dir, tc.environ)
			must.NoError(t, err)
			must.ErrorIs(t, cfg.Validate(), ErrCredentialMissing)
		})
	}
}

func TestValidateAcceptsWhitespaceCredential(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir)
	cfg, err := FromEnv(dir, []string{CredentialVar + "=   "})
	must.NoError(t, err)
	must.NoError(t, cfg.Validate())
}

func TestValidateReportsBothFailures(t *testing.T) {
	cfg, err := FromEnv(t.TempDir(), nil)
	must.NoError(t, err)
	err = cfg.Validate()
	must.ErrorIs(t, err, ErrScriptNotFound)
	must.ErrorIs(t, err, ErrCredentialMissing)
}

func TestValidateOK(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir)
	cfg, err := FromEnv(dir, []string{CredentialVar + "=secret"})
	must.NoError(t, err)
	must.NoError(t, cfg.Validate())
	must.Eq(t, []string{cfg.Interpreter, filepath.Join(dir, ScriptName)}, cfg.Argv())
}

func TestChildEnvForcesTransport(t *testing.T) {
	dir := t.TempDir()
	environ := []string{
		"PATH=/usr/bin",
		TransportVar + "=http",
		CredentialVar + "=secret",
	}
	cfg, err := FromEnv(dir, environ)
	must.NoError(t, err)

	env := cfg.ChildEnv()
	var transport []string
	for _, kv := range env {
		if strings.HasPrefix(kv, TransportVar+"=") {
			transport = append(transport, kv)
		}
	}
	must.Eq(t, []string{TransportVar + "=" + TransportStdio}, transport)
	must.SliceContains(t, env, "PATH=/usr/bin")
	must.SliceContains(t, env, CredentialVar+"=secret")
}

func TestChildEnvWithoutInheritedTransport(t *testing.T) {
	cfg, err := FromEnv(t.TempDir(), []string{"A=1"})
	must.NoError(t, err)
	must.Eq(t, []string{"A=1", TransportVar + "=" + TransportStdio}, cfg.ChildEnv())
}

func TestFromEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	cfg, err := FromEnv(dir, []string{
		EnvPython + "=/usr/local/bin/python3.12",
		EnvLogLevel + "=DEBUG",
		EnvLogJSON + "=yes",
		EnvReceipt + "=/tmp/receipt.json",
		EnvTrace + "=1",
		EnvBPFDir + "=/opt/bpf",
	})
	must.NoError(t, err)
	must.Eq(t, "/usr/local/bin/python3.12", cfg.Interpreter)
	must.Eq(t, "debug", cfg.LogLevel)
	must.True(t, cfg.LogJSON)
	must.Eq(t, "/tmp/receipt.json", cfg.ReceiptPath)
	must.True(t, cfg.Trace)
	must.Eq(t, "/opt/bpf", cfg.BPFDir)
}

func TestDotEnvFillsMissingValues(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir)
	dotenv := "FMP_API_KEY=from-file\nEXTRA=from-file\n"
	must.NoError(t, os.WriteFile(filepath.Join(dir, DotEnvName), []byte(dotenv), 0o600))

	cfg, err := FromEnv(dir, nil)
	must.NoError(t, err)
	must.NoError(t, cfg.Validate())
	v, ok := cfg.Lookup(CredentialVar)
	must.True(t, ok)
	must.Eq(t, "from-file", v)

	cfg, err = FromEnv(dir, []string{"EXTRA=from-parent"})
	must.NoError(t, err)
	v, _ = cfg.Lookup("EXTRA")
	must.Eq(t, "from-parent", v)
}

func TestDotEnvMalformed(t *testing.T) {
	dir := t.TempDir()
	must.NoError(t, os.WriteFile(filepath.Join(dir, DotEnvName), []byte("NOT VALID LINE\n"), 0o600))
	_, err := FromEnv(dir, nil)
	must.Error(t, err)
	must.StrContains(t, err.Error(), DotEnvName)
}

func TestInstallDir(t *testing.T) {
	dir, err := InstallDir()
	must.NoError(t, err)
	must.True(t, filepath.IsAbs(dir))
}
