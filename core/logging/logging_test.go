package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/shoenig/test/must"
)

func TestNewLevels(t *testing.T) {
	cases := []struct {
		level string
		want  hclog.Level
	}{
		{level: "", want: hclog.Info},
		{level: "bogus", want: hclog.Info},
		{level: "debug", want: hclog.Debug},
		{level: "WARN", want: hclog.Warn},
		{level: "trace", want: hclog.Trace},
		{level: "error", want: hclog.Error},
		{level: "off", want: hclog.Error},
	}
	for _, tc := range cases {
		t.Run(tc.level, func(t *testing.T) {
			logger := New(Options{Level: tc.level, Output: &bytes.Buffer{}})
			must.Eq(t, tc.want, logger.GetLevel())
		})
	}
}

func TestNewWritesNamedLines(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Level: "info", Output: &buf})
	logger.Debug("hidden")
	logger.Error("server script not found", "path", "/opt/fmp/server.py")

	out := buf.String()
	must.StrNotContains(t, out, "hidden")
	must.StrContains(t, out, "[ERROR] fmp-mcp: server script not found")
	must.StrContains(t, out, "path=/opt/fmp/server.py")
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Level: "info", JSON: true, Output: &buf})
	logger.Info("starting FMP MCP server", "pid", 42)

	var line map[string]any
	must.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &line))
	must.Eq(t, "starting FMP MCP server", line["@message"])
	must.Eq(t, "fmp-mcp", line["@module"])
	must.Eq(t, "info", line["@level"])
}
