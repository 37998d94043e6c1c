// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/leapstack-labs/flowgen/internal/cli/output"
)

// ValidGraph serves "hello" on /hello at port 8080 and logs it on the way.
const ValidGraph = `{
  "nodes": [
    {"id": "t1", "type": "text-source", "content": "hello"},
    {"id": "l1", "type": "log-sink"},
    {"id": "r1", "type": "route"},
    {"id": "p1", "type": "listen"},
    {"id": "orphan", "type": "text-source", "content": "unused"}
  ],
  "connections": [
    {"id": "c1", "sourceNodeId": "t1", "sourceOutputId": "output", "targetNodeId": "l1", "targetInputId": "value"},
    {"id": "c2", "sourceNodeId": "l1", "sourceOutputId": "output", "targetNodeId": "r1", "targetInputId": "value"},
    {"id": "c3", "sourceNodeId": "r1", "sourceOutputId": "output", "targetNodeId": "p1", "targetInputId": "value"}
  ],
  "overrides": {"r1": {"path": "/hello"}, "p1": {"port": 8080}}
}`

// NoEndpointGraph has no listen node.
const NoEndpointGraph = `{
  "nodes": [
    {"id": "t1", "type": "text-source", "content": "hello"},
    {"id": "r1", "type": "route"}
  ],
  "connections": [
    {"id": "c1", "sourceNodeId": "t1", "sourceOutputId": "output", "targetNodeId": "r1", "targetInputId": "value"}
  ]
}`

// SetupTestProject creates a temporary project holding flow.json,
// broken.json and a flowgen.yaml that keeps build history inside the project.
// It changes the working directory to the project for the rest of the test.
func SetupTestProject(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()

	files := map[string]string{
		"flow.json":    ValidGraph,
		"broken.json":  NoEndpointGraph,
		"flowgen.yaml": "state_path: .flowgen/history.db\nlog_level: error\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(tmpDir, name), []byte(content), 0o600); err != nil {
			t.Fatalf("failed to create %s: %v", name, err)
		}
	}

	t.Chdir(tmpDir)
	return tmpDir
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a new test renderer with the specified mode and TTY state.
// Output is captured in buffers for inspection.
func NewTestRenderer(mode output.Mode, isTTY bool) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRendererWithTTY(out, errOut, isTTY, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// NewTestRendererText creates a new test renderer in text mode (simulated TTY).
func NewTestRendererText() *TestRenderer {
	return NewTestRenderer(output.ModeText, true)
}

// NewTestRendererMarkdown creates a new test renderer in markdown mode.
func NewTestRendererMarkdown() *TestRenderer {
	return NewTestRenderer(output.ModeMarkdown, false)
}

// NewTestRendererJSON creates a new test renderer in JSON mode.
func NewTestRendererJSON() *TestRenderer {
	return NewTestRenderer(output.ModeJSON, false)
}

// Output returns the stdout output as a string.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ErrorOutput returns the stderr output as a string.
func (tr *TestRenderer) ErrorOutput() string {
	return tr.ErrOut.String()
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}

// AssertValidMarkdown performs basic markdown validation.
// It checks for unclosed code fences and empty headers.
func AssertValidMarkdown(t *testing.T, md string) {
	t.Helper()

	if fenceCount := strings.Count(md, "```"); fenceCount%2 != 0 {
		t.Errorf("unbalanced code fences in markdown: found %d occurrences", fenceCount)
	}

	for i, line := range strings.Split(md, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") && strings.TrimLeft(trimmed, "# ") == "" {
			t.Errorf("empty header at line %d: %q", i+1, line)
		}
	}
}
