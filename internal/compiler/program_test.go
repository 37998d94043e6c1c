//go:build !windows

package compiler

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/flowgen/pkg/core"
	"github.com/leapstack-labs/flowgen/pkg/format"
	"github.com/leapstack-labs/flowgen/pkg/ir"
)

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

// servingGraph logs "hi" at startup, serves "world" under the path "hello"
// on one listener and a JSON document under "data" on another.
func servingGraph(textPort, jsonPort int) *core.Graph {
	return &core.Graph{
		Nodes: []core.Node{
			{ID: "hi", Type: core.NodeTypeText, Content: "hi"},
			{ID: "log", Type: core.NodeTypeLog},
			{ID: "h", Type: core.NodeTypeText, Content: "hello"},
			{ID: "w", Type: core.NodeTypeText, Content: "world"},
			{ID: "r", Type: core.NodeTypeRoute},
			{ID: "p", Type: core.NodeTypeListen},
			{ID: "doc", Type: core.NodeTypeJSON, Content: `{"b": 1, "a": [true, null]}`},
			{ID: "rd", Type: core.NodeTypeRoute},
			{ID: "pd", Type: core.NodeTypeListen},
		},
		Connections: []core.Connection{
			conn("c1", "hi", "output", "log", "value"),
			conn("c2", "h", "output", "r", "path"),
			conn("c3", "w", "output", "r", "value"),
			conn("c4", "r", "output", "p", "value"),
			conn("c5", "doc", "output", "rd", "value"),
			conn("c6", "rd", "output", "pd", "value"),
		},
		Overrides: core.Overrides{
			"p":  {"port": textPort},
			"rd": {"path": "data"},
			"pd": {"port": jsonPort},
		},
	}
}

// buildProgram writes src as a main package and builds it.
func buildProgram(t *testing.T, src string) string {
	t.Helper()
	goBin, err := exec.LookPath("go")
	if err != nil {
		t.Skip("go toolchain not available")
	}

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module flowapp\n\ngo 1.24\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte(src), 0o600))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	bin := filepath.Join(dir, "flowapp")
	cmd := exec.CommandContext(ctx, goBin, "build", "-o", bin, ".")
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "go build failed:\n%s\n%s", out, src)
	return bin
}

func get(t *testing.T, url string) (int, string, string) {
	t.Helper()
	resp, err := http.Get(url) //nolint:gosec,noctx // local test server
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, resp.Header.Get("Content-Type"), string(body)
}

func TestCompile_EmittedProgramServes(t *testing.T) {
	if testing.Short() {
		t.Skip("builds and runs the generated program")
	}

	textPort, jsonPort := freePort(t), freePort(t)
	prog, _, err := Lower(servingGraph(textPort, jsonPort), Options{})
	require.NoError(t, err)

	// A route whose value cannot be encoded exercises the error handler.
	startup := len(prog.Main) - 2
	prog.Main = append(prog.Main[:startup:startup], append([]ir.Stmt{
		ir.Do(ir.CallMethod("routes", "register", ir.String("/boom"), ir.Name("logValue"))),
	}, prog.Main[startup:]...)...)

	src, err := format.Format(prog, format.TargetGo)
	require.NoError(t, err)
	bin := buildProgram(t, src)

	var stdout, stderr bytes.Buffer
	cmd := exec.Command(bin)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	require.NoError(t, cmd.Start())
	t.Cleanup(func() { _ = cmd.Process.Kill() })

	textURL := "http://127.0.0.1:" + strconv.Itoa(textPort)
	jsonURL := "http://127.0.0.1:" + strconv.Itoa(jsonPort)

	require.Eventually(t, func() bool {
		resp, err := http.Get(textURL + "/hello") //nolint:gosec,noctx // local test server
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return true
	}, 10*time.Second, 50*time.Millisecond)

	status, contentType, body := get(t, textURL+"/hello")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "text/plain", contentType)
	assert.Equal(t, "world", body)

	status, contentType, body = get(t, jsonURL+"/data")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, `{"b":1,"a":[true,null]}`, body)

	// every listener serves the whole route table
	status, _, body = get(t, jsonURL+"/hello")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "world", body)

	status, contentType, body = get(t, textURL+"/missing")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "text/plain", contentType)
	assert.Equal(t, "Not Found", body)

	status, contentType, body = get(t, textURL+"/boom")
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "text/plain", contentType)
	assert.Equal(t, "Internal Server Error", body)

	require.NoError(t, cmd.Process.Signal(syscall.SIGTERM))
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	select {
	case err := <-done:
		require.NoError(t, err, "stderr:\n%s", stderr.String())
	case <-time.After(15 * time.Second):
		t.Fatal("generated program did not exit after SIGTERM")
	}

	assert.Equal(t, "hi\n", stdout.String(), "the log sink runs once at startup")
	assert.Contains(t, stderr.String(), "server error:")
	assert.Contains(t, stderr.String(), "all listeners closed")
}
