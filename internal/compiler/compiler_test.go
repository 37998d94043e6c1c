package compiler

import (
	"errors"
	"go/parser"
	"go/token"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/flowgen/internal/resolver"
	"github.com/leapstack-labs/flowgen/pkg/core"
	"github.com/leapstack-labs/flowgen/pkg/format"
	"github.com/leapstack-labs/flowgen/pkg/ir"
)

func conn(id, src, srcPort, dst, dstPort string) core.Connection {
	return core.Connection{ID: id, SourceNodeID: src, SourceOutputID: srcPort, TargetNodeID: dst, TargetInputID: dstPort}
}

// helloWorld is a route serving "world" under the path "hello" on port 4000.
func helloWorld() *core.Graph {
	return &core.Graph{
		Nodes: []core.Node{
			{ID: "h", Type: core.NodeTypeText, Content: "hello"},
			{ID: "w", Type: core.NodeTypeText, Content: "world"},
			{ID: "r", Type: core.NodeTypeRoute},
			{ID: "p", Type: core.NodeTypeListen},
		},
		Connections: []core.Connection{
			conn("c1", "h", "output", "r", "path"),
			conn("c2", "w", "output", "r", "value"),
			conn("c3", "r", "output", "p", "value"),
		},
		Overrides: core.Overrides{"p": {"port": 4000}},
	}
}

func compileGo(t *testing.T, g *core.Graph) *Result {
	t.Helper()
	res, err := Compile(g, Options{})
	require.NoError(t, err)
	assertParsesAsGo(t, res.Source)
	return res
}

func assertParsesAsGo(t *testing.T, src string) {
	t.Helper()
	_, err := parser.ParseFile(token.NewFileSet(), "main.go", src, parser.AllErrors)
	require.NoError(t, err, src)
}

func TestCompile_LogAtStartup(t *testing.T) {
	g := &core.Graph{
		Nodes: []core.Node{
			{ID: "t", Type: core.NodeTypeText, Content: "hi"},
			{ID: "l", Type: core.NodeTypeLog},
			{ID: "p", Type: core.NodeTypeListen},
		},
		Connections: []core.Connection{conn("c1", "t", "output", "l", "value")},
		Overrides:   core.Overrides{"p": {"port": 4000}},
	}

	res := compileGo(t, g)
	assert.Contains(t, res.Source, `var text_t = "hi"`)
	assert.Contains(t, res.Source, "listeners.track(listen_p(4000, nil))")
	assert.Contains(t, res.Source, "log_l(text_t)")
	assert.Empty(t, res.Warnings)

	main := res.Program.Main
	require.Len(t, main, 4)
	assert.Equal(t, ir.Do(ir.CallNamed("log_l", ir.Name("text_t"))), main[1])
	assert.Equal(t, ir.Do(ir.CallMethod("listeners", "serveAll")), main[2])
	assert.Equal(t, ir.Do(ir.CallMethod("listeners", "closeOnSignal")), main[3])
}

func TestCompile_RouteServesValue(t *testing.T) {
	res := compileGo(t, helloWorld())

	assert.Contains(t, res.Source, "listeners.track(listen_p(4000, route_r(text_h, text_w)))")
	assert.Contains(t, res.Source, "func route_r(path string, value any) any {")
	assert.Contains(t, res.Source, "routes.register(path, value)")
	assert.Contains(t, res.Source, "func dispatch(req *http.Request, res http.ResponseWriter) {")
	assert.Equal(t, Stats{Nodes: 4, Connections: 3, Declarations: 4, Terminals: 1}, res.Stats)
}

func TestCompile_MalformedJSONRecovers(t *testing.T) {
	g := &core.Graph{
		Nodes: []core.Node{
			{ID: "j", Type: core.NodeTypeJSON, Content: "{"},
			{ID: "r", Type: core.NodeTypeRoute},
			{ID: "p", Type: core.NodeTypeListen},
		},
		Connections: []core.Connection{
			conn("c1", "j", "output", "r", "value"),
			conn("c2", "r", "output", "p", "value"),
		},
	}

	res := compileGo(t, g)
	assert.Contains(t, res.Source, "var json_j any = object{}")
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, CodeContentParse, res.Warnings[0].Code)
	assert.Equal(t, "j", res.Warnings[0].NodeID)
	assert.Equal(t, core.SeverityWarning, res.Warnings[0].Severity)
}

func TestCompile_StrictJSON(t *testing.T) {
	g := &core.Graph{
		Nodes: []core.Node{
			{ID: "j", Type: core.NodeTypeJSON, Content: `{"a": }`},
			{ID: "p", Type: core.NodeTypeListen},
		},
	}

	_, err := Compile(g, Options{StrictJSON: true})
	var perr *ContentParseError
	require.True(t, errors.As(err, &perr), "got %v", err)
	assert.Equal(t, "j", perr.NodeID())
}

func TestCompile_JSONKeepsKeyOrder(t *testing.T) {
	g := &core.Graph{
		Nodes: []core.Node{
			{ID: "j", Type: core.NodeTypeJSON, Content: `{"z": 1, "a": [true, null], "m": {"k": "v"}}`},
			{ID: "r", Type: core.NodeTypeRoute},
			{ID: "p", Type: core.NodeTypeListen},
		},
		Connections: []core.Connection{
			conn("c1", "j", "output", "r", "value"),
			conn("c2", "r", "output", "p", "value"),
		},
	}

	res := compileGo(t, g)
	assert.Contains(t, res.Source, `object{{"z", 1}, {"a", []any{true, nil}}, {"m", object{{"k", "v"}}}}`)
}

func TestCompile_SharedSourceDeclaredOnce(t *testing.T) {
	g := &core.Graph{
		Nodes: []core.Node{
			{ID: "t", Type: core.NodeTypeText, Content: "shared"},
			{ID: "l", Type: core.NodeTypeLog},
			{ID: "r", Type: core.NodeTypeRoute},
			{ID: "p", Type: core.NodeTypeListen},
		},
		Connections: []core.Connection{
			conn("c1", "t", "output", "l", "value"),
			conn("c2", "t", "output", "r", "value"),
			conn("c3", "r", "output", "p", "value"),
		},
	}

	res := compileGo(t, g)
	assert.Equal(t, 1, strings.Count(res.Source, "var text_t ="))
	assert.Contains(t, res.Source, `route_r("/", text_t)`)
	assert.Contains(t, res.Source, "log_l(text_t)")
	assert.Zero(t, res.Stats.Hoisted)
}

func TestCompile_EffectfulFanOutEvaluatedOnce(t *testing.T) {
	g := &core.Graph{
		Nodes: []core.Node{
			{ID: "t", Type: core.NodeTypeText, Content: "x"},
			{ID: "l", Type: core.NodeTypeLog},
			{ID: "a", Type: core.NodeTypeRoute},
			{ID: "b", Type: core.NodeTypeRoute},
			{ID: "p1", Type: core.NodeTypeListen},
			{ID: "p2", Type: core.NodeTypeListen},
		},
		Connections: []core.Connection{
			conn("c1", "t", "output", "l", "value"),
			conn("c2", "l", "output", "a", "value"),
			conn("c3", "l", "output", "b", "value"),
			conn("c4", "a", "output", "p1", "value"),
			conn("c5", "b", "output", "p2", "value"),
		},
		Overrides: core.Overrides{
			"a":  {"path": "/a"},
			"b":  {"path": "/b"},
			"p2": {"port": 3001},
		},
	}

	res := compileGo(t, g)
	assert.Equal(t, 1, strings.Count(res.Source, "log_l(text_t)"))
	assert.Contains(t, res.Source, "log_l_value := log_l(text_t)")
	assert.Contains(t, res.Source, `listeners.track(listen_p1(3000, route_a("/a", log_l_value)))`)
	assert.Contains(t, res.Source, `listeners.track(listen_p2(3001, route_b("/b", log_l_value)))`)
	assert.Equal(t, 1, res.Stats.Hoisted)

	// the local is bound before its first use
	hoisted := strings.Index(res.Source, "log_l_value :=")
	first := strings.Index(res.Source, "listen_p1(3000")
	assert.Less(t, hoisted, first)
}

func TestCompile_ArgumentsFollowPortOrder(t *testing.T) {
	g := helloWorld()
	// connections created value-first
	g.Connections = []core.Connection{
		conn("c2", "w", "output", "r", "value"),
		conn("c3", "r", "output", "p", "value"),
		conn("c1", "h", "output", "r", "path"),
	}

	res := compileGo(t, g)
	assert.Contains(t, res.Source, "route_r(text_h, text_w)")
}

func TestCompile_DefaultPrecedence(t *testing.T) {
	base := func() *core.Graph {
		return &core.Graph{
			Nodes: []core.Node{
				{ID: "w", Type: core.NodeTypeText, Content: "world"},
				{ID: "r", Type: core.NodeTypeRoute},
				{ID: "p", Type: core.NodeTypeListen},
			},
			Connections: []core.Connection{
				conn("c1", "w", "output", "r", "value"),
				conn("c2", "r", "output", "p", "value"),
			},
		}
	}

	tests := []struct {
		name      string
		overrides core.Overrides
		want      string
	}{
		{"defaults", nil, `listen_p(3000, route_r("/", text_w))`},
		{"overrides", core.Overrides{"r": {"path": "/x"}, "p": {"port": "8080"}}, `listen_p(8080, route_r("/x", text_w))`},
		{"connected input ignores override", core.Overrides{"r": {"value": "nope"}}, `route_r("/", text_w)`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := base()
			g.Overrides = tt.overrides
			res := compileGo(t, g)
			assert.Contains(t, res.Source, tt.want)
		})
	}
}

func TestCompile_NoEndpoint(t *testing.T) {
	tests := []struct {
		name string
		g    *core.Graph
	}{
		{"empty graph", &core.Graph{}},
		{"sources only", &core.Graph{Nodes: []core.Node{
			{ID: "t", Type: core.NodeTypeText, Content: "hi"},
			{ID: "l", Type: core.NodeTypeLog},
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.g, Options{})
			var nerr *NoEndpointError
			require.True(t, errors.As(err, &nerr), "got %v", err)
			assert.Equal(t, "graph has no listen node", err.Error())
		})
	}
}

func TestCompile_Cycle(t *testing.T) {
	g := &core.Graph{
		Nodes: []core.Node{
			{ID: "a", Type: core.NodeTypeLog},
			{ID: "b", Type: core.NodeTypeLog},
			{ID: "p", Type: core.NodeTypeListen},
		},
		Connections: []core.Connection{
			conn("c1", "b", "output", "a", "value"),
			conn("c2", "a", "output", "b", "value"),
			conn("c3", "a", "output", "p", "value"),
		},
	}

	_, err := Compile(g, Options{})
	var verr *GraphValidationError
	require.True(t, errors.As(err, &verr), "got %v", err)
	assert.Contains(t, err.Error(), "cyclic graph")
	assert.Equal(t, []string{"a", "b", "a"}, verr.Cycle)
}

func TestCompile_SelfLoop(t *testing.T) {
	g := &core.Graph{
		Nodes: []core.Node{
			{ID: "a", Type: core.NodeTypeLog},
			{ID: "p", Type: core.NodeTypeListen},
		},
		Connections: []core.Connection{conn("c1", "a", "output", "a", "value")},
	}

	_, err := Compile(g, Options{})
	var verr *GraphValidationError
	require.True(t, errors.As(err, &verr), "got %v", err)
	assert.Equal(t, []string{"a", "a"}, verr.Cycle)
}

func TestCompile_InvalidGraphs(t *testing.T) {
	nodes := []core.Node{
		{ID: "t", Type: core.NodeTypeText, Content: "hi"},
		{ID: "l", Type: core.NodeTypeLog},
		{ID: "r", Type: core.NodeTypeRoute},
		{ID: "p", Type: core.NodeTypeListen},
	}

	tests := []struct {
		name        string
		nodes       []core.Node
		connections []core.Connection
		overrides   core.Overrides
		wantConn    string
		wantMsg     string
	}{
		{
			name:        "missing source node",
			connections: []core.Connection{conn("c1", "ghost", "output", "r", "value")},
			wantConn:    "c1",
			wantMsg:     `source node "ghost" does not exist`,
		},
		{
			name:        "missing target node",
			connections: []core.Connection{conn("c1", "t", "output", "ghost", "value")},
			wantConn:    "c1",
			wantMsg:     `target node "ghost" does not exist`,
		},
		{
			name:        "unknown output port",
			connections: []core.Connection{conn("c1", "t", "result", "r", "value")},
			wantConn:    "c1",
			wantMsg:     `has no output "result"`,
		},
		{
			name:        "unknown input port",
			connections: []core.Connection{conn("c1", "t", "output", "r", "method")},
			wantConn:    "c1",
			wantMsg:     `has no input "method"`,
		},
		{
			name:        "type mismatch",
			connections: []core.Connection{conn("c1", "l", "output", "r", "path")},
			wantConn:    "c1",
			wantMsg:     "cannot feed any output",
		},
		{
			name: "duplicate input",
			connections: []core.Connection{
				conn("c1", "t", "output", "r", "value"),
				conn("c2", "l", "output", "r", "input"),
			},
			wantConn: "c2",
			wantMsg:  "already connected",
		},
		{
			name:      "port out of range",
			overrides: core.Overrides{"p": {"port": 70000}},
			wantMsg:   "not an integer between 0 and 65535",
		},
		{
			name:      "port not a number",
			overrides: core.Overrides{"p": {"port": "eighty"}},
			wantMsg:   `invalid value for input "port"`,
		},
		{
			name:    "duplicate node id",
			nodes:   append(append([]core.Node(nil), nodes...), core.Node{ID: "t", Type: core.NodeTypeText}),
			wantMsg: "duplicate node id",
		},
		{
			name:    "unknown node type",
			nodes:   append(append([]core.Node(nil), nodes...), core.Node{ID: "x", Type: "video-source"}),
			wantMsg: `unknown node type "video-source"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &core.Graph{Nodes: nodes, Connections: tt.connections, Overrides: tt.overrides}
			if tt.nodes != nil {
				g.Nodes = tt.nodes
			}

			_, err := Compile(g, Options{})
			var verr *GraphValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Contains(t, err.Error(), tt.wantMsg)
			assert.Equal(t, tt.wantConn, verr.ConnectionID)
		})
	}
}

func TestCompile_LiteralErrorUnwraps(t *testing.T) {
	g := helloWorld()
	g.Overrides = core.Overrides{"p": {"port": "eighty"}}

	_, err := Compile(g, Options{})
	var lit *resolver.LiteralError
	require.True(t, errors.As(err, &lit))
	assert.Equal(t, "port", lit.PortID)
}

func TestCompile_Warnings(t *testing.T) {
	g := helloWorld()
	g.Nodes = append(g.Nodes, core.Node{ID: "orphan", Type: core.NodeTypeText, Content: "unused"})
	g.Overrides = core.Overrides{
		"p":     {"port": 4000, "host": "localhost"},
		"ghost": {"value": 1},
	}

	res := compileGo(t, g)
	want := []core.Diagnostic{
		{Severity: core.SeverityWarning, NodeID: "ghost", Code: CodeUnknownOverride, Message: "override for unknown node"},
		{Severity: core.SeverityWarning, NodeID: "p", Code: CodeUnknownOverride, Message: "override for unknown input host"},
		{Severity: core.SeverityWarning, NodeID: "orphan", Code: CodeUnreachable, Message: "node does not feed any listen node and is never evaluated"},
	}
	if diff := cmp.Diff(want, res.Warnings); diff != "" {
		t.Errorf("warnings mismatch (-want +got):\n%s", diff)
	}

	// unreachable nodes are still declared
	assert.Contains(t, res.Source, `var text_orphan = "unused"`)
}

func TestCompile_IdentifierCollisions(t *testing.T) {
	g := &core.Graph{
		Nodes: []core.Node{
			{ID: "a-b", Type: core.NodeTypeText, Content: "one"},
			{ID: "a_b", Type: core.NodeTypeText, Content: "two"},
			{ID: "ü", Type: core.NodeTypeLog},
			{ID: "p", Type: core.NodeTypeListen},
		},
		Connections: []core.Connection{
			conn("c1", "a-b", "output", "ü", "value"),
			conn("c2", "a_b", "output", "p", "value"),
		},
	}

	res := compileGo(t, g)
	assert.Contains(t, res.Source, `var text_a_b = "one"`)
	assert.Contains(t, res.Source, `var text_a_b_1 = "two"`)
	assert.Contains(t, res.Source, "log__(text_a_b)")
	assert.Contains(t, res.Source, "listen_p(3000, text_a_b_1)")
}

func TestCompile_LegacyTags(t *testing.T) {
	g := &core.Graph{
		Nodes: []core.Node{
			{ID: "t", Type: "TEXT", Content: "hi"},
			{ID: "p", Type: "PORT"},
		},
		Connections: []core.Connection{conn("c1", "t", "output", "p", "input")},
	}
	for i := range g.Nodes {
		nt, ok := core.ParseNodeType(string(g.Nodes[i].Type))
		require.True(t, ok)
		g.Nodes[i].Type = nt
	}

	res := compileGo(t, g)
	assert.Contains(t, res.Source, "listen_p(3000, text_t)")
}

func TestCompile_Deterministic(t *testing.T) {
	g := helloWorld()
	g.Overrides["r"] = map[string]any{"path": "/ignored"}

	first, err := Compile(g, Options{})
	require.NoError(t, err)
	second, err := Compile(g, Options{})
	require.NoError(t, err)
	assert.Equal(t, first.Source, second.Source)

	js1, err := Compile(g, Options{Target: format.TargetJavaScript})
	require.NoError(t, err)
	js2, err := Compile(g, Options{Target: format.TargetJavaScript})
	require.NoError(t, err)
	assert.Equal(t, js1.Source, js2.Source)
}

func TestCompile_DoesNotMutateGraph(t *testing.T) {
	g := helloWorld()
	g.Nodes = append(g.Nodes, core.Node{ID: "j", Type: core.NodeTypeJSON, Content: "{"})
	before := helloWorld()
	before.Nodes = append(before.Nodes, core.Node{ID: "j", Type: core.NodeTypeJSON, Content: "{"})

	_, err := Compile(g, Options{})
	require.NoError(t, err)
	if diff := cmp.Diff(before, g); diff != "" {
		t.Errorf("graph mutated (-before +after):\n%s", diff)
	}
}

func TestCompile_JavaScript(t *testing.T) {
	res, err := Compile(helloWorld(), Options{Target: format.TargetJavaScript})
	require.NoError(t, err)

	assert.Equal(t, format.TargetJavaScript, res.Target)
	assert.Contains(t, res.Source, `const text_h = "hello";`)
	assert.Contains(t, res.Source, "function route_r(path, value) {")
	assert.Contains(t, res.Source, "listeners.track(listen_p(4000, route_r(text_h, text_w)));")
	assert.Contains(t, res.Source, "} catch (err) {")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(res.Source), "listeners.closeOnSignal();"))
}

func TestCheck(t *testing.T) {
	warnings, err := Check(helloWorld(), Options{})
	require.NoError(t, err)
	assert.Empty(t, warnings)

	_, err = Check(&core.Graph{}, Options{})
	require.Error(t, err)
}

func TestLower_Prelude(t *testing.T) {
	prog, _, err := Lower(helloWorld(), Options{})
	require.NoError(t, err)

	var names []string
	for _, d := range prog.Decls[:5] {
		switch d := d.(type) {
		case *ir.VarDecl:
			names = append(names, d.Name)
		case *ir.FuncDecl:
			names = append(names, d.Name)
		}
	}
	assert.Equal(t, []string{"routes", "listeners", "handleError", "notFound", "dispatch"}, names)
	assert.Len(t, prog.Decls, 9)
}

// wideGraph fans n text sources into n dangling log sinks next to one listen node.
func wideGraph(n int) *core.Graph {
	g := &core.Graph{Nodes: []core.Node{{ID: "p", Type: core.NodeTypeListen}}}
	for i := 0; i < n; i++ {
		id := strconv.Itoa(i)
		g.Nodes = append(g.Nodes,
			core.Node{ID: "t" + id, Type: core.NodeTypeText, Content: id},
			core.Node{ID: "l" + id, Type: core.NodeTypeLog},
		)
		g.Connections = append(g.Connections, conn("c"+id, "t"+id, "output", "l"+id, "value"))
	}
	return g
}

func TestCompile_WideGraph(t *testing.T) {
	const n = 2000

	prog, warnings, err := Lower(wideGraph(n), Options{})
	require.NoError(t, err)
	assert.Empty(t, warnings)

	// one startup call per sink after the listener, then serveAll and closeOnSignal
	require.Len(t, prog.Main, n+3)
	assert.Equal(t, ir.Do(ir.CallNamed("log_l0", ir.Name("text_t0"))), prog.Main[1])
	assert.Equal(t, ir.Do(ir.CallNamed("log_l1999", ir.Name("text_t1999"))), prog.Main[n])

	g := wideGraph(n)
	g.Connections = append(g.Connections, conn("bad", "t0", "output", "ghost", "value"))
	_, err = Check(g, Options{})
	var verr *GraphValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "bad", verr.ConnectionID)
}
