package builders

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/flowgen/internal/registry"
	"github.com/leapstack-labs/flowgen/pkg/core"
	"github.com/leapstack-labs/flowgen/pkg/ir"
)

func newContext(t *testing.T, node core.Node) *Context {
	t.Helper()
	table := Default()
	b, ok := table.Lookup(node.Type)
	require.True(t, ok, "no builder for %s", node.Type)
	return &Context{
		Node:   &node,
		Ident:  Ident(b.Prefix, node.ID),
		Inputs: registry.NewDefault().DescriptorsFor(node.Type).Inputs,
	}
}

func TestDefault_RegistersEveryBuiltinType(t *testing.T) {
	table := Default()
	assert.Equal(t, []core.NodeType{
		core.NodeTypeJSON, core.NodeTypeListen, core.NodeTypeLog, core.NodeTypeRoute, core.NodeTypeText,
	}, table.Types())

	for _, spec := range registry.NewDefault().Types() {
		b, ok := table.Lookup(spec.Type)
		require.True(t, ok, "missing builder for %s", spec.Type)
		assert.NotEmpty(t, b.Prefix)
		assert.NotNil(t, b.Declare)
		assert.NotNil(t, b.Expression)
	}
}

func TestIdent(t *testing.T) {
	tests := []struct {
		prefix, id, want string
	}{
		{"text", "1", "text_1"},
		{"route", "node-7", "route_node_7"},
		{"json", "a.b c", "json_a_b_c"},
		{"log", "ünï", "log__n_"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Ident(tt.prefix, tt.id))
	}
}

func TestTextSource(t *testing.T) {
	ctx := newContext(t, core.Node{ID: "t1", Type: core.NodeTypeText, Content: `say "hi"`})
	b, _ := Default().Lookup(core.NodeTypeText)

	decls, err := b.Declare(ctx)
	require.NoError(t, err)

	want := []ir.Stmt{&ir.VarDecl{Name: "text_t1", Value: ir.String(`say "hi"`)}}
	if diff := cmp.Diff(want, decls); diff != "" {
		t.Errorf("declaration mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, ir.Name("text_t1"), b.Expression(ctx, nil))
	assert.False(t, b.Effectful)
}

func TestJSONSource(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		want      ir.Expr
		wantError bool
	}{
		{
			name:    "keeps key order",
			content: `{"b": 1, "a": [true, null, "x"]}`,
			want: &ir.Object{Fields: []ir.Field{
				{Key: "b", Value: ir.Number(1)},
				{Key: "a", Value: &ir.Array{Elems: []ir.Expr{ir.Bool(true), ir.Null(), ir.String("x")}}},
			}},
		},
		{
			name:    "duplicate key keeps first position and last value",
			content: `{"a": 1, "b": 2, "a": 3}`,
			want: &ir.Object{Fields: []ir.Field{
				{Key: "a", Value: ir.Number(3)},
				{Key: "b", Value: ir.Number(2)},
			}},
		},
		{name: "scalar document", content: `42`, want: ir.Number(42)},
		{name: "malformed falls back", content: `{`, want: &ir.Object{}, wantError: true},
		{name: "empty falls back", content: ``, want: &ir.Object{}, wantError: true},
		{name: "trailing data falls back", content: `{} {}`, want: &ir.Object{}, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := newContext(t, core.Node{ID: "j", Type: core.NodeTypeJSON, Content: tt.content})
			var parseErrs []error
			ctx.ContentError = func(err error) { parseErrs = append(parseErrs, err) }

			b, _ := Default().Lookup(core.NodeTypeJSON)
			decls, err := b.Declare(ctx)
			require.NoError(t, err, "parse failures never fail the declaration")
			require.Len(t, decls, 1)

			decl := decls[0].(*ir.VarDecl)
			assert.Equal(t, "json_j", decl.Name)
			assert.Equal(t, ir.TypeAny, decl.Type)
			if diff := cmp.Diff(tt.want, decl.Value); diff != "" {
				t.Errorf("value mismatch (-want +got):\n%s", diff)
			}
			if tt.wantError {
				assert.Len(t, parseErrs, 1)
			} else {
				assert.Empty(t, parseErrs)
			}
		})
	}
}

func TestJSONSource_NilContentErrorHook(t *testing.T) {
	ctx := newContext(t, core.Node{ID: "j", Type: core.NodeTypeJSON, Content: "{"})
	b, _ := Default().Lookup(core.NodeTypeJSON)
	_, err := b.Declare(ctx)
	assert.NoError(t, err)
}

func TestLogSink(t *testing.T) {
	ctx := newContext(t, core.Node{ID: "l", Type: core.NodeTypeLog})
	b, _ := Default().Lookup(core.NodeTypeLog)

	decls, err := b.Declare(ctx)
	require.NoError(t, err)

	want := []ir.Stmt{&ir.FuncDecl{
		Name:   "log_l",
		Params: []ir.Param{{Name: "value", Type: ir.TypeAny}},
		Result: ir.TypeAny,
		Body: []ir.Stmt{
			ir.Do(ir.CallNamed("logValue", ir.Name("value"))),
			&ir.Return{Value: ir.Name("value")},
		},
	}}
	if diff := cmp.Diff(want, decls); diff != "" {
		t.Errorf("declaration mismatch (-want +got):\n%s", diff)
	}

	call := b.Expression(ctx, []ir.Expr{ir.Name("text_a")})
	assert.Equal(t, ir.CallNamed("log_l", ir.Name("text_a")), call)
	assert.True(t, b.Effectful)
}

func TestRoute(t *testing.T) {
	ctx := newContext(t, core.Node{ID: "r", Type: core.NodeTypeRoute})
	b, _ := Default().Lookup(core.NodeTypeRoute)

	decls, err := b.Declare(ctx)
	require.NoError(t, err)

	want := []ir.Stmt{&ir.FuncDecl{
		Name: "route_r",
		Params: []ir.Param{
			{Name: "path", Type: ir.TypeString},
			{Name: "value", Type: ir.TypeAny},
		},
		Result: ir.TypeAny,
		Body: []ir.Stmt{
			ir.Do(ir.CallMethod("routes", "register", ir.Name("path"), ir.Name("value"))),
			&ir.Return{Value: ir.Name("value")},
		},
	}}
	if diff := cmp.Diff(want, decls); diff != "" {
		t.Errorf("declaration mismatch (-want +got):\n%s", diff)
	}

	call := b.Expression(ctx, []ir.Expr{ir.String("/"), ir.Null()})
	assert.Equal(t, ir.CallNamed("route_r", ir.String("/"), ir.Null()), call)
}

func TestListen(t *testing.T) {
	ctx := newContext(t, core.Node{ID: "p", Type: core.NodeTypeListen})
	b, _ := Default().Lookup(core.NodeTypeListen)

	decls, err := b.Declare(ctx)
	require.NoError(t, err)

	want := []ir.Stmt{&ir.FuncDecl{
		Name: "listen_p",
		Params: []ir.Param{
			{Name: "port", Type: ir.TypeNumber},
			{Name: "value", Type: ir.TypeAny},
		},
		Result: ir.TypeListener,
		Body: []ir.Stmt{
			&ir.Return{Value: ir.CallMethod("listeners", "start", ir.Name("port"), ir.Name("dispatch"))},
		},
	}}
	if diff := cmp.Diff(want, decls); diff != "" {
		t.Errorf("declaration mismatch (-want +got):\n%s", diff)
	}
}

func TestRoute_MissingPortIsError(t *testing.T) {
	node := core.Node{ID: "r", Type: core.NodeTypeRoute}
	ctx := &Context{Node: &node, Ident: "route_r", Inputs: []core.PropertyDescriptor{{ID: "value"}}}
	b, _ := Default().Lookup(core.NodeTypeRoute)

	_, err := b.Declare(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no "path" input`)
}

func TestTable_Register(t *testing.T) {
	table := NewTable()
	_, ok := table.Lookup(core.NodeTypeText)
	assert.False(t, ok)

	table.Register("const", Builder{Prefix: "const", Expression: reference})
	b, ok := table.Lookup("const")
	require.True(t, ok)
	assert.Equal(t, "const", b.Prefix)
}

func TestParamType(t *testing.T) {
	assert.Equal(t, ir.TypeString, ParamType(core.DataTypeString))
	assert.Equal(t, ir.TypeNumber, ParamType(core.DataTypeNumber))
	assert.Equal(t, ir.TypeAny, ParamType(core.DataTypeJSON))
	assert.Equal(t, ir.TypeAny, ParamType(core.DataTypeResponse))
}
