package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNodeType(t *testing.T) {
	tests := []struct {
		in   string
		want NodeType
		ok   bool
	}{
		{"text-source", NodeTypeText, true},
		{"JSON", NodeTypeJSON, true},
		{"log", NodeTypeLog, true},
		{"ROUTER", NodeTypeRoute, true},
		{" PORT ", NodeTypeListen, true},
		{"Listen", NodeTypeListen, true},
		{"webhook", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseNodeType(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDataType_Accepts(t *testing.T) {
	assert.True(t, DataTypeAny.Accepts(DataTypeJSON))
	assert.True(t, DataTypeAny.Accepts(DataTypeResponse))
	assert.True(t, DataTypeString.Accepts(DataTypeString))
	assert.False(t, DataTypeString.Accepts(DataTypeAny))
	assert.False(t, DataTypeNumber.Accepts(DataTypeString))
}

func TestOverrides(t *testing.T) {
	o := Overrides{}
	_, ok := o.Lookup("n1", "port")
	assert.False(t, ok)

	o.Set("n1", "port", 4000)
	v, ok := o.Lookup("n1", "port")
	require.True(t, ok)
	assert.Equal(t, 4000, v)

	var nilOverrides Overrides
	_, ok = nilOverrides.Lookup("n1", "port")
	assert.False(t, ok)
}

func TestGraph_Terminals(t *testing.T) {
	g := &Graph{Nodes: []Node{
		{ID: "a", Type: NodeTypeListen},
		{ID: "b", Type: NodeTypeText},
		{ID: "c", Type: NodeTypeListen},
	}}

	terms := g.Terminals()
	require.Len(t, terms, 2)
	assert.Equal(t, "a", terms[0].ID)
	assert.Equal(t, "c", terms[1].ID)
}

func TestDiagnostic_String(t *testing.T) {
	d := Diagnostic{Severity: SeverityWarning, NodeID: "j1", Code: "content-parse", Message: "bad json"}
	assert.Equal(t, `warning[content-parse] node "j1": bad json`, d.String())

	d.NodeID = ""
	assert.Equal(t, "warning[content-parse]: bad json", d.String())
}
