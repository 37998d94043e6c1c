package loader

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/leapstack-labs/flowgen/pkg/core"
)

// hclFile is the block layout of an HCL snapshot:
//
//	node "text-source" "greeting" {
//	  content = "hello"
//	}
//	connection "c1" {
//	  from = "greeting.output"
//	  to   = "route.value"
//	}
//	override "route" {
//	  path = "/hello"
//	}
type hclFile struct {
	Nodes       []*hclNode       `hcl:"node,block"`
	Connections []*hclConnection `hcl:"connection,block"`
	Overrides   []*hclOverride   `hcl:"override,block"`
}

type hclNode struct {
	Type    string `hcl:"type,label"`
	ID      string `hcl:"id,label"`
	Name    string `hcl:"name,optional"`
	Content string `hcl:"content,optional"`
}

type hclConnection struct {
	ID   string `hcl:"id,label"`
	From string `hcl:"from"`
	To   string `hcl:"to"`
}

type hclOverride struct {
	Node string   `hcl:"node,label"`
	Body hcl.Body `hcl:",remain"`
}

func decodeHCL(data []byte, file string) (*document, error) {
	if file == "" {
		file = "snapshot.hcl"
	}
	parsed, diags := hclparse.NewParser().ParseHCL(data, file)
	if diags.HasErrors() {
		return nil, &SnapshotError{File: file, Problems: diagProblems(diags)}
	}

	var hf hclFile
	if diags := gohcl.DecodeBody(parsed.Body, nil, &hf); diags.HasErrors() {
		return nil, &SnapshotError{File: file, Problems: diagProblems(diags)}
	}

	doc := &document{Overrides: core.Overrides{}}
	for _, n := range hf.Nodes {
		doc.Nodes = append(doc.Nodes, core.Node{
			ID:      n.ID,
			Type:    core.NodeType(n.Type),
			Name:    n.Name,
			Content: n.Content,
		})
	}

	var problems []string
	for _, c := range hf.Connections {
		srcNode, srcPort, err := splitPortRef(c.From)
		if err != nil {
			problems = append(problems, fmt.Sprintf("connection %q: from: %v", c.ID, err))
			continue
		}
		dstNode, dstPort, err := splitPortRef(c.To)
		if err != nil {
			problems = append(problems, fmt.Sprintf("connection %q: to: %v", c.ID, err))
			continue
		}
		doc.Connections = append(doc.Connections, core.Connection{
			ID:             c.ID,
			SourceNodeID:   srcNode,
			SourceOutputID: srcPort,
			TargetNodeID:   dstNode,
			TargetInputID:  dstPort,
		})
	}

	for _, o := range hf.Overrides {
		attrs, diags := o.Body.JustAttributes()
		if diags.HasErrors() {
			problems = append(problems, diagProblems(diags)...)
			continue
		}
		names := make([]string, 0, len(attrs))
		for name := range attrs {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			v, diags := attrs[name].Expr.Value(nil)
			if diags.HasErrors() {
				problems = append(problems, diagProblems(diags)...)
				continue
			}
			native, err := ctyToNative(v)
			if err != nil {
				problems = append(problems, fmt.Sprintf("override %q: %s: %v", o.Node, name, err))
				continue
			}
			doc.Overrides.Set(o.Node, name, native)
		}
	}

	if len(problems) > 0 {
		return nil, &SnapshotError{File: file, Problems: problems}
	}
	return doc, nil
}

// splitPortRef splits "node.port" at the last dot, so node ids may contain dots.
func splitPortRef(ref string) (string, string, error) {
	i := strings.LastIndex(ref, ".")
	if i <= 0 || i == len(ref)-1 {
		return "", "", fmt.Errorf("%q is not of the form <node>.<port>", ref)
	}
	return ref[:i], ref[i+1:], nil
}

// ctyToNative converts an HCL value to plain Go values: string, float64,
// bool, []any, map[string]any or nil.
func ctyToNative(v cty.Value) (any, error) {
	if v.IsNull() || !v.IsKnown() {
		return nil, nil
	}

	ty := v.Type()
	switch {
	case ty == cty.String:
		return v.AsString(), nil
	case ty == cty.Number:
		var f float64
		if err := gocty.FromCtyValue(v, &f); err != nil {
			return nil, fmt.Errorf("number out of range: %w", err)
		}
		return f, nil
	case ty == cty.Bool:
		return v.True(), nil
	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		out := make([]any, 0, v.LengthInt())
		it := v.ElementIterator()
		for it.Next() {
			_, elem := it.Element()
			native, err := ctyToNative(elem)
			if err != nil {
				return nil, err
			}
			out = append(out, native)
		}
		return out, nil
	case ty.IsObjectType() || ty.IsMapType():
		out := make(map[string]any, v.LengthInt())
		it := v.ElementIterator()
		for it.Next() {
			key, elem := it.Element()
			native, err := ctyToNative(elem)
			if err != nil {
				return nil, fmt.Errorf("in attribute %q: %w", key.AsString(), err)
			}
			out[key.AsString()] = native
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value type %s", ty.FriendlyName())
	}
}

func diagProblems(diags hcl.Diagnostics) []string {
	out := make([]string, 0, len(diags))
	for _, d := range diags {
		if d.Severity == hcl.DiagError {
			out = append(out, d.Error())
		}
	}
	return out
}
