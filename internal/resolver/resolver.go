// Package resolver decides where the value of each node input comes from:
// an inbound connection, the override table, or the node type's default.
package resolver

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/leapstack-labs/flowgen/internal/registry"
	"github.com/leapstack-labs/flowgen/pkg/core"
)

// Kind tells which source satisfied an input.
type Kind int

// Resolution kinds in precedence order.
const (
	Connected Kind = iota
	Overridden
	Default
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case Connected:
		return "connected"
	case Overridden:
		return "overridden"
	case Default:
		return "default"
	default:
		return "unknown"
	}
}

// ResolvedInput is the outcome of resolving one input port.
type ResolvedInput struct {
	Kind Kind
	// SourceNodeID and SourceOutputID are set for Connected inputs.
	SourceNodeID   string
	SourceOutputID string
	// Value is the literal for Overridden and Default inputs, coerced to the port type.
	Value any
}

// DuplicateInputError reports two connections into one input port.
type DuplicateInputError struct {
	NodeID, PortID string
	First, Second  string
}

func (e *DuplicateInputError) Error() string {
	return fmt.Sprintf("input %s.%s has more than one connection (%s, %s)", e.NodeID, e.PortID, e.First, e.Second)
}

// LiteralError reports a literal that does not fit its port.
type LiteralError struct {
	NodeID, PortID string
	DataType       core.DataType
	Value          any
}

func (e *LiteralError) Error() string {
	return fmt.Sprintf("value %v for %s.%s is not a valid %s", e.Value, e.NodeID, e.PortID, e.DataType)
}

type portKey struct {
	node, port string
}

// Resolver answers input lookups for one graph.
type Resolver struct {
	reg       *registry.TypeRegistry
	types     map[string]core.NodeType
	inbound   map[portKey]core.Connection
	overrides core.Overrides
}

// New indexes the graph's connections by target port.
// Connections to unknown nodes are left for the caller's validation and ignored here.
func New(g *core.Graph, reg *registry.TypeRegistry) (*Resolver, error) {
	r := &Resolver{
		reg:       reg,
		types:     make(map[string]core.NodeType, len(g.Nodes)),
		inbound:   make(map[portKey]core.Connection, len(g.Connections)),
		overrides: g.Overrides,
	}
	for _, n := range g.Nodes {
		r.types[n.ID] = n.Type
	}

	for _, c := range g.Connections {
		t, ok := r.types[c.TargetNodeID]
		if !ok {
			continue
		}
		key := portKey{node: c.TargetNodeID, port: reg.CanonicalPort(t, c.TargetInputID)}
		if prev, dup := r.inbound[key]; dup {
			return nil, &DuplicateInputError{NodeID: key.node, PortID: key.port, First: prev.ID, Second: c.ID}
		}
		r.inbound[key] = c
	}
	return r, nil
}

// Inbound returns the connection feeding an input port, if any.
func (r *Resolver) Inbound(nodeID, portID string) (core.Connection, bool) {
	c, ok := r.inbound[portKey{node: nodeID, port: r.reg.CanonicalPort(r.types[nodeID], portID)}]
	return c, ok
}

// Resolve finds the value source of one input port:
// connected, else overridden, else the type default.
func (r *Resolver) Resolve(node *core.Node, inputPortID string) (ResolvedInput, error) {
	portID := r.reg.CanonicalPort(node.Type, inputPortID)

	if c, ok := r.inbound[portKey{node: node.ID, port: portID}]; ok {
		return ResolvedInput{Kind: Connected, SourceNodeID: c.SourceNodeID, SourceOutputID: c.SourceOutputID}, nil
	}

	desc, ok := r.reg.Input(node.Type, portID)
	if !ok {
		return ResolvedInput{}, fmt.Errorf("node %q of type %s has no input %q", node.ID, node.Type, inputPortID)
	}

	if v, ok := r.lookupOverride(node, portID); ok {
		coerced, err := Coerce(desc.DataType, v)
		if err != nil {
			return ResolvedInput{}, &LiteralError{NodeID: node.ID, PortID: portID, DataType: desc.DataType, Value: v}
		}
		return ResolvedInput{Kind: Overridden, Value: coerced}, nil
	}

	v, _ := r.reg.Default(node.Type, portID)
	coerced, err := Coerce(desc.DataType, v)
	if err != nil {
		return ResolvedInput{}, &LiteralError{NodeID: node.ID, PortID: portID, DataType: desc.DataType, Value: v}
	}
	return ResolvedInput{Kind: Default, Value: coerced}, nil
}

// lookupOverride checks the canonical port id first, then its legacy aliases in sorted order.
// Blank entries (nil or "") count as unset, which is how the editor clears a field.
func (r *Resolver) lookupOverride(node *core.Node, portID string) (any, bool) {
	if v, ok := r.overrides.Lookup(node.ID, portID); ok && !blank(v) {
		return v, true
	}
	spec, ok := r.reg.Lookup(node.Type)
	if !ok {
		return nil, false
	}
	var aliases []string
	for alias, canonical := range spec.PortAliases {
		if canonical == portID {
			aliases = append(aliases, alias)
		}
	}
	sort.Strings(aliases)
	for _, alias := range aliases {
		if v, ok := r.overrides.Lookup(node.ID, alias); ok && !blank(v) {
			return v, true
		}
	}
	return nil, false
}

func blank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

// Coerce converts a literal to the representation expected by a port type.
// number ports take numbers or numeric strings; string ports take strings,
// numbers and booleans; every other type accepts the value unchanged.
func Coerce(dt core.DataType, v any) (any, error) {
	switch dt {
	case core.DataTypeNumber:
		f, err := toFloat(v)
		if err != nil {
			return nil, err
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%v is not a finite number", f)
		}
		return f, nil
	case core.DataTypeString:
		switch x := v.(type) {
		case string:
			return x, nil
		case float64:
			return strconv.FormatFloat(x, 'f', -1, 64), nil
		case int:
			return strconv.Itoa(x), nil
		case int64:
			return strconv.FormatInt(x, 10), nil
		case json.Number:
			return x.String(), nil
		case bool:
			return strconv.FormatBool(x), nil
		}
		return nil, fmt.Errorf("%T is not a string", v)
	default:
		return v, nil
	}
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case json.Number:
		return x.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(x), 64)
	}
	return 0, fmt.Errorf("%T is not a number", v)
}
