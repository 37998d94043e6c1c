package compiler

import (
	"errors"
	"math"
	"sort"
	"strconv"

	"github.com/leapstack-labs/flowgen/internal/builders"
	"github.com/leapstack-labs/flowgen/internal/dag"
	"github.com/leapstack-labs/flowgen/internal/resolver"
	"github.com/leapstack-labs/flowgen/pkg/core"
	"github.com/leapstack-labs/flowgen/pkg/ir"
)

// Diagnostic codes attached to warnings.
const (
	CodeContentParse    = "content-parse"
	CodeUnreachable     = "unreachable"
	CodeUnknownOverride = "unknown-override"
)

// compilation is the transient state of one compile.
type compilation struct {
	graph *core.Graph
	opts  Options

	deps     *dag.Graph
	resolver *resolver.Resolver

	// per arena index
	nodes    []*core.Node
	builders []builders.Builder
	idents   []string
	contexts []*builders.Context
	names    map[string]bool

	terminals []string
	decls     []ir.Stmt
	main      []ir.Stmt
	warnings  []core.Diagnostic
	stats     Stats
}

// newCompilation validates the graph and builds the dependency arena.
func newCompilation(g *core.Graph, opts Options) (*compilation, error) {
	c := &compilation{graph: g, opts: opts, deps: dag.NewGraph()}

	if err := c.scanNodes(); err != nil {
		return nil, err
	}
	if len(c.terminals) == 0 {
		return nil, newNoEndpointError()
	}
	if err := c.checkConnections(); err != nil {
		return nil, err
	}

	r, err := resolver.New(g, opts.Registry)
	if err != nil {
		var dup *resolver.DuplicateInputError
		if errors.As(err, &dup) {
			ve := newConnectionError(dup.Second, "input %s.%s is already connected by %q", dup.NodeID, dup.PortID, dup.First)
			ve.nodeID = dup.NodeID
			return nil, ve
		}
		return nil, &GraphValidationError{baseError: baseError{msg: "index connections"}, Cause: err}
	}
	c.resolver = r

	if err := c.linkDependencies(); err != nil {
		return nil, err
	}
	if cyclic, path := c.deps.HasCycle(); cyclic {
		return nil, newCycleError(path)
	}
	c.checkOverrides()
	c.assignIdents()
	return c, nil
}

// scanNodes checks ids and types and fills the arena in declaration order.
func (c *compilation) scanNodes() error {
	for i := range c.graph.Nodes {
		n := &c.graph.Nodes[i]
		if n.ID == "" {
			return NewGraphValidationError("", "node at position %d has no id", i)
		}
		if _, dup := c.deps.Index(n.ID); dup {
			return NewGraphValidationError(n.ID, "duplicate node id")
		}
		if !c.opts.Registry.Has(n.Type) {
			return NewGraphValidationError(n.ID, "unknown node type %q", n.Type)
		}
		b, ok := c.opts.Builders.Lookup(n.Type)
		if !ok {
			return NewGraphValidationError(n.ID, "no code builder for node type %q", n.Type)
		}

		c.deps.AddNode(n.ID, n)
		c.nodes = append(c.nodes, n)
		c.builders = append(c.builders, b)
	}
	for _, n := range c.graph.Terminals() {
		c.terminals = append(c.terminals, n.ID)
	}
	c.stats.Terminals = len(c.terminals)
	return nil
}

// checkConnections verifies every connection references existing nodes and
// ports and that the port data types are compatible.
func (c *compilation) checkConnections() error {
	reg := c.opts.Registry
	for _, conn := range c.graph.Connections {
		src, ok := c.node(conn.SourceNodeID)
		if !ok {
			return newConnectionError(conn.ID, "source node %q does not exist", conn.SourceNodeID)
		}
		dst, ok := c.node(conn.TargetNodeID)
		if !ok {
			return newConnectionError(conn.ID, "target node %q does not exist", conn.TargetNodeID)
		}
		out, ok := reg.Output(src.Type, conn.SourceOutputID)
		if !ok {
			return newConnectionError(conn.ID, "node %q (%s) has no output %q", src.ID, src.Type, conn.SourceOutputID)
		}
		in, ok := reg.Input(dst.Type, conn.TargetInputID)
		if !ok {
			return newConnectionError(conn.ID, "node %q (%s) has no input %q", dst.ID, dst.Type, conn.TargetInputID)
		}
		if !in.DataType.Accepts(out.DataType) {
			return newConnectionError(conn.ID, "cannot feed %s output %s.%s into %s input %s.%s",
				out.DataType, src.ID, out.ID, in.DataType, dst.ID, in.ID)
		}
	}
	return nil
}

// linkDependencies adds one edge per connected input, visiting nodes in
// declaration order and inputs in declared port order.
func (c *compilation) linkDependencies() error {
	for _, n := range c.nodes {
		for _, in := range c.opts.Registry.DescriptorsFor(n.Type).Inputs {
			conn, ok := c.resolver.Inbound(n.ID, in.ID)
			if !ok {
				continue
			}
			if err := c.deps.AddEdge(conn.SourceNodeID, n.ID); err != nil {
				var ce *dag.CycleError
				if errors.As(err, &ce) {
					return newCycleError(ce.Path)
				}
				return &GraphValidationError{baseError: baseError{nodeID: n.ID, msg: "link dependencies"}, Cause: err}
			}
		}
	}
	return nil
}

// checkOverrides warns about override entries that can never apply.
func (c *compilation) checkOverrides() {
	nodeIDs := make([]string, 0, len(c.graph.Overrides))
	for id := range c.graph.Overrides {
		nodeIDs = append(nodeIDs, id)
	}
	sort.Strings(nodeIDs)

	for _, id := range nodeIDs {
		n, ok := c.node(id)
		if !ok {
			c.warn(id, CodeUnknownOverride, "override for unknown node")
			continue
		}
		ports := make([]string, 0, len(c.graph.Overrides[id]))
		for p := range c.graph.Overrides[id] {
			ports = append(ports, p)
		}
		sort.Strings(ports)
		for _, p := range ports {
			if _, ok := c.opts.Registry.Input(n.Type, p); !ok {
				c.warn(id, CodeUnknownOverride, "override for unknown input "+p)
			}
		}
	}
}

// assignIdents derives one identifier per node. Collisions after sanitizing
// are broken by appending a counter starting at the arena index.
func (c *compilation) assignIdents() {
	c.names = make(map[string]bool, len(c.nodes))
	c.idents = make([]string, len(c.nodes))
	for i, n := range c.nodes {
		c.idents[i] = c.uniqueName(builders.Ident(c.builders[i].Prefix, n.ID), i)
	}
}

// uniqueName reserves base, or base_<k> for the first free k >= start.
func (c *compilation) uniqueName(base string, start int) string {
	name := base
	for k := start; c.names[name]; k++ {
		name = base + "_" + strconv.Itoa(k)
	}
	c.names[name] = true
	return name
}

// checkPort rejects listen ports that cannot be bound.
func checkPort(nodeID string, v any) error {
	f, ok := v.(float64)
	if !ok || f != math.Trunc(f) || f < 0 || f > 65535 {
		return NewGraphValidationError(nodeID, "port %v is not an integer between 0 and 65535", v)
	}
	return nil
}

func (c *compilation) warn(nodeID, code, msg string) {
	c.warnings = append(c.warnings, core.Diagnostic{
		Severity: core.SeverityWarning,
		NodeID:   nodeID,
		Code:     code,
		Message:  msg,
	})
}

// node looks a graph node up through the dependency arena.
func (c *compilation) node(id string) (*core.Node, bool) {
	dn, ok := c.deps.GetNode(id)
	if !ok {
		return nil, false
	}
	return dn.Data.(*core.Node), true
}

// inputs returns the declared input ports of the node at arena index i.
func (c *compilation) inputs(i int) []core.PropertyDescriptor {
	return c.opts.Registry.DescriptorsFor(c.nodes[i].Type).Inputs
}
