package core

// Node is a typed unit of the graph.
// Nodes are treated as immutable for the duration of one compile.
type Node struct {
	// ID is unique within a graph
	ID string `json:"id" yaml:"id" validate:"required"`
	// Type selects the port layout and code builders
	Type NodeType `json:"type" yaml:"type" validate:"required"`
	// Name is the display name shown in the editor
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
	// Content is the raw literal payload (text, JSON document)
	Content string `json:"content,omitempty" yaml:"content,omitempty"`
	// Inputs are the ordered input ports, fixed per type
	Inputs []PropertyDescriptor `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	// Outputs are the ordered output ports, fixed per type
	Outputs []PropertyDescriptor `json:"outputs,omitempty" yaml:"outputs,omitempty"`
}

// Connection is a directed edge from an output port to an input port.
type Connection struct {
	ID             string `json:"id" yaml:"id" validate:"required"`
	SourceNodeID   string `json:"sourceNodeId" yaml:"sourceNodeId" validate:"required"`
	SourceOutputID string `json:"sourceOutputId" yaml:"sourceOutputId" validate:"required"`
	TargetNodeID   string `json:"targetNodeId" yaml:"targetNodeId" validate:"required"`
	TargetInputID  string `json:"targetInputId" yaml:"targetInputId" validate:"required"`
}

// Overrides supplies literal values for unconnected input ports: nodeID -> portID -> value.
type Overrides map[string]map[string]any

// Lookup returns the override for a port, if any.
func (o Overrides) Lookup(nodeID, portID string) (any, bool) {
	ports, ok := o[nodeID]
	if !ok {
		return nil, false
	}
	v, ok := ports[portID]
	return v, ok
}

// Set stores an override, allocating the inner map on demand.
func (o Overrides) Set(nodeID, portID string, value any) {
	ports, ok := o[nodeID]
	if !ok {
		ports = make(map[string]any)
		o[nodeID] = ports
	}
	ports[portID] = value
}

// Graph is one snapshot handed to the compiler.
type Graph struct {
	Nodes       []Node       `json:"nodes" yaml:"nodes" validate:"dive"`
	Connections []Connection `json:"connections" yaml:"connections" validate:"dive"`
	Overrides   Overrides    `json:"overrides,omitempty" yaml:"overrides,omitempty"`
}

// Terminals returns the terminal nodes in declaration order.
func (g *Graph) Terminals() []*Node {
	var out []*Node
	for i := range g.Nodes {
		if g.Nodes[i].Type.IsTerminal() {
			out = append(out, &g.Nodes[i])
		}
	}
	return out
}
