// Package registry provides the node type registry.
// It declares, per node type tag, the ordered input/output port descriptors
// and the default literal used for every unconnected input port.
package registry

import (
	"sort"
	"sync"

	"github.com/leapstack-labs/flowgen/pkg/core"
)

// Port ids shared by the built-in types.
const (
	PortOutput = "output"
	PortValue  = "value"
	PortPath   = "path"
	PortPort   = "port"
)

// Default values for unconnected inputs.
const (
	DefaultRoutePath  = "/"
	DefaultListenPort = 3000
)

// TypeSpec is the static description of one node type.
type TypeSpec struct {
	Type        core.NodeType             `json:"type"`
	Description string                    `json:"description"`
	Inputs      []core.PropertyDescriptor `json:"inputs"`
	Outputs     []core.PropertyDescriptor `json:"outputs"`
	// Defaults maps input port id to its default literal. A nil value is a valid default.
	Defaults map[string]any `json:"defaults"`
	// PortAliases maps legacy port ids to canonical ones.
	PortAliases map[string]string `json:"port_aliases,omitempty"`
}

// Descriptors is the port layout of a node type.
type Descriptors struct {
	Inputs  []core.PropertyDescriptor
	Outputs []core.PropertyDescriptor
}

// TypeRegistry maps node type tags to their port layout.
type TypeRegistry struct {
	mu    sync.RWMutex
	specs map[core.NodeType]*TypeSpec
}

// New creates an empty registry.
func New() *TypeRegistry {
	return &TypeRegistry{specs: make(map[core.NodeType]*TypeSpec)}
}

// NewDefault creates a registry holding the built-in node types.
func NewDefault() *TypeRegistry {
	r := New()
	for _, spec := range builtins() {
		r.Register(spec)
	}
	return r
}

// Register adds or replaces a node type.
func (r *TypeRegistry) Register(spec TypeSpec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := spec
	r.specs[spec.Type] = &s
}

// Lookup returns the spec registered for a type.
func (r *TypeRegistry) Lookup(t core.NodeType) (*TypeSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.specs[t]
	return spec, ok
}

// Has reports whether a type is registered.
func (r *TypeRegistry) Has(t core.NodeType) bool {
	_, ok := r.Lookup(t)
	return ok
}

// DescriptorsFor returns the ordered port descriptors for a type.
// Unknown types yield an empty layout; callers validate types up front.
func (r *TypeRegistry) DescriptorsFor(t core.NodeType) Descriptors {
	spec, ok := r.Lookup(t)
	if !ok {
		return Descriptors{}
	}
	return Descriptors{
		Inputs:  append([]core.PropertyDescriptor(nil), spec.Inputs...),
		Outputs: append([]core.PropertyDescriptor(nil), spec.Outputs...),
	}
}

// Input returns one input descriptor of a type.
func (r *TypeRegistry) Input(t core.NodeType, portID string) (core.PropertyDescriptor, bool) {
	spec, ok := r.Lookup(t)
	if !ok {
		return core.PropertyDescriptor{}, false
	}
	return findPort(spec.Inputs, r.CanonicalPort(t, portID))
}

// Output returns one output descriptor of a type.
func (r *TypeRegistry) Output(t core.NodeType, portID string) (core.PropertyDescriptor, bool) {
	spec, ok := r.Lookup(t)
	if !ok {
		return core.PropertyDescriptor{}, false
	}
	return findPort(spec.Outputs, r.CanonicalPort(t, portID))
}

// Default returns the default literal for an input port.
func (r *TypeRegistry) Default(t core.NodeType, portID string) (any, bool) {
	spec, ok := r.Lookup(t)
	if !ok {
		return nil, false
	}
	v, ok := spec.Defaults[r.CanonicalPort(t, portID)]
	return v, ok
}

// CanonicalPort maps a legacy port id to its canonical id.
func (r *TypeRegistry) CanonicalPort(t core.NodeType, portID string) string {
	spec, ok := r.Lookup(t)
	if !ok {
		return portID
	}
	if canonical, ok := spec.PortAliases[portID]; ok {
		return canonical
	}
	return portID
}

// Types returns all registered specs sorted by tag.
func (r *TypeRegistry) Types() []TypeSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]TypeSpec, 0, len(r.specs))
	for _, spec := range r.specs {
		out = append(out, *spec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

// Count returns the number of registered types.
func (r *TypeRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.specs)
}

func findPort(ports []core.PropertyDescriptor, id string) (core.PropertyDescriptor, bool) {
	for _, p := range ports {
		if p.ID == id {
			return p, true
		}
	}
	return core.PropertyDescriptor{}, false
}
