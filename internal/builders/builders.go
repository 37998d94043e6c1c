// Package builders holds the per node type code builders.
//
// Each node type registers a Builder: a Declare function producing the
// top-level statements the node needs at runtime, and an Expression function
// producing the value-yielding reference or call for the node given its
// already-resolved input expressions. Adding a node type means registering a
// new tag in a Table.
package builders

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/leapstack-labs/flowgen/pkg/core"
	"github.com/leapstack-labs/flowgen/pkg/ir"
)

// Context is what a builder sees of the node being compiled.
type Context struct {
	Node *core.Node
	// Ident is the unique identifier assigned to the node's declaration.
	Ident string
	// Inputs are the node type's input ports in declared order.
	Inputs []core.PropertyDescriptor
	// ContentError is called when the node's content cannot be parsed and a
	// fallback value was substituted.
	ContentError func(cause error)
}

// DeclareFunc returns the top-level statements a node needs.
type DeclareFunc func(ctx *Context) ([]ir.Stmt, error)

// ExpressionFunc returns the value expression for a node.
// args holds one expression per input port, in declared order.
type ExpressionFunc func(ctx *Context, args []ir.Expr) ir.Expr

// Builder is the code generation entry for one node type.
type Builder struct {
	// Prefix is prepended to the node id to form its identifier.
	Prefix     string
	Declare    DeclareFunc
	Expression ExpressionFunc
	// Effectful marks expressions whose evaluation has a runtime side effect.
	Effectful bool
	// Sink marks types evaluated at startup even when nothing consumes their output.
	Sink bool
}

// Table maps node type tags to builders.
type Table struct {
	mu       sync.RWMutex
	builders map[core.NodeType]Builder
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{builders: make(map[core.NodeType]Builder)}
}

// Default returns a table with the built-in node types registered.
func Default() *Table {
	t := NewTable()
	t.Register(core.NodeTypeText, textSource())
	t.Register(core.NodeTypeJSON, jsonSource())
	t.Register(core.NodeTypeLog, logSink())
	t.Register(core.NodeTypeRoute, route())
	t.Register(core.NodeTypeListen, listen())
	return t
}

// Register adds or replaces the builder for a node type.
func (t *Table) Register(nodeType core.NodeType, b Builder) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.builders[nodeType] = b
}

// Lookup returns the builder for a node type.
func (t *Table) Lookup(nodeType core.NodeType) (Builder, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	b, ok := t.builders[nodeType]
	return b, ok
}

// Types returns the registered tags, sorted.
func (t *Table) Types() []core.NodeType {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]core.NodeType, 0, len(t.builders))
	for nt := range t.builders {
		out = append(out, nt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Ident derives an identifier from a prefix and a node id.
// Characters that are not valid in identifiers are replaced by '_'.
func Ident(prefix, id string) string {
	var b strings.Builder
	b.WriteString(prefix)
	b.WriteByte('_')
	for _, r := range id {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// ParamType maps a port data type to the IR parameter type.
func ParamType(dt core.DataType) ir.Type {
	switch dt {
	case core.DataTypeString:
		return ir.TypeString
	case core.DataTypeNumber:
		return ir.TypeNumber
	default:
		return ir.TypeAny
	}
}

// params turns input descriptors into function parameters named after the ports.
func params(inputs []core.PropertyDescriptor) []ir.Param {
	out := make([]ir.Param, len(inputs))
	for i, in := range inputs {
		out[i] = ir.Param{Name: in.ID, Type: ParamType(in.DataType)}
	}
	return out
}

// callWithArgs is the Expression of function-declaring builders.
func callWithArgs(ctx *Context, args []ir.Expr) ir.Expr {
	return &ir.Call{Func: ir.Name(ctx.Ident), Args: args}
}

// reference is the Expression of value-declaring builders.
func reference(ctx *Context, _ []ir.Expr) ir.Expr {
	return ir.Name(ctx.Ident)
}

// argIndex returns the position of an input port, or an error naming the node.
func argIndex(ctx *Context, portID string) (int, error) {
	for i, in := range ctx.Inputs {
		if in.ID == portID {
			return i, nil
		}
	}
	return 0, fmt.Errorf("node %q has no %q input", ctx.Node.ID, portID)
}
