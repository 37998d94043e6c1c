package compiler

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/flowgen/internal/builders"
	"github.com/leapstack-labs/flowgen/internal/dag"
	"github.com/leapstack-labs/flowgen/internal/registry"
	"github.com/leapstack-labs/flowgen/internal/resolver"
	"github.com/leapstack-labs/flowgen/pkg/core"
	"github.com/leapstack-labs/flowgen/pkg/ir"
)

// declare runs every node's Declare in declaration order.
func (c *compilation) declare() error {
	c.contexts = make([]*builders.Context, len(c.nodes))

	for i, n := range c.nodes {
		var contentErr error
		ctx := &builders.Context{
			Node:   n,
			Ident:  c.idents[i],
			Inputs: c.inputs(i),
			ContentError: func(cause error) {
				if contentErr == nil {
					contentErr = cause
				}
			},
		}
		c.contexts[i] = ctx

		stmts, err := c.builders[i].Declare(ctx)
		if err != nil {
			return wrapEmissionError(n.ID, "declare "+string(n.Type)+" node", err)
		}
		if contentErr != nil {
			if c.opts.StrictJSON {
				return newContentParseError(n.ID, contentErr)
			}
			c.warn(n.ID, CodeContentParse, "content is not valid JSON, using {}: "+contentErr.Error())
			c.opts.Logger.Warn("substituted empty object for unparsable content",
				slog.String("node", n.ID), slog.String("error", contentErr.Error()))
		}

		c.decls = append(c.decls, stmts...)
		c.stats.Declarations += len(stmts)
	}
	return nil
}

// roots returns the nodes evaluated at startup: listen nodes, then sink nodes
// whose output nothing consumes, each in declaration order.
func (c *compilation) roots() []string {
	roots := append([]string(nil), c.terminals...)
	for i, n := range c.nodes {
		if c.builders[i].Sink && !n.Type.IsTerminal() && len(c.deps.GetChildren(n.ID)) == 0 {
			roots = append(roots, n.ID)
		}
	}
	return roots
}

// assemble builds the startup statements. Every reachable node is evaluated
// exactly once: pure values are referenced by name, effectful calls with one
// consumer are nested into it, and effectful calls with several consumers are
// bound to a local first.
func (c *compilation) assemble() error {
	roots := c.roots()
	isRoot := make(map[string]bool, len(roots))
	for _, id := range roots {
		isRoot[id] = true
	}

	reachable := make([]bool, len(c.nodes))
	for _, id := range c.deps.GetUpstreamNodes(roots...) {
		i, _ := c.deps.Index(id)
		reachable[i] = true
	}

	uses := make([]int, len(c.nodes))
	for _, conn := range c.graph.Connections {
		dst, _ := c.deps.Index(conn.TargetNodeID)
		if !reachable[dst] {
			continue
		}
		src, _ := c.deps.Index(conn.SourceNodeID)
		uses[src]++
	}

	memo := make([]ir.Expr, len(c.nodes))
	err := c.deps.PostOrder(roots, func(dn *dag.Node) error {
		i := dn.Index
		args, err := c.args(i, memo)
		if err != nil {
			return err
		}

		b := c.builders[i]
		expr := b.Expression(c.contexts[i], args)

		switch {
		case isRoot[dn.ID]:
			if dn.Data.(*core.Node).Type.IsTerminal() {
				expr = ir.CallMethod(builders.ListenerSet, builders.MethodTrack, expr)
			}
			c.main = append(c.main, ir.Do(expr))
		case b.Effectful && uses[i] > 1:
			name := c.uniqueName(c.idents[i]+"_value", 0)
			c.main = append(c.main, &ir.VarDecl{Name: name, Value: expr})
			memo[i] = ir.Name(name)
			c.stats.Hoisted++
		default:
			memo[i] = expr
		}
		return nil
	})
	if err != nil {
		var ce *dag.CycleError
		if errors.As(err, &ce) {
			return newCycleError(ce.Path)
		}
		return err
	}

	for i, n := range c.nodes {
		if !reachable[i] {
			c.warn(n.ID, CodeUnreachable, "node does not feed any listen node and is never evaluated")
		}
	}
	return nil
}

// args resolves one expression per declared input of the node at index i.
func (c *compilation) args(i int, memo []ir.Expr) ([]ir.Expr, error) {
	n := c.nodes[i]
	inputs := c.inputs(i)
	args := make([]ir.Expr, len(inputs))

	for k, in := range inputs {
		res, err := c.resolver.Resolve(n, in.ID)
		if err != nil {
			var lit *resolver.LiteralError
			if errors.As(err, &lit) {
				return nil, &GraphValidationError{
					baseError: baseError{nodeID: n.ID, msg: fmt.Sprintf("invalid value for input %q", in.ID)},
					Cause:     err,
				}
			}
			return nil, &GraphValidationError{baseError: baseError{nodeID: n.ID, msg: "resolve input " + in.ID}, Cause: err}
		}

		if res.Kind == resolver.Connected {
			src, _ := c.deps.Index(res.SourceNodeID)
			args[k] = memo[src]
			continue
		}

		if n.Type == core.NodeTypeListen && in.ID == registry.PortPort {
			if err := checkPort(n.ID, res.Value); err != nil {
				return nil, err
			}
		}
		lit, err := ir.FromValue(res.Value)
		if err != nil {
			return nil, &GraphValidationError{
				baseError: baseError{nodeID: n.ID, msg: fmt.Sprintf("invalid value for input %q", in.ID)},
				Cause:     err,
			}
		}
		args[k] = lit
	}
	return args, nil
}
