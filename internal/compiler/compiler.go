// Package compiler lowers a flow graph into the source text of an HTTP server program.
//
// Compile is a pure function of its inputs: it validates the graph, resolves
// every input port, assembles one call chain per listen node with each node
// evaluated at most once, and prints the resulting IR for the chosen target.
// Identical graphs produce byte-identical programs.
package compiler

import (
	"log/slog"

	"github.com/leapstack-labs/flowgen/internal/builders"
	"github.com/leapstack-labs/flowgen/internal/registry"
	"github.com/leapstack-labs/flowgen/pkg/core"
	"github.com/leapstack-labs/flowgen/pkg/format"
	"github.com/leapstack-labs/flowgen/pkg/ir"
)

// Options configures one compile.
type Options struct {
	// Target selects the output language. Defaults to Go.
	Target format.Target
	// StrictJSON turns unparsable json-source content into a hard error.
	StrictJSON bool
	// Registry provides port layouts. Defaults to the built-in types.
	Registry *registry.TypeRegistry
	// Builders provides code builders. Defaults to the built-in builders.
	Builders *builders.Table
	// Logger receives debug output. Defaults to a discarding logger.
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Target == "" {
		o.Target = format.TargetGo
	}
	if o.Registry == nil {
		o.Registry = registry.NewDefault()
	}
	if o.Builders == nil {
		o.Builders = builders.Default()
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// Stats summarizes a compile.
type Stats struct {
	Nodes        int `json:"nodes"`
	Connections  int `json:"connections"`
	Declarations int `json:"declarations"`
	Terminals    int `json:"terminals"`
	Hoisted      int `json:"hoisted"`
}

// Result is a successful compile.
type Result struct {
	Source   string            `json:"source"`
	Target   format.Target     `json:"target"`
	Program  *ir.Program       `json:"-"`
	Warnings []core.Diagnostic `json:"warnings"`
	Stats    Stats             `json:"stats"`
}

// Compile validates g and returns the program text for opts.Target.
// The graph is not modified.
func Compile(g *core.Graph, opts Options) (*Result, error) {
	opts = opts.withDefaults()

	prog, lowered, err := lower(g, opts)
	if err != nil {
		return nil, err
	}

	src, err := format.Format(prog, opts.Target)
	if err != nil {
		return nil, wrapEmissionError("", "print "+string(opts.Target)+" program", err)
	}

	opts.Logger.Debug("compiled graph",
		slog.String("target", string(opts.Target)),
		slog.Int("nodes", lowered.stats.Nodes),
		slog.Int("terminals", lowered.stats.Terminals),
		slog.Int("hoisted", lowered.stats.Hoisted),
		slog.Int("warnings", len(lowered.warnings)),
	)

	return &Result{
		Source:   src,
		Target:   opts.Target,
		Program:  prog,
		Warnings: lowered.warnings,
		Stats:    lowered.stats,
	}, nil
}

// Lower validates g and returns its target-neutral program with any warnings.
func Lower(g *core.Graph, opts Options) (*ir.Program, []core.Diagnostic, error) {
	prog, lowered, err := lower(g, opts.withDefaults())
	if err != nil {
		return nil, nil, err
	}
	return prog, lowered.warnings, nil
}

// Check validates g without printing. It returns the warnings a compile would report.
func Check(g *core.Graph, opts Options) ([]core.Diagnostic, error) {
	_, warnings, err := Lower(g, opts)
	return warnings, err
}

type loweredInfo struct {
	warnings []core.Diagnostic
	stats    Stats
}

func lower(g *core.Graph, opts Options) (*ir.Program, *loweredInfo, error) {
	c, err := newCompilation(g, opts)
	if err != nil {
		return nil, nil, err
	}
	if err := c.declare(); err != nil {
		return nil, nil, err
	}
	if err := c.assemble(); err != nil {
		return nil, nil, err
	}
	prog := c.emit()

	c.stats.Nodes = len(g.Nodes)
	c.stats.Connections = len(g.Connections)
	return prog, &loweredInfo{warnings: c.warnings, stats: c.stats}, nil
}
