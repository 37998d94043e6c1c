package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/flowgen/internal/cli/output"
	"github.com/leapstack-labs/flowgen/internal/compiler"
	"github.com/leapstack-labs/flowgen/internal/state"
	"github.com/leapstack-labs/flowgen/pkg/core"
)

// CompileOptions holds options for the compile command.
type CompileOptions struct {
	GraphPath string
}

// NewCompileCommand creates the compile command.
func NewCompileCommand() *cobra.Command {
	opts := &CompileOptions{}
	cmd := &cobra.Command{
		Use:   "compile <graph>",
		Short: "Compile a graph snapshot into a program",
		Long: `Compile a graph snapshot (.json, .yaml or .hcl) into a single program.

The program is written to stdout unless --output names a file. Warnings
about unused nodes and ignored overrides go to stderr. Every compile is
recorded in the build history unless --no-history is set.`,
		Example: `  # Compile to Go on stdout
  flowgen compile flow.json

  # Compile to JavaScript into a file
  flowgen compile flow.json -t javascript -o server.js

  # Fail on unparsable json-source content
  flowgen compile flow.yaml --strict-json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.GraphPath = args[0]
			return runCompile(cmd, opts)
		},
	}

	cmd.Flags().StringP("output", "o", "", "Write the program to this file instead of stdout")
	cmd.Flags().Bool("strict-json", false, "Reject json-source content that does not parse")

	return cmd
}

func runCompile(cmd *cobra.Command, opts *CompileOptions) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	res, err := compileGraph(cmd.Context(), cmdCtx, opts.GraphPath)
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		if cmdCtx.Cfg.Output != "" {
			if err := writeProgram(cmdCtx.Cfg.Output, res.Source); err != nil {
				return err
			}
		}
		return r.JSON(res)
	}

	printWarnings(r, res.Warnings)
	if cmdCtx.Cfg.Output == "" {
		r.Printf("%s", res.Source)
		return nil
	}
	if err := writeProgram(cmdCtx.Cfg.Output, res.Source); err != nil {
		return err
	}
	r.Success(fmt.Sprintf("Wrote %s program to %s", res.Target, cmdCtx.Cfg.Output))
	return nil
}

// compileGraph loads and compiles the graph at path, recording the outcome
// in the build history.
func compileGraph(ctx context.Context, cmdCtx *CommandContext, path string) (*compiler.Result, error) {
	data, g, err := cmdCtx.LoadGraph(path)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	res, compileErr := compiler.Compile(g, compiler.Options{
		Target:     cmdCtx.Cfg.Target,
		StrictJSON: cmdCtx.Cfg.StrictJSON,
		Registry:   cmdCtx.Registry,
		Logger:     cmdCtx.Logger,
	})
	recordBuild(ctx, cmdCtx, path, data, res, started, compileErr)
	return res, compileErr
}

func recordBuild(ctx context.Context, cmdCtx *CommandContext, path string, data []byte, res *compiler.Result, started time.Time, compileErr error) {
	store, err := cmdCtx.OpenStore()
	if err != nil {
		cmdCtx.Logger.Warn("build history unavailable", slog.String("error", err.Error()))
		return
	}
	if store == nil {
		return
	}
	defer func() { _ = store.Close() }()

	var (
		source   string
		warnings int
	)
	if res != nil {
		source, warnings = res.Source, len(res.Warnings)
	}
	b := state.NewBuild(path, data, string(cmdCtx.Cfg.Target), source, warnings, started, compileErr)
	if err := store.RecordBuild(ctx, b); err != nil {
		cmdCtx.Logger.Warn("failed to record build", slog.String("error", err.Error()))
	}
}

// printWarnings writes diagnostics to the error stream so a program on
// stdout stays clean.
func printWarnings(r *output.Renderer, warnings []core.Diagnostic) {
	for _, d := range warnings {
		_, _ = fmt.Fprintln(r.ErrWriter(), r.Styles().Warning.Render("! "+d.String()))
	}
}

func writeProgram(path, source string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(source), 0o600); err != nil {
		return fmt.Errorf("failed to write program: %w", err)
	}
	return nil
}
