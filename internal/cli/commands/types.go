package commands

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/flowgen/internal/cli/output"
	"github.com/leapstack-labs/flowgen/internal/registry"
	"github.com/leapstack-labs/flowgen/pkg/core"
)

// NewTypesCommand creates the types command.
func NewTypesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "types",
		Short: "List the node types the compiler understands",
		Long: `List every registered node type with its input and output ports
and the default value of each input.`,
		Example: `  # Show node types as a table
  flowgen types

  # As JSON for the editor
  flowgen types --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTypes(cmd)
		},
	}
	return cmd
}

func runTypes(cmd *cobra.Command) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	specs := cmdCtx.Registry.Types()
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(specs)
	case output.ModeMarkdown:
		typesMarkdown(r, specs)
	default:
		r.Header(1, fmt.Sprintf("Node types (%d)", len(specs)))
		typesTable(r.Writer(), specs)
	}
	return nil
}

func typesTable(w io.Writer, specs []registry.TypeSpec) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Type", "Inputs", "Outputs", "Description"})

	for _, spec := range specs {
		t.AppendRow(table.Row{
			spec.Type,
			formatInputs(spec),
			formatPorts(spec.Outputs),
			spec.Description,
		})
	}
	t.Render()
}

func typesMarkdown(r *output.Renderer, specs []registry.TypeSpec) {
	r.Println(output.FormatHeader(1, fmt.Sprintf("Node types (%d)", len(specs))))
	r.Println("")
	for _, spec := range specs {
		r.Println(output.FormatHeader(2, string(spec.Type)))
		if spec.Description != "" {
			r.Println(spec.Description)
		}
		r.Println(output.FormatKeyValue("Inputs", orNone(formatInputs(spec))))
		r.Println(output.FormatKeyValue("Outputs", orNone(formatPorts(spec.Outputs))))
		if len(spec.PortAliases) > 0 {
			r.Println(output.FormatKeyValue("Aliases", formatAliases(spec.PortAliases)))
		}
		r.Println("")
	}
}

// formatInputs lists input ports with their defaults, e.g. "path:string=/".
func formatInputs(spec registry.TypeSpec) string {
	parts := make([]string, 0, len(spec.Inputs))
	for _, p := range spec.Inputs {
		s := portLabel(p)
		if v, ok := spec.Defaults[p.ID]; ok {
			s += fmt.Sprintf("=%v", v)
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, ", ")
}

func formatPorts(ports []core.PropertyDescriptor) string {
	parts := make([]string, 0, len(ports))
	for _, p := range ports {
		parts = append(parts, portLabel(p))
	}
	return strings.Join(parts, ", ")
}

func portLabel(p core.PropertyDescriptor) string {
	return p.ID + ":" + string(p.DataType)
}

func formatAliases(aliases map[string]string) string {
	keys := make([]string, 0, len(aliases))
	for k := range aliases {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" -> "+aliases[k])
	}
	return strings.Join(parts, ", ")
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
