package commands

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/flowgen/internal/cli/output"
	"github.com/leapstack-labs/flowgen/internal/compiler"
	"github.com/leapstack-labs/flowgen/pkg/core"
)

// Error codes reported by check for compile failures.
const (
	CodeInvalidGraph = "invalid-graph"
	CodeNoEndpoint   = "no-endpoint"
	CodeContentParse = "content-parse"
	CodeEmission     = "emission"
)

// checkReport is the JSON shape of a check run.
type checkReport struct {
	File        string            `json:"file"`
	Valid       bool              `json:"valid"`
	Diagnostics []core.Diagnostic `json:"diagnostics"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <graph>",
		Short: "Validate a graph snapshot without emitting code",
		Long: `Validate a graph snapshot and report every diagnostic.

The graph goes through the same validation and dependency resolution as
compile. Errors make the command fail; warnings about unreachable nodes
and ignored overrides are reported but do not.

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format
  - JSON: Machine-readable format`,
		Example: `  # Check a graph
  flowgen check flow.json

  # Machine-readable result
  flowgen check flow.json --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, args[0])
		},
	}

	cmd.Flags().Bool("strict-json", false, "Reject json-source content that does not parse")

	return cmd
}

func runCheck(cmd *cobra.Command, path string) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	_, g, err := cmdCtx.LoadGraph(path)
	if err != nil {
		return err
	}

	warnings, checkErr := compiler.Check(g, compiler.Options{
		Target:     cmdCtx.Cfg.Target,
		StrictJSON: cmdCtx.Cfg.StrictJSON,
		Registry:   cmdCtx.Registry,
		Logger:     cmdCtx.Logger,
	})

	report := checkReport{File: path, Valid: checkErr == nil, Diagnostics: []core.Diagnostic{}}
	if checkErr != nil {
		report.Diagnostics = append(report.Diagnostics, errorDiagnostic(checkErr))
	}
	report.Diagnostics = append(report.Diagnostics, warnings...)

	r := cmdCtx.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		if err := r.JSON(report); err != nil {
			return err
		}
	case output.ModeMarkdown:
		renderCheckMarkdown(r, report)
	default:
		renderCheckText(r, report)
	}

	if checkErr != nil {
		return fmt.Errorf("graph %s is invalid", path)
	}
	return nil
}

// errorDiagnostic converts a compile error into an error-severity diagnostic.
func errorDiagnostic(err error) core.Diagnostic {
	d := core.Diagnostic{Severity: core.SeverityError, Code: CodeInvalidGraph, Message: err.Error()}

	var (
		noEndpointErr *compiler.NoEndpointError
		contentErr    *compiler.ContentParseError
		emissionErr   *compiler.EmissionError
		compileErr    compiler.Error
	)
	switch {
	case errors.As(err, &noEndpointErr):
		d.Code = CodeNoEndpoint
	case errors.As(err, &contentErr):
		d.Code = CodeContentParse
	case errors.As(err, &emissionErr):
		d.Code = CodeEmission
	}
	if errors.As(err, &compileErr) {
		d.NodeID = compileErr.NodeID()
	}
	return d
}

func renderCheckText(r *output.Renderer, report checkReport) {
	styles := r.Styles()
	if len(report.Diagnostics) == 0 {
		r.Success(report.File + ": no issues")
		return
	}

	r.Println(styles.Bold.Render(report.File))
	for _, d := range report.Diagnostics {
		sev := severityStyle(styles, d.Severity).Render(fmt.Sprintf("%-7s", d.Severity))
		where := ""
		if d.NodeID != "" {
			where = styles.NodeID.Render(d.NodeID) + " "
		}
		r.Printf("  %s %s%s %s\n", sev, where, d.Message, styles.Muted.Render("("+d.Code+")"))
	}

	errs, warns := countSeverities(report.Diagnostics)
	r.Println("")
	r.Muted(fmt.Sprintf("%d error(s), %d warning(s)", errs, warns))
}

func renderCheckMarkdown(r *output.Renderer, report checkReport) {
	r.Println(output.FormatHeader(1, "Check: "+report.File))
	r.Println("")

	status := "valid"
	if !report.Valid {
		status = "invalid"
	}
	r.Println(output.FormatKeyValue("Status", status))
	errs, warns := countSeverities(report.Diagnostics)
	r.Println(output.FormatKeyValue("Errors", fmt.Sprint(errs)))
	r.Println(output.FormatKeyValue("Warnings", fmt.Sprint(warns)))

	if len(report.Diagnostics) == 0 {
		return
	}
	r.Println("")
	r.Println(output.FormatHeader(2, "Diagnostics"))
	r.Println("")
	for _, d := range report.Diagnostics {
		node := ""
		if d.NodeID != "" {
			node = fmt.Sprintf(" `%s`", d.NodeID)
		}
		r.Printf("- **%s** [%s]%s: %s\n", d.Severity, d.Code, node, d.Message)
	}
}

func severityStyle(styles *output.Styles, s core.Severity) lipgloss.Style {
	switch s {
	case core.SeverityError:
		return styles.Error
	case core.SeverityWarning:
		return styles.Warning
	default:
		return styles.Info
	}
}

func countSeverities(diags []core.Diagnostic) (errs, warns int) {
	for _, d := range diags {
		switch d.Severity {
		case core.SeverityError:
			errs++
		case core.SeverityWarning:
			warns++
		}
	}
	return errs, warns
}
