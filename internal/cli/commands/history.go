package commands

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/flowgen/internal/cli/output"
	"github.com/leapstack-labs/flowgen/internal/state"
)

// HistoryOptions holds options for the history command.
type HistoryOptions struct {
	Limit int
	Graph string
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	opts := &HistoryOptions{}
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded builds",
		Long: `List the compiles recorded in the build history database, newest first.

With --graph, only the latest build of that snapshot's current contents is
shown, which tells whether the file changed since it was last compiled.`,
		Example: `  # Last 20 builds
  flowgen history

  # Was flow.json compiled since its last edit?
  flowgen history --graph flow.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "Number of builds to show")
	cmd.Flags().StringVar(&opts.Graph, "graph", "", "Show the latest build of this snapshot")

	return cmd
}

func runHistory(cmd *cobra.Command, opts *HistoryOptions) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	store := state.NewSQLiteStore(cmdCtx.Logger)
	if err := store.Open(cmdCtx.Cfg.StatePath); err != nil {
		return fmt.Errorf("failed to open build history: %w", err)
	}
	defer func() { _ = store.Close() }()

	var builds []*state.Build
	if opts.Graph != "" {
		data, err := os.ReadFile(opts.Graph) //nolint:gosec // G304: path is supplied by the user
		if err != nil {
			return fmt.Errorf("failed to read graph: %w", err)
		}
		latest, err := store.LatestBuild(cmd.Context(), state.Hash(data))
		if err != nil {
			return err
		}
		if latest != nil {
			builds = append(builds, latest)
		}
	} else {
		builds, err = store.ListBuilds(cmd.Context(), opts.Limit)
		if err != nil {
			return err
		}
	}

	r := cmdCtx.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		if builds == nil {
			builds = []*state.Build{}
		}
		return r.JSON(builds)
	case output.ModeMarkdown:
		historyMarkdown(r, builds)
	default:
		if len(builds) == 0 {
			r.Muted("No builds recorded")
			return nil
		}
		r.Header(1, fmt.Sprintf("Builds (%d)", len(builds)))
		historyTable(r.Writer(), builds)
	}
	return nil
}

func historyTable(w io.Writer, builds []*state.Build) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"When", "Graph", "Target", "Status", "Warnings", "Duration", "Error"})
	for _, b := range builds {
		t.AppendRow(table.Row{
			b.CreatedAt.Local().Format(time.DateTime),
			graphLabel(b),
			b.Target,
			b.Status,
			b.Warnings,
			b.Duration.Round(time.Microsecond),
			b.Error,
		})
	}
	t.Render()
}

func historyMarkdown(r *output.Renderer, builds []*state.Build) {
	r.Println(output.FormatHeader(1, fmt.Sprintf("Builds (%d)", len(builds))))
	r.Println("")
	for _, b := range builds {
		r.Println(output.FormatHeader(2, b.CreatedAt.UTC().Format(time.RFC3339)+" "+graphLabel(b)))
		r.Println(output.FormatKeyValue("ID", b.ID))
		r.Println(output.FormatKeyValue("Target", b.Target))
		r.Println(output.FormatKeyValue("Status", string(b.Status)))
		r.Println(output.FormatKeyValue("Warnings", fmt.Sprint(b.Warnings)))
		r.Println(output.FormatKeyValue("Graph hash", b.GraphHash))
		if b.Error != "" {
			r.Println(output.FormatKeyValue("Error", b.Error))
		}
		r.Println("")
	}
}

// graphLabel names a build's graph, falling back to a short hash for
// snapshots compiled from a request body.
func graphLabel(b *state.Build) string {
	if b.GraphFile != "" {
		return b.GraphFile
	}
	if len(b.GraphHash) > 12 {
		return b.GraphHash[:12]
	}
	return b.GraphHash
}
