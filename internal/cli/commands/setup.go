package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/flowgen/internal/cli/config"
	"github.com/leapstack-labs/flowgen/internal/cli/output"
	intconfig "github.com/leapstack-labs/flowgen/internal/config"
	"github.com/leapstack-labs/flowgen/internal/loader"
	"github.com/leapstack-labs/flowgen/internal/registry"
	"github.com/leapstack-labs/flowgen/internal/state"
	"github.com/leapstack-labs/flowgen/pkg/core"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Registry *registry.TypeRegistry
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext from the loaded configuration
// and the --format flag.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	mode := output.ModeAuto
	if f := cmd.Flag("format"); f != nil {
		m, err := output.ParseMode(f.Value.String())
		if err != nil {
			return nil, err
		}
		mode = m
	}

	return &CommandContext{
		Cfg:      getConfig(),
		Logger:   config.GetLogger(cmd.Context()),
		Registry: registry.NewDefault(),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode),
	}, nil
}

// LoadGraph reads the snapshot at path.
func (c *CommandContext) LoadGraph(path string) ([]byte, *core.Graph, error) {
	l, err := loader.New(c.Registry, c.Logger)
	if err != nil {
		return nil, nil, err
	}
	format, err := loader.FormatFromPath(path)
	if err != nil {
		return nil, nil, err
	}
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is supplied by the user
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read graph: %w", err)
	}
	g, err := l.Decode(data, format, path)
	if err != nil {
		return nil, nil, err
	}
	return data, g, nil
}

// OpenStore opens the build history database. It returns nil when history
// recording is disabled.
func (c *CommandContext) OpenStore() (*state.SQLiteStore, error) {
	if !c.Cfg.RecordHistory {
		return nil, nil
	}
	store := state.NewSQLiteStore(c.Logger)
	if err := store.Open(c.Cfg.StatePath); err != nil {
		return nil, fmt.Errorf("failed to open build history: %w", err)
	}
	return store, nil
}

// getConfig returns the configuration loaded by the root command, or the
// defaults when a command runs on its own.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return intconfig.Default()
}
