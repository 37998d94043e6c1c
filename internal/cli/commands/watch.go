package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <graph>",
		Short: "Recompile a graph whenever its snapshot changes",
		Long: `Compile a graph snapshot, then watch it and recompile on every save.

Compile errors are reported and watching continues, so the graph can be
fixed in the editor without restarting. Use --output to keep a program
file up to date.`,
		Example: `  # Keep server.go in sync with flow.json
  flowgen watch flow.json -o server.go

  # Wait longer for the editor to finish writing
  flowgen watch flow.yaml --debounce 500ms`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, args[0])
		},
	}

	cmd.Flags().StringP("output", "o", "", "Write the program to this file instead of stdout")
	cmd.Flags().Bool("strict-json", false, "Reject json-source content that does not parse")
	cmd.Flags().Duration("debounce", 0, "Quiet period after a change before recompiling")

	return cmd
}

func runWatch(cmd *cobra.Command, path string) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := cmdCtx.Renderer
	rebuild := func() {
		res, err := compileGraph(ctx, cmdCtx, path)
		if err != nil {
			r.Error(err.Error())
			return
		}
		printWarnings(r, res.Warnings)
		if cmdCtx.Cfg.Output == "" {
			r.Printf("%s", res.Source)
			return
		}
		if err := writeProgram(cmdCtx.Cfg.Output, res.Source); err != nil {
			r.Error(err.Error())
			return
		}
		r.Success(fmt.Sprintf("%s Wrote %s program to %s",
			time.Now().Format(time.TimeOnly), res.Target, cmdCtx.Cfg.Output))
	}

	rebuild()
	r.Muted(fmt.Sprintf("Watching %s (Ctrl+C to stop)", path))
	return watchGraph(ctx, path, cmdCtx.Cfg.Watch.Debounce, cmdCtx.Logger, rebuild)
}

// watchGraph calls rebuild after the file at path is written, once changes
// have been quiet for debounce. It blocks until ctx is cancelled.
//
// The parent directory is watched rather than the file itself because
// editors often save by writing a temporary file and renaming it over the
// original, which drops a watch on the file.
func watchGraph(ctx context.Context, path string, debounce time.Duration, logger *slog.Logger, rebuild func()) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	var (
		mu            sync.Mutex
		debounceTimer *time.Timer
	)
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			// Debounce
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounce, func() {
				if ctx.Err() != nil {
					return
				}
				mu.Lock()
				defer mu.Unlock()
				logger.Debug("graph changed, recompiling", slog.String("file", abs), slog.String("op", event.Op.String()))
				rebuild()
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher error", slog.String("error", err.Error()))
		}
	}
}
