package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/flowgen/internal/server"
	"github.com/leapstack-labs/flowgen/internal/state"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the compile server for the graph editor",
		Long: `Start an HTTP server that compiles graph snapshots on request.

Endpoints:
  POST /compile    compile the request body (?target=go|javascript, ?strict=true)
  POST /validate   validate the request body and return its warnings
  GET  /types      list the registered node types
  GET  /healthz    liveness probe

Request bodies are JSON unless Content-Type names YAML or HCL. Errors are
returned as application/problem+json documents.`,
		Example: `  # Serve on the default port
  flowgen serve

  # Serve on port 9000 and emit JavaScript by default
  flowgen serve --port 9000 -t javascript`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd)
		},
	}

	cmd.Flags().Int("port", 0, "Port to listen on")
	cmd.Flags().Int64("max-body-bytes", 0, "Largest accepted graph snapshot in bytes")
	cmd.Flags().Duration("shutdown-timeout", 0, "Time allowed for in-flight requests on shutdown")
	cmd.Flags().Bool("strict-json", false, "Reject json-source content that does not parse")

	return cmd
}

func runServe(cmd *cobra.Command) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	cfg := cmdCtx.Cfg

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store state.Store
	sqlStore, err := cmdCtx.OpenStore()
	if err != nil {
		return err
	}
	if sqlStore != nil {
		defer func() { _ = sqlStore.Close() }()
		store = sqlStore
	}

	srv, err := server.New(server.Config{
		Port:            cfg.Serve.Port,
		MaxBodyBytes:    cfg.Serve.MaxBodyBytes,
		ShutdownTimeout: cfg.Serve.ShutdownTimeout,
		Target:          cfg.Target,
		StrictJSON:      cfg.StrictJSON,
		Registry:        cmdCtx.Registry,
		Store:           store,
		Logger:          cmdCtx.Logger,
	})
	if err != nil {
		return err
	}

	cmdCtx.Renderer.Muted(fmt.Sprintf("Compile server listening on :%d (Ctrl+C to stop)", cfg.Serve.Port))
	cmdCtx.Logger.Info("serving", slog.Int("port", cfg.Serve.Port), slog.String("target", string(cfg.Target)))
	return srv.Serve(ctx)
}
