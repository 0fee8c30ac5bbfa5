package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/dshills/codexref/internal/mcp"
	"github.com/dshills/codexref/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the index over MCP on stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			a.log.Info("codexref MCP server starting",
				"version", version,
				"build_mode", storage.BuildMode,
				"driver", storage.DriverName)

			server, err := mcp.NewServer(mcp.Components{
				Store:         a.store,
				Searcher:      a.searcher,
				Graph:         a.graph,
				Reconciler:    a.reconciler,
				DefaultLimit:  a.cfg.DefaultLimit,
				MaxDepth:      a.cfg.MaxDepth,
				IncludeTests:  a.cfg.IncludeTests,
				IncludeVendor: a.cfg.IncludeVendor,
				Logger:        a.log,
			})
			if err != nil {
				return err
			}

			// Start server in a goroutine
			errChan := make(chan error, 1)
			go func() {
				errChan <- server.Serve(ctx)
			}()

			// Wait for shutdown signal or error
			select {
			case <-ctx.Done():
				a.log.Info("shutting down")
			case err := <-errChan:
				if err != nil && !errors.Is(err, context.Canceled) {
					return err
				}
			}
			a.log.Info("server stopped")
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
