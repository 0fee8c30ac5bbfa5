package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dshills/codexref/internal/reconcile"
	"github.com/dshills/codexref/pkg/types"
)

var watchCmd = &cobra.Command{
	Use:   "watch <path>",
	Short: "Index a tree and keep the index in sync with file changes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		return withApp(func(ctx context.Context, a *app) error {
			opts := a.indexOptions(false, optionalBool(cmd, "include-tests"), optionalBool(cmd, "include-vendor"))

			stats, err := a.reconciler.IndexDirectory(ctx, root, opts)
			if err != nil {
				return err
			}
			fmt.Printf("Indexed %d files (%d unchanged) in %s\n", stats.FilesIndexed, stats.FilesSkipped, elapsed(stats.Duration))

			w, err := a.reconciler.NewWatcher(root, reconcile.WatchOptions{
				IndexOptions: opts,
				Debounce:     a.cfg.WatchDebounce,
				OnSync: func(path string, r *types.SyncResult, err error) {
					if err != nil {
						fmt.Printf("%s %s: %v\n", errColor.Sprint("✗"), path, err)
						return
					}
					fmt.Printf("%s %s +%d ~%d -%d\n", okColor.Sprint("✓"), path, r.Added, r.Updated, r.Removed)
				},
			})
			if err != nil {
				return err
			}
			defer func() { _ = w.Close() }()

			headerColor.Printf("Watching %s (Ctrl+C to stop)\n", root)
			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	},
}

func init() {
	watchCmd.Flags().Bool("include-tests", false, "index test files")
	watchCmd.Flags().Bool("include-vendor", false, "index vendor and node_modules directories")
	rootCmd.AddCommand(watchCmd)
}
