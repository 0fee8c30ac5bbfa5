package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

var flagForce bool

var indexCmd = &cobra.Command{
	Use:   "index <path>",
	Short: "Index a source tree or a single file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		return withApp(func(ctx context.Context, a *app) error {
			opts := a.indexOptions(flagForce, optionalBool(cmd, "include-tests"), optionalBool(cmd, "include-vendor"))

			if !flagJSON {
				fmt.Printf("Indexing %s...\n", root)
			}
			stats, err := a.reconciler.IndexDirectory(ctx, root, opts)
			if err != nil {
				return err
			}
			if flagJSON {
				return printJSON(stats)
			}

			headerColor.Printf("\nDone in %s\n", elapsed(stats.Duration))
			fmt.Printf("  Files:    %d indexed, %d skipped, %d failed, %d removed\n",
				stats.FilesIndexed, stats.FilesSkipped, stats.FilesFailed, stats.FilesRemoved)
			fmt.Printf("  Entities: %d\n", stats.EntitiesIndexed)
			printSyncResult(stats.Changes)
			printErrors(stats.ErrorMessages)
			return nil
		})
	},
}

func init() {
	indexCmd.Flags().BoolVarP(&flagForce, "force", "f", false, "re-extract files whose content is unchanged")
	indexCmd.Flags().Bool("include-tests", false, "index test files")
	indexCmd.Flags().Bool("include-vendor", false, "index vendor and node_modules directories")
	rootCmd.AddCommand(indexCmd)
}
