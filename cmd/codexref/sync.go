package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/codexref/pkg/types"
)

var flagEntities string

// readEntities decodes a JSON entity array from a file, or stdin for "-"
func readEntities(path string) ([]types.Entity, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer func() { _ = f.Close() }()
		r = f
	}
	var entities []types.Entity
	if err := json.NewDecoder(r).Decode(&entities); err != nil {
		return nil, fmt.Errorf("decode entities: %w", err)
	}
	return entities, nil
}

var syncCmd = &cobra.Command{
	Use:   "sync <file>",
	Short: "Reconcile one file with the index",
	Long: `Reconcile one file with the index.

Without --entities the file is re-extracted from disk. With --entities the
given JSON array (or "-" for stdin) is taken as the complete current entity
list of the file.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		return withApp(func(ctx context.Context, a *app) error {
			var (
				result *types.SyncResult
				err    error
			)
			if flagEntities != "" {
				entities, rerr := readEntities(flagEntities)
				if rerr != nil {
					return rerr
				}
				result, err = a.reconciler.SyncFile(ctx, path, entities)
			} else {
				result, err = a.reconciler.ResyncFile(ctx, path)
			}
			if err != nil {
				return err
			}
			if flagJSON {
				return printJSON(result)
			}
			headerColor.Printf("Synced %s\n", path)
			printSyncResult(*result)
			return nil
		})
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <entities.json|->",
	Short: "Add entities reported by an external extractor",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entities, err := readEntities(args[0])
		if err != nil {
			return err
		}
		return withApp(func(ctx context.Context, a *app) error {
			result, err := a.reconciler.Ingest(ctx, entities)
			if err != nil {
				return err
			}
			if flagJSON {
				return printJSON(result)
			}
			fmt.Printf("Ingested %s entities, %d failed\n", okColor.Sprint(result.Succeeded), result.Failed)
			for _, ie := range result.Errors {
				fmt.Fprintf(os.Stderr, "  %s #%d %s: %s\n", errColor.Sprint("error:"), ie.Index, ie.Identity, ie.Message)
			}
			return nil
		})
	},
}

var deepSyncCmd = &cobra.Command{
	Use:   "deep-sync",
	Short: "Re-extract every indexed file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			result, err := a.reconciler.DeepSync(ctx)
			if err != nil {
				return err
			}
			if flagJSON {
				return printJSON(result)
			}
			headerColor.Printf("Deep sync of %d files done in %s\n", result.Files, elapsed(result.Duration))
			printSyncResult(result.SyncResult)
			for _, fe := range result.Errors {
				printErrors([]string{fe.FilePath + ": " + fe.Message})
			}
			return nil
		})
	},
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove index entries of deleted files",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			result, err := a.reconciler.BulkCleanup(ctx)
			if err != nil {
				return err
			}
			if flagJSON {
				return printJSON(result)
			}
			fmt.Printf("Scanned %d files, removed %s files (%d records)\n",
				result.FilesScanned, okColor.Sprint(result.FilesRemoved), result.RecordsRemoved)
			for _, f := range result.RemovedFiles {
				fmt.Printf("  %s\n", dimColor.Sprint(f))
			}
			return nil
		})
	},
}

func init() {
	syncCmd.Flags().StringVarP(&flagEntities, "entities", "e", "", "JSON entity list of the file, or - for stdin")
	rootCmd.AddCommand(syncCmd, ingestCmd, deepSyncCmd, cleanupCmd)
}
