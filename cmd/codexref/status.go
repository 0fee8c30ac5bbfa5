package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/codexref/internal/storage"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show index statistics and health",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			stats, err := a.store.Stats(ctx)
			if err != nil {
				return err
			}
			if flagJSON {
				return printJSON(stats)
			}

			headerColor.Println("Index")
			fmt.Printf("  Records:    %d\n", stats.Records)
			fmt.Printf("  Files:      %d\n", stats.Files)
			fmt.Printf("  Documents:  %d\n", stats.IndexedDocuments)
			fmt.Printf("  Generation: %d\n", stats.Generation)
			if stats.SnapshotPath != "" {
				fmt.Printf("  Snapshot:   %s\n", stats.SnapshotPath)
			}
			if !stats.PersistedAt.IsZero() {
				fmt.Printf("  Persisted:  %s (%s)\n", stats.PersistedAt.Format("2006-01-02 15:04:05"), dimColor.Sprint(stats.SnapshotID))
			}

			headerColor.Println("Health")
			fmt.Printf("  Index accessible: %s\n", yesNo(stats.Health.IndexAccessible))
			fmt.Printf("  Index in sync:    %s\n", yesNo(stats.Health.IndexInSync))
			fmt.Printf("  Persistent:       %s\n", yesNo(stats.Health.Persistent))
			return nil
		})
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as TOML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return cfg.Write(os.Stdout)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and build information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("codexref\n")
		fmt.Printf("Version: %s\n", version)
		fmt.Printf("Build Time: %s\n", buildTime)
		fmt.Printf("Build Mode: %s\n", storage.BuildMode)
		fmt.Printf("SQLite Driver: %s\n", storage.DriverName)
	},
}

func yesNo(v bool) string {
	if v {
		return okColor.Sprint("yes")
	}
	return errColor.Sprint("no")
}

func init() {
	rootCmd.AddCommand(statusCmd, configCmd, versionCmd)
}
