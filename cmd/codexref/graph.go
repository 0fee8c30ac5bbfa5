package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/codexref/internal/graph"
)

var flagDepth int

// traversal is TransitiveDependencies or TransitiveCallers
type traversal func(e *graph.Engine, ctx context.Context, name string, maxDepth int) ([]graph.DepthEntry, error)

func traversalCmd(use, short, title string, walk traversal) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use + " <function>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				depth := flagDepth
				if depth <= 0 {
					depth = a.cfg.MaxDepth
				}
				entries, err := walk(a.graph, ctx, args[0], depth)
				if err != nil {
					return err
				}
				if flagJSON {
					return printJSON(entries)
				}

				headerColor.Printf("%s of %s\n", title, args[0])
				if len(entries) == 0 {
					dimColor.Println("  (none)")
					return nil
				}
				for _, e := range entries {
					name := e.Name
					if !e.Resolved {
						name = warnColor.Sprint(name) + dimColor.Sprint(" (unresolved)")
					}
					fmt.Printf("%s%s\n", strings.Repeat("  ", e.Depth), name)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&flagDepth, "depth", "d", 0, "maximum traversal depth (default from config)")
	return cmd
}

var cyclesCmd = &cobra.Command{
	Use:   "cycles",
	Short: "Detect call cycles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			cycles, err := a.graph.DetectCycles(ctx)
			if err != nil {
				return err
			}
			if flagJSON {
				return printJSON(cycles)
			}
			if len(cycles) == 0 {
				okColor.Println("No cycles found")
				return nil
			}
			headerColor.Printf("%d cycles\n", len(cycles))
			for _, c := range cycles {
				chain := append(append([]string(nil), c.Members...), c.Members[0])
				fmt.Printf("  %s\n", strings.Join(chain, " -> "))
			}
			return nil
		})
	},
}

var depthsCmd = &cobra.Command{
	Use:   "depths",
	Short: "Recompute the dependency depth of every function",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			n, err := a.graph.UpdateDependencyDepths(ctx, a.cfg.MaxDepth)
			if err != nil {
				return err
			}
			okColor.Printf("Updated %d records\n", n)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(
		traversalCmd("deps", "List the functions a function transitively calls", "Dependencies", (*graph.Engine).TransitiveDependencies),
		traversalCmd("callers", "List the functions that transitively call a function", "Callers", (*graph.Engine).TransitiveCallers),
		cyclesCmd,
		depthsCmd,
	)
}
