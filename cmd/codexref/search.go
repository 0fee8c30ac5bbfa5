package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/codexref/internal/query"
	"github.com/dshills/codexref/internal/searcher"
	"github.com/dshills/codexref/pkg/types"
)

var (
	flagMode   string
	flagLimit  int
	flagOffset int
	flagStrict bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the index",
	Long: `Search the index with keywords, "quoted phrases", -exclusions and operators:

  kind:function             kind:component     type:go
  lang:go                   file:internal/*.go since:7d
  complexity:>5             complexity:3-8     calls:parse
  calledby:main             dep:fmt            component:functional
  hook:useState             jsdoc:true         unused-imports
  meta:pattern=handler      in:name,signature  lang:go,type:go

A leading dash excludes a keyword; it does not negate an operator.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		q := strings.Join(args, " ")
		var parsed *types.ParsedQuery
		if flagStrict {
			p, err := query.ParseStrict(q)
			if err != nil {
				return err
			}
			parsed = p
		}

		return withApp(func(ctx context.Context, a *app) error {
			limit := flagLimit
			if limit <= 0 {
				limit = a.cfg.DefaultLimit
			}
			result, err := a.searcher.Search(ctx, searcher.Request{
				Query:  q,
				Parsed: parsed,
				Limit:  limit,
				Offset: flagOffset,
				Mode:   types.SearchMode(flagMode),
			})
			if err != nil {
				return err
			}
			if flagJSON {
				return printJSON(result)
			}

			if len(result.Results) == 0 {
				warnColor.Println("No results")
				return nil
			}
			for i, sr := range result.Results {
				rec := sr.Record
				headerColor.Printf("%d. %s", flagOffset+i+1, rec.Name)
				fmt.Printf("  %s:%d  %s\n", rec.FilePath, rec.LineNumber, dimColor.Sprintf("score %.2f", sr.Score))
				if rec.Signature != "" {
					fmt.Printf("   %s\n", rec.Signature)
				}
				if rec.Purpose != "" {
					fmt.Printf("   %s\n", dimColor.Sprint(rec.Purpose))
				}
				for _, m := range sr.Matches {
					fmt.Printf("   %s %s\n", okColor.Sprintf("L%d:", m.Line), strings.TrimSpace(m.Text))
				}
			}
			fmt.Printf("\n%d of %d results in %s\n", len(result.Results), result.TotalCount, elapsed(result.ExecutionTime))
			return nil
		})
	},
}

func init() {
	searchCmd.Flags().StringVarP(&flagMode, "mode", "m", string(types.ModeMetadata), "metadata, content or both")
	searchCmd.Flags().IntVarP(&flagLimit, "limit", "n", 0, "maximum results (default from config)")
	searchCmd.Flags().IntVar(&flagOffset, "offset", 0, "number of results to skip")
	searchCmd.Flags().BoolVar(&flagStrict, "strict", false, "reject malformed operator values instead of searching them as text")
	rootCmd.AddCommand(searchCmd)
}
