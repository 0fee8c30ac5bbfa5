package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dshills/codexref/pkg/types"
)

// printJSON writes v as indented JSON to stdout
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printSyncResult(r types.SyncResult) {
	fmt.Printf("  Added:     %s\n", okColor.Sprint(r.Added))
	fmt.Printf("  Updated:   %d\n", r.Updated)
	fmt.Printf("  Unchanged: %s\n", dimColor.Sprint(r.Unchanged))
	fmt.Printf("  Removed:   %d\n", r.Removed)
}

func printErrors(messages []string) {
	for _, m := range messages {
		fmt.Fprintf(os.Stderr, "  %s %s\n", errColor.Sprint("error:"), m)
	}
}

func elapsed(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}
