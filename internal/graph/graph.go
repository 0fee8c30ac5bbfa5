// Package graph maintains and walks the call graph stored in record metadata.
//
// Outgoing edges are the FunctionCalls targets reported by extractors;
// incoming CalledBy edges are derived by RebuildCalledBy. Targets are either
// file-scoped ("file#name") or bare names resolved across all files.
package graph

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/dshills/codexref/internal/storage"
	"github.com/dshills/codexref/pkg/types"
)

// DefaultMaxDepth bounds traversals when the caller passes a non-positive depth
const DefaultMaxDepth = 10

// Engine derives and queries call-graph edges
type Engine struct {
	store storage.Store
	log   *slog.Logger
}

// New creates a graph engine over store
func New(store storage.Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: store, log: logger.With("component", "graph")}
}

// Resolution is the outcome of resolving a call target
type Resolution struct {
	Record *types.Record
	// Candidates counts the records the target could refer to
	Candidates int
}

// Ambiguous reports whether a bare name matched more than one record
func (r Resolution) Ambiguous() bool {
	return r.Candidates > 1
}

// Found reports whether the target resolved to a record
func (r Resolution) Found() bool {
	return r.Record != nil
}

// RebuildReport summarizes a CalledBy rebuild
type RebuildReport struct {
	Edges      int      `json:"edges"`
	Updated    int      `json:"updated"`
	Unresolved []string `json:"unresolved,omitempty"`
	Ambiguous  []string `json:"ambiguous,omitempty"`
}

// resolver resolves targets against a snapshot of the records
type resolver struct {
	records []*types.Record
	byFile  map[string][]*types.Record
	byName  map[string][]*types.Record
}

func newResolver(records []*types.Record) *resolver {
	r := &resolver{
		records: records,
		byFile:  make(map[string][]*types.Record),
		byName:  make(map[string][]*types.Record),
	}
	for _, rec := range records {
		r.byFile[rec.FilePath] = append(r.byFile[rec.FilePath], rec)
		r.byName[rec.Name] = append(r.byName[rec.Name], rec)
	}
	return r
}

// resolve looks up a file-scoped target in its file, else scans every file
// for the bare name. With several candidates the first in store order wins.
func (r *resolver) resolve(target string) Resolution {
	file, name, scoped := types.SplitQualified(target)
	var candidates []*types.Record
	if scoped {
		for _, rec := range r.byFile[file] {
			if rec.Name == name {
				candidates = append(candidates, rec)
			}
		}
	} else {
		candidates = r.byName[name]
	}
	if len(candidates) == 0 {
		return Resolution{}
	}
	return Resolution{Record: candidates[0], Candidates: len(candidates)}
}

// lookupName finds the record a traversal starts from. name may be
// qualified or bare.
func (r *resolver) lookupName(name string) (*types.Record, error) {
	res := r.resolve(name)
	if !res.Found() {
		return nil, fmt.Errorf("%s: %w", name, types.ErrNotFound)
	}
	return res.Record, nil
}

// Resolve resolves a call target against the current store contents
func (e *Engine) Resolve(target string) (Resolution, error) {
	records, err := e.store.All()
	if err != nil {
		return Resolution{}, err
	}
	return newResolver(records).resolve(target), nil
}

// RebuildCalledBy re-derives the CalledBy edges. With an empty scope every
// record is rebuilt. With a file scope, in-scope records are cleared, edges
// contributed by in-scope callers are removed from the rest of the store,
// and then every caller in the store re-contributes its edges.
func (e *Engine) RebuildCalledBy(ctx context.Context, scope string) (*RebuildReport, error) {
	records, err := e.store.All()
	if err != nil {
		return nil, err
	}

	before := make(map[string][]string, len(records))
	for _, rec := range records {
		before[rec.Key()] = append([]string(nil), rec.Metadata.CalledBy...)

		switch {
		case scope == "" || rec.FilePath == scope:
			rec.Metadata.CalledBy = nil
		default:
			rec.Metadata.CalledBy = dropCallersFrom(rec.Metadata.CalledBy, scope)
		}
	}

	res := newResolver(records)
	report := &RebuildReport{}
	unresolved := make(map[string]bool)
	ambiguous := make(map[string]bool)

	for _, caller := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		callerName := caller.QualifiedName()
		for _, target := range caller.Metadata.FunctionCalls {
			r := res.resolve(target)
			if !r.Found() {
				unresolved[target] = true
				continue
			}
			if r.Ambiguous() {
				ambiguous[target] = true
			}
			callee := r.Record
			if !contains(callee.Metadata.CalledBy, callerName) {
				callee.Metadata.CalledBy = append(callee.Metadata.CalledBy, callerName)
				report.Edges++
			}
		}
	}

	for _, rec := range records {
		if equalStrings(before[rec.Key()], rec.Metadata.CalledBy) {
			continue
		}
		if _, err := e.store.Upsert(ctx, rec); err != nil {
			return nil, fmt.Errorf("failed to update %s: %w", rec.Identity(), err)
		}
		report.Updated++
	}

	report.Unresolved = sortedKeys(unresolved)
	report.Ambiguous = sortedKeys(ambiguous)

	if report.Updated > 0 {
		if err := e.store.Persist(ctx); err != nil {
			return nil, err
		}
	}

	e.log.Debug("calledBy rebuilt",
		slog.String("scope", scope),
		slog.Int("edges", report.Edges),
		slog.Int("updated", report.Updated),
		slog.Int("ambiguous", len(report.Ambiguous)))
	return report, nil
}

// dropCallersFrom removes CalledBy entries whose caller lives in file
func dropCallersFrom(calledBy []string, file string) []string {
	if len(calledBy) == 0 {
		return calledBy
	}
	prefix := file + types.QualifiedSeparator
	kept := make([]string, 0, len(calledBy))
	for _, c := range calledBy {
		if !strings.HasPrefix(c, prefix) {
			kept = append(kept, c)
		}
	}
	return kept
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sortedKeys(m map[string]bool) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
