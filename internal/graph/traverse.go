package graph

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/dshills/codexref/pkg/types"
)

// DepthEntry is a node reached by a traversal and its distance from the start
type DepthEntry struct {
	Name     string `json:"name"`
	Depth    int    `json:"depth"`
	Resolved bool   `json:"resolved"`
}

// Cycle is a closed call path; Members lists qualified names in path order
type Cycle struct {
	Members []string `json:"members"`
}

// TransitiveDependencies walks FunctionCalls edges breadth first from name.
// Entries come back in first-discovery order; nothing deeper than maxDepth
// is explored. Unresolved targets are listed but not expanded.
func (e *Engine) TransitiveDependencies(ctx context.Context, name string, maxDepth int) ([]DepthEntry, error) {
	return e.traverse(ctx, name, maxDepth, func(r *types.Record) []string {
		return r.Metadata.FunctionCalls
	})
}

// TransitiveCallers walks CalledBy edges breadth first from name
func (e *Engine) TransitiveCallers(ctx context.Context, name string, maxDepth int) ([]DepthEntry, error) {
	return e.traverse(ctx, name, maxDepth, func(r *types.Record) []string {
		return r.Metadata.CalledBy
	})
}

type queued struct {
	rec   *types.Record
	depth int
}

func (e *Engine) traverse(ctx context.Context, name string, maxDepth int, edges func(*types.Record) []string) ([]DepthEntry, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	records, err := e.store.All()
	if err != nil {
		return nil, err
	}
	res := newResolver(records)

	start, err := res.lookupName(name)
	if err != nil {
		return nil, err
	}

	visited := map[string]bool{start.Key(): true}
	seenUnresolved := make(map[string]bool)
	entries := make([]DepthEntry, 0)
	queue := []queued{{rec: start}}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= maxDepth {
			continue
		}

		for _, target := range edges(cur.rec) {
			r := res.resolve(target)
			if !r.Found() {
				if !seenUnresolved[target] {
					seenUnresolved[target] = true
					entries = append(entries, DepthEntry{Name: target, Depth: cur.depth + 1})
				}
				continue
			}
			if visited[r.Record.Key()] {
				continue
			}
			visited[r.Record.Key()] = true
			entries = append(entries, DepthEntry{Name: r.Record.QualifiedName(), Depth: cur.depth + 1, Resolved: true})
			queue = append(queue, queued{rec: r.Record, depth: cur.depth + 1})
		}
	}
	return entries, nil
}

// frame is one level of the explicit DFS stack
type frame struct {
	rec  *types.Record
	next int
}

// DetectCycles runs a depth-first walk from every record and reports each
// distinct elementary cycle once, regardless of rotation or start point. A
// walk from the i-th record only enters records at position i or later, so
// every cycle is found from its lowest-positioned member.
func (e *Engine) DetectCycles(ctx context.Context) ([]Cycle, error) {
	records, err := e.store.All()
	if err != nil {
		return nil, err
	}
	res := newResolver(records)
	position := make(map[string]int, len(records))
	for i, rec := range records {
		position[rec.Key()] = i
	}

	seen := make(map[string]bool)
	cycles := make([]Cycle, 0)
	for i, start := range records {
		stack := []frame{{rec: start}}
		onPath := map[string]bool{start.Key(): true}
		for len(stack) > 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			top := &stack[len(stack)-1]
			calls := top.rec.Metadata.FunctionCalls
			if top.next >= len(calls) {
				delete(onPath, top.rec.Key())
				stack = stack[:len(stack)-1]
				continue
			}
			target := calls[top.next]
			top.next++

			r := res.resolve(target)
			if !r.Found() {
				continue
			}
			callee := r.Record
			key := callee.Key()
			if position[key] < i {
				continue
			}
			if key == start.Key() {
				members := make([]string, 0, len(stack))
				for _, f := range stack {
					members = append(members, f.rec.QualifiedName())
				}
				ck := cycleKey(members)
				if !seen[ck] {
					seen[ck] = true
					cycles = append(cycles, Cycle{Members: members})
				}
				continue
			}
			if onPath[key] {
				continue
			}
			onPath[key] = true
			stack = append(stack, frame{rec: callee})
		}
	}
	return cycles, nil
}

// cycleKey identifies a cycle by its length and member set
func cycleKey(members []string) string {
	sorted := append([]string(nil), members...)
	sort.Strings(sorted)
	return strconv.Itoa(len(members)) + "\x00" + strings.Join(sorted, "\x00")
}

// UpdateDependencyDepths caches in every record the greatest depth its
// transitive dependencies reach (bounded by maxDepth) and persists the store.
func (e *Engine) UpdateDependencyDepths(ctx context.Context, maxDepth int) (int, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	records, err := e.store.All()
	if err != nil {
		return 0, err
	}
	res := newResolver(records)

	updated := 0
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return updated, err
		}
		depth := reachDepth(res, rec, maxDepth)
		if rec.Metadata.DependencyDepth != nil && *rec.Metadata.DependencyDepth == depth {
			continue
		}
		rec.Metadata.DependencyDepth = &depth
		if _, err := e.store.Upsert(ctx, rec); err != nil {
			return updated, err
		}
		updated++
	}

	if updated > 0 {
		if err := e.store.Persist(ctx); err != nil {
			return updated, err
		}
	}
	return updated, nil
}

// reachDepth returns the largest breadth-first distance of any record
// reachable from start along FunctionCalls
func reachDepth(res *resolver, start *types.Record, maxDepth int) int {
	best := 0
	visited := map[string]bool{start.Key(): true}
	queue := []queued{{rec: start}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= maxDepth {
			continue
		}
		for _, target := range cur.rec.Metadata.FunctionCalls {
			r := res.resolve(target)
			if !r.Found() || visited[r.Record.Key()] {
				continue
			}
			visited[r.Record.Key()] = true
			if cur.depth+1 > best {
				best = cur.depth + 1
			}
			queue = append(queue, queued{rec: r.Record, depth: cur.depth + 1})
		}
	}
	return best
}
