package searcher

import (
	"fmt"
	"path"
	"strings"

	"github.com/dshills/codexref/pkg/types"
)

// fileTypeAliases lists the extensions covered by a file type filter
var fileTypeAliases = map[string][]string{
	"ts": {"ts", "tsx", "mts", "cts"},
	"js": {"js", "jsx", "mjs", "cjs"},
}

// DeadImportsKey is the extension field analyzers use to report dead imports
const DeadImportsKey = "deadImports"

// MatchFilters reports whether rec satisfies every set filter
func MatchFilters(rec *types.Record, f types.Filters) bool {
	if f.Language != "" && !strings.EqualFold(rec.Language, f.Language) {
		return false
	}
	if f.FileType != "" && !matchFileType(rec.FilePath, f.FileType) {
		return false
	}
	if f.FilePath != "" && !types.MatchPath(f.FilePath, rec.FilePath) {
		return false
	}
	if f.EntityType != "" && entityType(rec) != f.EntityType {
		return false
	}
	if f.ComponentType != "" && (rec.Metadata.Component == nil || !strings.EqualFold(rec.Metadata.Component.ComponentType, f.ComponentType)) {
		return false
	}
	if f.Hook != "" && (rec.Metadata.Component == nil || !containsString(rec.Metadata.Component.Hooks, f.Hook)) {
		return false
	}
	if f.Dependency != "" && !matchDependency(rec.Dependencies, f.Dependency) {
		return false
	}
	if f.Calls != "" && !matchTarget(rec.Metadata.FunctionCalls, f.Calls) {
		return false
	}
	if f.CalledBy != "" && !matchTarget(rec.Metadata.CalledBy, f.CalledBy) {
		return false
	}
	if f.Complexity != nil && !f.Complexity.Contains(rec.Complexity) {
		return false
	}
	if f.HasDocBlock != nil && rec.Documentation.HasDocBlock != *f.HasDocBlock {
		return false
	}
	if f.HasUnusedImports && len(rec.Metadata.UnusedImports) == 0 {
		return false
	}
	if f.HasDeadImports && !truthy(rec.Metadata.Extensions[DeadImportsKey]) {
		return false
	}
	if f.Since != nil && (rec.ModifiedAt.IsZero() || rec.ModifiedAt.Before(*f.Since)) {
		return false
	}
	for k, v := range f.Extensions {
		got, ok := rec.Metadata.Extensions[k]
		if !ok || !strings.EqualFold(fmt.Sprint(got), v) {
			return false
		}
	}
	return true
}

func entityType(rec *types.Record) types.EntityKind {
	if rec.Metadata.EntityType == "" {
		return types.KindFunction
	}
	return rec.Metadata.EntityType
}

func matchFileType(filePath, fileType string) bool {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(filePath), "."))
	want := strings.ToLower(strings.TrimPrefix(fileType, "."))
	if aliases, ok := fileTypeAliases[want]; ok {
		return containsString(aliases, ext)
	}
	return ext == want
}

// matchDependency matches a module name exactly or as the last path element
func matchDependency(deps []string, dep string) bool {
	for _, d := range deps {
		if d == dep || strings.HasSuffix(d, "/"+dep) {
			return true
		}
	}
	return false
}

// matchTarget compares call targets; a bare filter name matches any file
func matchTarget(targets []string, want string) bool {
	_, _, scoped := types.SplitQualified(want)
	for _, t := range targets {
		if t == want {
			return true
		}
		if !scoped && types.BareName(t) == want {
			return true
		}
	}
	return false
}

func containsString(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}

// truthy interprets an extension value that may have been decoded from JSON
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case []string:
		return len(x) > 0
	case []any:
		return len(x) > 0
	case int:
		return x > 0
	case float64:
		return x > 0
	default:
		return true
	}
}
