package types

import (
	"path"
	"strings"
	"time"
)

// SearchField names a searchable field of a record
type SearchField string

const (
	FieldName          SearchField = "name"
	FieldSignature     SearchField = "signature"
	FieldDocumentation SearchField = "documentation"
	FieldPurpose       SearchField = "purpose"
	FieldContext       SearchField = "context"
)

// DefaultSearchFields is used when a query does not restrict its fields
var DefaultSearchFields = []SearchField{FieldName, FieldSignature, FieldDocumentation, FieldPurpose, FieldContext}

// ValidSearchField reports whether f is a known search field
func ValidSearchField(f SearchField) bool {
	for _, known := range DefaultSearchFields {
		if f == known {
			return true
		}
	}
	return false
}

// Range is an inclusive numeric range; a nil bound is open
type Range struct {
	Min *int `json:"min,omitempty"`
	Max *int `json:"max,omitempty"`
}

// NewRange builds a closed range
func NewRange(min, max int) *Range {
	return &Range{Min: &min, Max: &max}
}

// Contains reports whether v lies within the range
func (r *Range) Contains(v int) bool {
	if r == nil {
		return true
	}
	if r.Min != nil && v < *r.Min {
		return false
	}
	if r.Max != nil && v > *r.Max {
		return false
	}
	return true
}

// Filters are structured predicates applied after scoring
type Filters struct {
	Language         string            `json:"language,omitempty"`
	FileType         string            `json:"fileType,omitempty"`
	FilePath         string            `json:"filePath,omitempty"`
	EntityType       EntityKind        `json:"entityType,omitempty"`
	ComponentType    string            `json:"componentType,omitempty"`
	Hook             string            `json:"hook,omitempty"`
	Dependency       string            `json:"dependency,omitempty"`
	Calls            string            `json:"calls,omitempty"`
	CalledBy         string            `json:"calledBy,omitempty"`
	Complexity       *Range            `json:"complexity,omitempty"`
	HasDocBlock      *bool             `json:"hasDocBlock,omitempty"`
	HasUnusedImports bool              `json:"hasUnusedImports,omitempty"`
	HasDeadImports   bool              `json:"hasDeadImports,omitempty"`
	Since            *time.Time        `json:"since,omitempty"`
	Extensions       map[string]string `json:"extensions,omitempty"`
}

// IsZero reports whether no filter is set
func (f *Filters) IsZero() bool {
	if f == nil {
		return true
	}
	return f.Language == "" && f.FileType == "" && f.FilePath == "" && f.EntityType == "" &&
		f.ComponentType == "" && f.Hook == "" && f.Dependency == "" && f.Calls == "" &&
		f.CalledBy == "" && f.Complexity == nil && f.HasDocBlock == nil &&
		!f.HasUnusedImports && !f.HasDeadImports && f.Since == nil && len(f.Extensions) == 0
}

// Merge returns a copy of f with every non-zero field of override applied on top
func (f Filters) Merge(override *Filters) Filters {
	if override == nil {
		return f
	}
	o := *override
	if o.Language != "" {
		f.Language = o.Language
	}
	if o.FileType != "" {
		f.FileType = o.FileType
	}
	if o.FilePath != "" {
		f.FilePath = o.FilePath
	}
	if o.EntityType != "" {
		f.EntityType = o.EntityType
	}
	if o.ComponentType != "" {
		f.ComponentType = o.ComponentType
	}
	if o.Hook != "" {
		f.Hook = o.Hook
	}
	if o.Dependency != "" {
		f.Dependency = o.Dependency
	}
	if o.Calls != "" {
		f.Calls = o.Calls
	}
	if o.CalledBy != "" {
		f.CalledBy = o.CalledBy
	}
	if o.Complexity != nil {
		f.Complexity = o.Complexity
	}
	if o.HasDocBlock != nil {
		f.HasDocBlock = o.HasDocBlock
	}
	f.HasUnusedImports = f.HasUnusedImports || o.HasUnusedImports
	f.HasDeadImports = f.HasDeadImports || o.HasDeadImports
	if o.Since != nil {
		f.Since = o.Since
	}
	if len(o.Extensions) > 0 {
		merged := make(map[string]string, len(f.Extensions)+len(o.Extensions))
		for k, v := range f.Extensions {
			merged[k] = v
		}
		for k, v := range o.Extensions {
			merged[k] = v
		}
		f.Extensions = merged
	}
	return f
}

// MatchPath reports whether filePath satisfies a file filter pattern.
// Glob patterns are matched against the full path and the base name;
// anything else matches as a suffix or substring.
func MatchPath(pattern, filePath string) bool {
	if pattern == "" {
		return true
	}
	if strings.ContainsAny(pattern, "*?[") {
		if ok, err := path.Match(pattern, filePath); err == nil && ok {
			return true
		}
		if ok, err := path.Match(pattern, path.Base(filePath)); err == nil && ok {
			return true
		}
		return false
	}
	return strings.HasSuffix(filePath, pattern) || strings.Contains(filePath, pattern)
}

// ParsedQuery is the structured form of a free-text query
type ParsedQuery struct {
	Terms         []string      `json:"terms"`
	OriginalTerms []string      `json:"originalTerms"`
	Phrases       []string      `json:"phrases"`
	ExcludedTerms []string      `json:"excludedTerms"`
	Filters       Filters       `json:"filters"`
	SearchFields  []SearchField `json:"searchFields"`
	Fuzzy         bool          `json:"fuzzy,omitempty"`
	Stemming      bool          `json:"stemming,omitempty"`
}

// IsEmpty reports whether the query has nothing to match on (filters may still apply)
func (q *ParsedQuery) IsEmpty() bool {
	return q == nil || (len(q.Terms) == 0 && len(q.Phrases) == 0)
}
